// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the gateway.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// Protocol dispatch metrics
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	normalizeErrors  *prometheus.CounterVec

	// Router metrics
	routeDecisions  *prometheus.CounterVec
	routeDuration   prometheus.Histogram
	routeConfidence prometheus.Histogram

	// Sandbox pool metrics
	poolAcquireTotal   *prometheus.CounterVec
	poolAcquireDur     prometheus.Histogram
	poolInstances      *prometheus.GaugeVec
	poolHitRate        prometheus.Gauge
	toolExecutions     *prometheus.CounterVec
	toolExecDuration   *prometheus.HistogramVec
	coldStartDuration  prometheus.Histogram

	// Embedder metrics
	embedCacheHits   prometheus.Counter
	embedCacheMisses prometheus.Counter
	embedDuration    prometheus.Histogram

	// Audit metrics
	auditEntriesTotal    *prometheus.CounterVec
	auditFlushDuration   prometheus.Histogram
	auditComprehension   prometheus.Histogram

	// HTTP surface metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance from configuration. Returns
// nil (not an error) when metrics are disabled, and every Record*/Set*
// method is a safe no-op on a nil *Metrics.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initProtocolMetrics()
	m.initRouterMetrics()
	m.initSandboxMetrics()
	m.initEmbedderMetrics()
	m.initAuditMetrics()
	m.initHTTPMetrics()

	return m, nil
}

func (m *Metrics) initProtocolMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "protocol",
			Name:      "requests_total",
			Help:      "Total number of inbound requests by protocol tag",
		},
		[]string{"protocol"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "protocol",
			Name:      "normalize_duration_seconds",
			Help:      "Time spent normalizing a request into an Intent",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us to 200ms
		},
		[]string{"protocol"},
	)
	m.normalizeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "protocol",
			Name:      "normalize_errors_total",
			Help:      "Total number of normalization failures by protocol tag",
		},
		[]string{"protocol"},
	)
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.normalizeErrors)
}

func (m *Metrics) initRouterMetrics() {
	m.routeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Total number of routing decisions by outcome",
		},
		[]string{"outcome"},
	)
	m.routeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "route_duration_seconds",
			Help:      "Time spent routing a request to a tool",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 10), // 500us to 256ms
		},
	)
	m.routeConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "route_confidence",
			Help:      "Confidence score of the chosen routing decision",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		},
	)
	m.registry.MustRegister(m.routeDecisions, m.routeDuration, m.routeConfidence)
}

func (m *Metrics) initSandboxMetrics() {
	m.poolAcquireTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox_pool",
			Name:      "acquires_total",
			Help:      "Total number of sandbox acquisitions by outcome (warm, cold, evicted)",
		},
		[]string{"outcome"},
	)
	m.poolAcquireDur = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox_pool",
			Name:      "acquire_duration_seconds",
			Help:      "Time spent acquiring a sandbox instance",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to 16s
		},
	)
	m.poolInstances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox_pool",
			Name:      "instances",
			Help:      "Current number of sandbox instances by state",
		},
		[]string{"state"},
	)
	m.poolHitRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox_pool",
			Name:      "hit_rate",
			Help:      "Exponential moving average of the warm-acquire hit rate",
		},
	)
	m.toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox",
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions by outcome",
		},
		[]string{"tool_name", "outcome"},
	)
	m.toolExecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox",
			Name:      "tool_exec_duration_seconds",
			Help:      "Tool execution duration in seconds, excluding cold-start",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"tool_name"},
	)
	m.coldStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "sandbox",
			Name:      "cold_start_duration_seconds",
			Help:      "Sandbox cold-start (create) duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to 20s
		},
	)
	m.registry.MustRegister(m.poolAcquireTotal, m.poolAcquireDur, m.poolInstances,
		m.poolHitRate, m.toolExecutions, m.toolExecDuration, m.coldStartDuration)
}

func (m *Metrics) initEmbedderMetrics() {
	m.embedCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "embedder",
			Name:      "cache_hits_total",
			Help:      "Total number of embedding cache hits",
		},
	)
	m.embedCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "embedder",
			Name:      "cache_misses_total",
			Help:      "Total number of embedding cache misses",
		},
	)
	m.embedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "embedder",
			Name:      "embed_duration_seconds",
			Help:      "Time spent generating an embedding on a cache miss",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
		},
	)
	m.registry.MustRegister(m.embedCacheHits, m.embedCacheMisses, m.embedDuration)
}

func (m *Metrics) initAuditMetrics() {
	m.auditEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total number of audit entries recorded by event type",
		},
		[]string{"event_type"},
	)
	m.auditFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "audit",
			Name:      "flush_duration_seconds",
			Help:      "Time spent flushing the audit buffer to the sink",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
		},
	)
	m.auditComprehension = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "audit",
			Name:      "estimated_read_seconds",
			Help:      "Estimated human read time of a built audit view",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to 512s
		},
	)
	m.registry.MustRegister(m.auditEntriesTotal, m.auditFlushDuration, m.auditComprehension)
}

func (m *Metrics) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.registry.MustRegister(m.httpRequests, m.httpDuration)
}

// RecordRequest records a normalized inbound request.
func (m *Metrics) RecordRequest(protocol string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(protocol).Inc()
	m.requestDuration.WithLabelValues(protocol).Observe(duration.Seconds())
}

// RecordNormalizeError records a normalization failure.
func (m *Metrics) RecordNormalizeError(protocol string) {
	if m == nil {
		return
	}
	m.normalizeErrors.WithLabelValues(protocol).Inc()
}

// RecordRouteDecision records a routing decision's outcome, latency and
// confidence.
func (m *Metrics) RecordRouteDecision(outcome string, duration time.Duration, confidence float64) {
	if m == nil {
		return
	}
	m.routeDecisions.WithLabelValues(outcome).Inc()
	m.routeDuration.Observe(duration.Seconds())
	if outcome != "no_match" && outcome != "timeout" {
		m.routeConfidence.Observe(confidence)
	}
}

// RecordPoolAcquire records a sandbox pool acquisition outcome and
// latency.
func (m *Metrics) RecordPoolAcquire(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.poolAcquireTotal.WithLabelValues(outcome).Inc()
	m.poolAcquireDur.Observe(duration.Seconds())
}

// SetPoolInstances sets the current gauge value for a sandbox state.
func (m *Metrics) SetPoolInstances(state string, count int) {
	if m == nil {
		return
	}
	m.poolInstances.WithLabelValues(state).Set(float64(count))
}

// SetPoolHitRate sets the current EMA hit-rate gauge.
func (m *Metrics) SetPoolHitRate(rate float64) {
	if m == nil {
		return
	}
	m.poolHitRate.Set(rate)
}

// RecordToolExecution records a tool execution outcome and duration.
func (m *Metrics) RecordToolExecution(toolName, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(toolName, outcome).Inc()
	m.toolExecDuration.WithLabelValues(toolName).Observe(duration.Seconds())
}

// RecordColdStart records a sandbox cold-start (create) duration.
func (m *Metrics) RecordColdStart(duration time.Duration) {
	if m == nil {
		return
	}
	m.coldStartDuration.Observe(duration.Seconds())
}

// RecordEmbedCacheHit records an embedding cache hit.
func (m *Metrics) RecordEmbedCacheHit() {
	if m == nil {
		return
	}
	m.embedCacheHits.Inc()
}

// RecordEmbedCacheMiss records an embedding cache miss and the
// generation duration that followed it.
func (m *Metrics) RecordEmbedCacheMiss(duration time.Duration) {
	if m == nil {
		return
	}
	m.embedCacheMisses.Inc()
	m.embedDuration.Observe(duration.Seconds())
}

// RecordAuditEntry records an audit entry being appended to the stream.
func (m *Metrics) RecordAuditEntry(eventType string) {
	if m == nil {
		return
	}
	m.auditEntriesTotal.WithLabelValues(eventType).Inc()
}

// RecordAuditFlush records a buffer flush's duration.
func (m *Metrics) RecordAuditFlush(duration time.Duration) {
	if m == nil {
		return
	}
	m.auditFlushDuration.Observe(duration.Seconds())
}

// RecordAuditComprehension records a built audit view's estimated read
// time.
func (m *Metrics) RecordAuditComprehension(seconds float64) {
	if m == nil {
		return
	}
	m.auditComprehension.Observe(seconds)
}

// RecordHTTPRequest records an HTTP request against the demo surface.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, statusCodeLabel(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// statusCodeLabel converts a status code to a label string.
func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
