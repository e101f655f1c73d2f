package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/registry"
	"github.com/meshgate/core/pkg/types"
)

// MaxPayloadBytes is the raw-payload ceiling Convert enforces before
// invoking any adapter.
const MaxPayloadBytes = 10 * 1024 * 1024 // 10 MiB

// latencyWarnThreshold is the combined parse+normalize duration above
// which Convert logs a warning instead of aborting the request.
const latencyWarnThreshold = 5 * time.Millisecond

// Dispatcher holds the registered protocol adapters and performs
// detection and conversion. Adapters are probed in the fixed order
// given to NewDispatcher, matching types.Protocols.
type Dispatcher struct {
	adapters *registry.BaseRegistry[Adapter]
	order    []types.ProtocolTag
	metrics  *observability.Metrics
}

// NewDispatcher registers adapters keyed by their own Tag() and
// fixes the probe order to the order they're passed in.
func NewDispatcher(metrics *observability.Metrics, adapters ...Adapter) (*Dispatcher, error) {
	d := &Dispatcher{
		adapters: registry.NewBaseRegistry[Adapter](),
		metrics:  metrics,
	}
	for _, a := range adapters {
		if err := d.adapters.Register(string(a.Tag()), a); err != nil {
			return nil, fmt.Errorf("register adapter %s: %w", a.Tag(), err)
		}
		d.order = append(d.order, a.Tag())
	}
	return d, nil
}

// DetectProtocol runs each registered adapter's Parse in fixed order
// and returns the tag of the first that recognizes raw.
func (d *Dispatcher) DetectProtocol(raw []byte) (types.ProtocolTag, bool) {
	for _, tag := range d.order {
		a, ok := d.adapters.Get(string(tag))
		if !ok {
			continue
		}
		if _, recognized, _ := a.Parse(raw); recognized {
			return tag, true
		}
	}
	return "", false
}

// Convert parses and normalizes raw using the adapter registered for
// tag, producing a NormalizedRequest. traceID, if non-empty, overrides
// any trace ID embedded in the derived RequestMetadata.
func (d *Dispatcher) Convert(ctx context.Context, raw []byte, tag types.ProtocolTag, traceID string) (*types.NormalizedRequest, error) {
	if len(raw) > MaxPayloadBytes {
		return nil, &ParseError{Protocol: tag, Code: "payload_too_large", Msg: fmt.Sprintf("payload of %d bytes exceeds %d byte ceiling", len(raw), MaxPayloadBytes)}
	}

	a, ok := d.adapters.Get(string(tag))
	if !ok {
		return nil, &UnsupportedProtocolError{Tag: tag}
	}

	tracer := observability.GetTracer("github.com/meshgate/core/pkg/protocol")
	ctx, span := tracer.Start(ctx, "meshgate.protocol.convert", trace.WithAttributes(attribute.String(observability.AttrProtocol, string(tag))))
	defer span.End()
	_ = ctx

	overallStart := time.Now()

	parsed, recognized, parseErr := a.Parse(raw)
	if parseErr != nil {
		d.metrics.RecordNormalizeError(string(tag))
		return nil, parseErr
	}
	if !recognized {
		d.metrics.RecordNormalizeError(string(tag))
		return nil, &ParseError{Protocol: tag, Code: "not_recognized", Msg: "payload does not satisfy this protocol's required fields"}
	}

	norm, normErr := a.Normalize(parsed)
	if normErr != nil {
		d.metrics.RecordNormalizeError(string(tag))
		return nil, normErr
	}

	if traceID != "" {
		norm.Metadata.TraceID = traceID
	}

	total := time.Since(overallStart)
	if total > latencyWarnThreshold {
		slog.Warn("protocol conversion exceeded latency budget",
			"protocol", tag, "total", total, "budget", latencyWarnThreshold)
	}
	d.metrics.RecordRequest(string(tag), total)

	req := &types.NormalizedRequest{
		ID:         types.NewID(),
		CreatedAt:  time.Now(),
		Source:     tag,
		RawPayload: raw,
		Intent:     norm.Intent,
		Context:    norm.Context,
		Metadata:   norm.Metadata,
	}
	return req, nil
}
