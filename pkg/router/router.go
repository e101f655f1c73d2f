// Package router selects the best-matching tool for a normalized
// intent by cosine similarity over embeddings, adjusted by optional
// cost/latency preferences, within a fixed latency budget.
package router

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshgate/core/pkg/embedder"
	"github.com/meshgate/core/pkg/meshgate"
	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/registry"
	"github.com/meshgate/core/pkg/types"
)

// Config tunes the routing algorithm. SetDefaults fills unset zero
// values with the defaults from spec §4.3.
type Config struct {
	SimilarityThreshold float64
	MinConfidence       float64
	MaxAlternatives     int
	CostOptimization    bool
	LatencyOptimization bool
	Timeout             time.Duration
}

func (c *Config) SetDefaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.85
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.70
	}
	if c.MaxAlternatives == 0 {
		c.MaxAlternatives = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 50 * time.Millisecond
	}
}

// Candidate is one tool considered during routing, carrying both its
// raw similarity and its cost/latency-adjusted confidence.
type Candidate struct {
	Tool                   types.ToolDefinition
	Similarity             float64
	Confidence             float64
	AdjustedByOptimization bool
}

// Router implements the intent-to-tool selection algorithm.
type Router struct {
	embedder *embedder.Service
	metrics  *observability.Metrics
	cfg      Config
}

// New builds a Router. cfg is copied and defaulted.
func New(svc *embedder.Service, metrics *observability.Metrics, cfg Config) *Router {
	cfg.SetDefaults()
	return &Router{embedder: svc, metrics: metrics, cfg: cfg}
}

func estimatedLatencyMs(tool types.ToolDefinition) float64 {
	if tool.LatencyEstimateMs != nil {
		return *tool.LatencyEstimateMs
	}
	return 0
}

func estimatedCost(tool types.ToolDefinition) float64 {
	if tool.CostEstimate != nil {
		return *tool.CostEstimate
	}
	return 0
}

// Route selects a tool for req from catalog, within the configured
// deadline (50 ms by default).
func (r *Router) Route(ctx context.Context, req *types.NormalizedRequest, catalog *registry.BaseRegistry[types.ToolDefinition]) (*types.RoutingDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	tracer := observability.GetTracer("github.com/meshgate/core/pkg/router")
	ctx, span := tracer.Start(ctx, observability.SpanRoute, trace.WithAttributes(attribute.String(observability.AttrRequestID, req.ID)))
	defer span.End()

	intentEmbedding, err := r.embedder.EmbedIntent(ctx, req.Intent.Category, req.Intent.Action, req.Intent.Target, req.Intent.Parameters)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	if ctx.Err() != nil {
		return nil, meshgate.ErrTimeout
	}

	tools := catalog.List()
	candidates := make([]Candidate, 0, len(tools))
	for _, tool := range tools {
		toolEmbedding, err := r.embedder.EmbedToolDescription(ctx, tool.Name, tool.Description)
		if err != nil {
			return nil, r.fail(ctx, err)
		}
		similarity, err := r.embedder.Similarity(intentEmbedding, toolEmbedding)
		if err != nil {
			return nil, r.fail(ctx, err)
		}
		candidates = append(candidates, Candidate{Tool: tool, Similarity: similarity})
		if ctx.Err() != nil {
			return nil, meshgate.ErrTimeout
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })

	passed := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= r.cfg.SimilarityThreshold {
			passed = append(passed, c)
		}
	}

	for i := range passed {
		c := &passed[i]
		confidence := c.Similarity
		if r.cfg.CostOptimization && c.Tool.CostEstimate != nil {
			confidence *= 0.9 + 0.1*(1/(1+estimatedCost(c.Tool)/100))
			c.AdjustedByOptimization = true
		}
		if r.cfg.LatencyOptimization && c.Tool.LatencyEstimateMs != nil {
			confidence *= 0.9 + 0.1*(1/(1+estimatedLatencyMs(c.Tool)/1000))
			c.AdjustedByOptimization = true
		}
		c.Confidence = clamp01(confidence)
	}

	qualifying := make([]Candidate, 0, len(passed))
	for _, c := range passed {
		if c.Confidence >= r.cfg.MinConfidence {
			qualifying = append(qualifying, c)
		}
	}

	if len(qualifying) == 0 {
		alts := candidates
		if len(alts) > 3 {
			alts = alts[:3]
		}
		r.metrics.RecordRouteDecision("no_match", time.Since(start), 0)
		return nil, newNoMatch(alts)
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		a, b := qualifying[i], qualifying[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if al, bl := estimatedLatencyMs(a.Tool), estimatedLatencyMs(b.Tool); al != bl {
			return al < bl
		}
		if ac, bc := estimatedCost(a.Tool), estimatedCost(b.Tool); ac != bc {
			return ac < bc
		}
		return a.Tool.ID < b.Tool.ID
	})

	selected := qualifying[0]

	fallbackN := r.cfg.MaxAlternatives
	if remaining := len(qualifying) - 1; fallbackN > remaining {
		fallbackN = remaining
	}
	fallbacks := make([]types.ToolDefinition, 0, fallbackN)
	for _, c := range qualifying[1 : 1+fallbackN] {
		fallbacks = append(fallbacks, c.Tool)
	}

	requiresApproval := selected.Confidence < 0.8
	var approvalReason string
	if requiresApproval {
		approvalReason = fmt.Sprintf("selected tool confidence %.1f%% is below the 80%% approval threshold", selected.Confidence*100)
	}

	decision := &types.RoutingDecision{
		RequestID:        req.ID,
		SelectedTool:     selected.Tool,
		Confidence:       selected.Confidence,
		Reasoning:        reasoning(selected),
		Fallbacks:        fallbacks,
		EstimatedLatency: time.Duration(estimatedLatencyMs(selected.Tool)) * time.Millisecond,
		EstimatedCost:    estimatedCost(selected.Tool),
		RequiresApproval: requiresApproval,
		ApprovalReason:   approvalReason,
	}

	r.metrics.RecordRouteDecision("selected", time.Since(start), selected.Confidence)
	return decision, nil
}

func (r *Router) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return meshgate.ErrTimeout
	}
	return newRoutingError(err)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func reasoning(c Candidate) string {
	s := fmt.Sprintf("similarity %.0f%%, cost %.4f, latency %.0fms", c.Similarity*100, estimatedCost(c.Tool), estimatedLatencyMs(c.Tool))
	if c.AdjustedByOptimization {
		s += "; confidence reduced by cost/latency optimization"
	}
	return s
}
