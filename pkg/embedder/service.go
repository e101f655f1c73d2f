package embedder

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/types"
)

// cacheStore is satisfied by the in-memory Cache and by PersistentCache,
// letting Service use either interchangeably.
type cacheStore interface {
	Get(key string) ([]float32, bool)
	Set(key string, vector []float32)
	Len() int
}

// Service embeds intents and tool descriptions, caching by canonical
// key and wrapping generation in a trace span.
type Service struct {
	provider Provider
	cache    cacheStore
	metrics  *observability.Metrics
}

// NewService returns a Service backed by provider, caching embeddings
// in memory for ttl. metrics may be nil.
func NewService(provider Provider, ttl time.Duration, metrics *observability.Metrics) *Service {
	return NewServiceWithCache(provider, NewCache(ttl), metrics)
}

// NewServiceWithCache returns a Service backed by provider, using cache
// for embedding storage. Use this to back the cache with a
// PersistentCache instead of the default in-memory Cache. metrics may
// be nil.
func NewServiceWithCache(provider Provider, cache cacheStore, metrics *observability.Metrics) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		metrics:  metrics,
	}
}

// EmbedIntent returns the cached or freshly generated embedding for an
// intent, keyed by category|action|target|canonical(parameters).
func (s *Service) EmbedIntent(ctx context.Context, category types.IntentCategory, action, target string, parameters map[string]any) (*types.Embedding, error) {
	key := intentCacheKey(category, action, target, parameters)
	text := intentText(category, action, target, parameters)
	return s.embed(ctx, key, text)
}

// EmbedToolDescription returns the cached or freshly generated
// embedding for a tool's name and description, keyed by tool|name.
func (s *Service) EmbedToolDescription(ctx context.Context, name, description string) (*types.Embedding, error) {
	key := toolCacheKey(name)
	text := toolText(name, description)
	return s.embed(ctx, key, text)
}

func (s *Service) embed(ctx context.Context, key, text string) (*types.Embedding, error) {
	tracer := observability.GetTracer("github.com/meshgate/core/pkg/embedder")
	ctx, span := tracer.Start(ctx, observability.SpanEmbed, trace.WithAttributes(attribute.String("cache_key", key)))
	defer span.End()

	if vec, ok := s.cache.Get(key); ok {
		s.metrics.RecordEmbedCacheHit()
		return &types.Embedding{Vector: vec, Model: s.provider.Model()}, nil
	}

	start := time.Now()
	raw, err := s.provider.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embed: %w", err)
	}
	s.metrics.RecordEmbedCacheMiss(time.Since(start))

	vec := types.L2Normalize(raw)
	s.cache.Set(key, vec)

	return &types.Embedding{Vector: vec, Model: s.provider.Model()}, nil
}

// Similarity computes the cosine similarity between two embeddings'
// vectors.
func (s *Service) Similarity(a, b *types.Embedding) (float64, error) {
	return types.CosineSimilarity(a.Vector, b.Vector)
}

// Dimension reports the underlying provider's vector dimension.
func (s *Service) Dimension() int { return s.provider.Dimension() }
