package embedder_test

import (
	"context"
	"testing"
	"time"

	"github.com/meshgate/core/pkg/embedder"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicProviderIsStable(t *testing.T) {
	p := embedder.NewDeterministic(32, "det-test")
	ctx := context.Background()

	a, err := p.Embed(ctx, "Action: read\nCategory: data_retrieval\nTarget: file\nParameters: {}")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "Action: read\nCategory: data_retrieval\nTarget: file\nParameters: {}")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestDeterministicProviderVariesByText(t *testing.T) {
	p := embedder.NewDeterministic(16, "det-test")
	ctx := context.Background()

	a, err := p.Embed(ctx, "text one")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "text two")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCacheTTLEviction(t *testing.T) {
	c := embedder.NewCache(10 * time.Millisecond)
	c.Set("k", []float32{1, 2, 3})

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	time.Sleep(15 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be evicted once past TTL")
}

func TestServiceEmbedIntentIsNormalizedAndCached(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(8, "det-test"), time.Minute, nil)
	ctx := context.Background()

	params := map[string]any{"path": "/tmp/x"}
	first, err := svc.EmbedIntent(ctx, types.CategoryDataRetrieval, "read", "file", params)
	require.NoError(t, err)

	var sumSq float64
	for _, x := range first.Vector {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)

	second, err := svc.EmbedIntent(ctx, types.CategoryDataRetrieval, "read", "file", params)
	require.NoError(t, err)
	assert.Equal(t, first.Vector, second.Vector)
}

func TestServiceSimilarity(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(8, "det-test"), time.Minute, nil)
	ctx := context.Background()

	a, err := svc.EmbedToolDescription(ctx, "file.read", "reads a file from disk")
	require.NoError(t, err)

	sim, err := svc.Similarity(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}
