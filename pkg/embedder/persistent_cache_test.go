package embedder_test

import (
	"testing"

	"github.com/meshgate/core/pkg/embedder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentCacheRoundTripsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	cache, err := embedder.NewPersistentCache(dir, false)
	require.NoError(t, err)

	cache.Set("tool|read_file", []float32{0.1, 0.2, 0.3})
	vec, ok := cache.Get("tool|read_file")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 1, cache.Len())

	reopened, err := embedder.NewPersistentCache(dir, false)
	require.NoError(t, err)

	vec, ok = reopened.Get("tool|read_file")
	require.True(t, ok, "entry should survive reopening the cache directory")
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestPersistentCacheMissReturnsFalse(t *testing.T) {
	cache, err := embedder.NewPersistentCache(t.TempDir(), false)
	require.NoError(t, err)

	_, ok := cache.Get("does-not-exist")
	assert.False(t, ok)
}

func TestPersistentCacheRejectsEmptyPath(t *testing.T) {
	_, err := embedder.NewPersistentCache("", false)
	assert.Error(t, err)
}

func TestServiceWithPersistentCacheCachesAcrossCalls(t *testing.T) {
	cache, err := embedder.NewPersistentCache(t.TempDir(), true)
	require.NoError(t, err)

	svc := embedder.NewServiceWithCache(embedder.NewDeterministic(8, "det-test"), cache, nil)

	first, err := svc.EmbedToolDescription(t.Context(), "file.read", "reads a file from disk")
	require.NoError(t, err)

	second, err := svc.EmbedToolDescription(t.Context(), "file.read", "reads a file from disk")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, 1, cache.Len())
}
