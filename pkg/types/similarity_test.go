package types_test

import (
	"testing"

	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := types.L2Normalize([]float32{1, 2, 3})
	sim, err := types.CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := types.L2Normalize([]float32{1, 0, 0})
	b := types.L2Normalize([]float32{0, 1, 0})
	ab, err := types.CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := types.CosineSimilarity(b, a)
	require.NoError(t, err)
	assert.InDelta(t, ab, ba, 1e-9)
	assert.InDelta(t, 0.0, ab, 1e-9)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := types.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestL2NormalizeUnitNorm(t *testing.T) {
	v := types.L2Normalize([]float32{3, 4})
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	a := types.Canonicalize(map[string]any{"b": 1, "a": 2})
	b := types.Canonicalize(map[string]any{"a": 2, "b": 1})
	assert.Equal(t, a, b)
	assert.Equal(t, `{"a":2,"b":1}`, a)
}
