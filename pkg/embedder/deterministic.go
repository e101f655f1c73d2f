package embedder

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// Deterministic is a reference Provider: it seeds math/rand with the
// FNV-1a hash of the input text and draws a dimension-length vector
// from it. The same text always yields the same raw vector, which is
// sufficient for routing self-consistency and for tests, without
// depending on any external embedding model.
type Deterministic struct {
	dimension int
	model     string
}

// NewDeterministic returns a Deterministic provider producing vectors
// of the given dimension. model is a label only, reported by Model().
func NewDeterministic(dimension int, model string) *Deterministic {
	if dimension <= 0 {
		dimension = 64
	}
	if model == "" {
		model = "deterministic-v1"
	}
	return &Deterministic{dimension: dimension, model: model}
}

func (d *Deterministic) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, d.dimension)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return vec, nil
}

func (d *Deterministic) Dimension() int { return d.dimension }
func (d *Deterministic) Model() string  { return d.model }
