package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetDefaultsFillsEveryTunable(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 300_000, cfg.Embedding.CacheTTLMs)
	assert.Equal(t, 0.85, cfg.Router.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Sandbox.MinInstances)
	assert.Equal(t, 100, cfg.Audit.BufferSize)
	assert.Equal(t, 8080, cfg.Port)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsInvertedSandboxBounds(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Sandbox.MinInstances = 10
	cfg.Sandbox.MaxInstances = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minInstances")
}

func TestConfigValidateRejectsOutOfRangeSimilarityThreshold(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Router.SimilarityThreshold = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarityThreshold")
}

func TestConfigValidateRejectsInvalidPort(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}
