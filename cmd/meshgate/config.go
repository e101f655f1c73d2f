package main

import (
	"fmt"

	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/router"
	"github.com/meshgate/core/pkg/sandbox"
)

// Config is the demo binary's process configuration. The core itself
// never loads configuration from files or remote stores (that loader is
// out of scope); this struct only exists to give the demo command's
// tunables a SetDefaults/Validate pair, the way config.EmbedderProviderConfig
// does it in the teacher repo.
type Config struct {
	Embedding     EmbeddingConfig        `yaml:"embedding,omitempty" json:"embedding,omitempty"`
	Router        router.Config          `yaml:"router,omitempty" json:"router,omitempty"`
	Sandbox       sandbox.PoolConfig     `yaml:"sandbox,omitempty" json:"sandbox,omitempty"`
	Audit         AuditConfig            `yaml:"audit,omitempty" json:"audit,omitempty"`
	Observability observability.Config   `yaml:"observability,omitempty" json:"observability,omitempty"`
	CredentialsFile string               `yaml:"credentialsFile,omitempty" json:"credentialsFile,omitempty"`
	Port          int                    `yaml:"port,omitempty" json:"port,omitempty"`
}

// EmbeddingConfig configures the embedding provider and cache used by
// the router.
type EmbeddingConfig struct {
	Model            string `yaml:"model,omitempty" json:"model,omitempty"`
	Dimensions       int    `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	CacheTTLMs       int    `yaml:"cacheTtlMs,omitempty" json:"cacheTtlMs,omitempty"`
	CachePersistPath string `yaml:"cachePersistPath,omitempty" json:"cachePersistPath,omitempty"`
	CacheCompress    bool   `yaml:"cacheCompress,omitempty" json:"cacheCompress,omitempty"`
}

// AuditConfig configures the audit stream's buffering and flush cadence.
type AuditConfig struct {
	BufferSize      int `yaml:"bufferSize,omitempty" json:"bufferSize,omitempty"`
	FlushIntervalMs int `yaml:"flushIntervalMs,omitempty" json:"flushIntervalMs,omitempty"`
}

// SetDefaults fills every zero-valued tunable with the defaults named in
// spec.md §6.
func (c *Config) SetDefaults() {
	if c.Embedding.Model == "" {
		c.Embedding.Model = "deterministic-v1"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.CacheTTLMs == 0 {
		c.Embedding.CacheTTLMs = 300_000
	}
	c.Router.SetDefaults()
	c.Sandbox.SetDefaults()
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 100
	}
	if c.Audit.FlushIntervalMs == 0 {
		c.Audit.FlushIntervalMs = 5000
	}
	if c.Port == 0 {
		c.Port = 8080
	}
}

// Validate rejects configurations that would misbehave rather than
// merely underperform.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Router.SimilarityThreshold < 0 || c.Router.SimilarityThreshold > 1 {
		return fmt.Errorf("router.similarityThreshold must be within [0,1]")
	}
	if c.Router.MinConfidence < 0 || c.Router.MinConfidence > 1 {
		return fmt.Errorf("router.minConfidence must be within [0,1]")
	}
	if c.Sandbox.MinInstances > c.Sandbox.MaxInstances {
		return fmt.Errorf("sandbox.minInstances must not exceed sandbox.maxInstances")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be within (0,65535]")
	}
	return nil
}
