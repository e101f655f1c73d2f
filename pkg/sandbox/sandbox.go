// Package sandbox amortizes tool-execution cold starts through a
// bounded pool of isolated, driver-backed processes.
package sandbox

import (
	"time"

	"github.com/meshgate/core/pkg/types"
)

// Sandbox is one pool entry: a driver handle plus the bookkeeping the
// pool needs to apply its LRU acquire, idle reap, and eviction rules.
type Sandbox struct {
	ID             string
	State          types.SandboxState
	Config         types.SandboxConfig
	Handle         Handle
	CreatedAt      time.Time
	LastUsedAt     time.Time
	ExecutionCount int
}

// PoolConfig tunes the pool's sizing and maintenance cadence. Zero
// values are replaced with spec defaults by SetDefaults.
type PoolConfig struct {
	MinInstances     int
	MaxInstances     int
	IdleTimeoutMs    int
	WarmupIntervalMs int
	DefaultTimeoutMs int
}

func (c *PoolConfig) SetDefaults() {
	if c.MinInstances == 0 {
		c.MinInstances = 2
	}
	if c.MaxInstances == 0 {
		c.MaxInstances = 100
	}
	if c.IdleTimeoutMs == 0 {
		c.IdleTimeoutMs = 300_000
	}
	if c.WarmupIntervalMs == 0 {
		c.WarmupIntervalMs = 60_000
	}
	if c.DefaultTimeoutMs == 0 {
		c.DefaultTimeoutMs = 30_000
	}
}

// genericSandboxConfig is the low-resource config used for warm-pool
// sandboxes, which aren't tied to any one tool.
func genericSandboxConfig() types.SandboxConfig {
	return types.SandboxConfig{
		Image:     "generic-runtime",
		CPU:       0.1,
		MemoryMiB: 64,
		Network:   types.NetworkNone,
	}
}

// toolSandboxConfig is the per-tool config used when a pool miss
// forces a fresh sandbox creation.
func toolSandboxConfig(tool types.ToolDefinition, timeoutMs int) types.SandboxConfig {
	return types.SandboxConfig{
		Image:        "tool-" + tool.ID,
		CPU:          0.5,
		MemoryMiB:    256,
		DiskGiB:      1,
		Network:      types.NetworkRestricted,
		AllowedTools: []string{tool.ID},
		TimeoutMs:    timeoutMs,
	}
}

// coldStartWarnThreshold is the elapsed-creation-time above which
// Execute logs a warning but still proceeds, per spec.
const coldStartWarnThreshold = 500 * time.Millisecond
