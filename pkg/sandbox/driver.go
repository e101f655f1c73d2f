package sandbox

import (
	"context"
	"time"

	"github.com/meshgate/core/pkg/types"
)

// Handle is an opaque, driver-specific reference to a running sandbox
// process. Only the driver that created it may interpret it.
type Handle any

// Driver is the pluggable outbound collaborator that gives a sandbox
// real process-level isolation. The pool never talks to an OS process
// directly; it only calls Create/Run/Destroy.
type Driver interface {
	// Create launches a new sandboxed process matching cfg and returns
	// a handle to it. The caller measures elapsed time as cold start.
	Create(ctx context.Context, cfg types.SandboxConfig) (Handle, error)

	// Run dispatches one tool invocation into an already-created
	// sandbox and waits up to timeout for it to finish.
	Run(ctx context.Context, handle Handle, tool types.ToolDefinition, args map[string]any, timeout time.Duration) (*types.ExecutionResult, error)

	// Destroy tears down the process behind handle. Called on any
	// failure path and on idle reap; never returns a destroyed handle
	// to the pool.
	Destroy(ctx context.Context, handle Handle) error
}
