package sandbox

import "github.com/meshgate/core/pkg/meshgate"

// ErrPoolExhausted is returned by Execute when no sandbox is ready and
// creating a new one would exceed maxInstances.
var ErrPoolExhausted error = meshgate.Fault{
	Code:       "POOL_EXHAUSTED",
	Message:    "sandbox pool is at maxInstances and no sandbox is ready",
	Suggestion: "raise maxInstances or retry once a sandbox returns to the pool",
}
