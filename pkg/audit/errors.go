package audit

import "github.com/meshgate/core/pkg/meshgate"

// ErrHandlerError wraps a panic or error recovered from a subscriber
// handler. It is logged, never propagated — the stream must stay live
// even when one subscriber misbehaves.
type ErrHandlerError struct {
	meshgate.Fault
	Cause any
}

func newHandlerError(cause any) *ErrHandlerError {
	return &ErrHandlerError{
		Fault: meshgate.Fault{
			Code:    "AUDIT_HANDLER_ERROR",
			Message: "audit subscriber handler failed",
		},
		Cause: cause,
	}
}
