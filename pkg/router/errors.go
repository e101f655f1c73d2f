package router

import (
	"fmt"

	"github.com/meshgate/core/pkg/meshgate"
)

// ErrNoMatch is returned when no candidate tool clears minConfidence.
type ErrNoMatch struct {
	meshgate.Fault
	Alternatives []Candidate
}

func (e *ErrNoMatch) Error() string { return e.Fault.Error() }

func newNoMatch(alternatives []Candidate) *ErrNoMatch {
	return &ErrNoMatch{
		Fault: meshgate.Fault{
			Code:       "NO_MATCH",
			Message:    "no candidate tool met the confidence threshold",
			Suggestion: "widen the tool catalog or lower minConfidence",
		},
		Alternatives: alternatives,
	}
}

// RoutingError wraps a downstream embedding failure encountered while
// routing.
type RoutingError struct {
	meshgate.Fault
	Cause error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Fault.Error(), e.Cause)
}

func (e *RoutingError) Unwrap() error { return e.Cause }

func newRoutingError(cause error) *RoutingError {
	return &RoutingError{
		Fault: meshgate.Fault{
			Code:    "ROUTING_ERROR",
			Message: "routing failed while embedding the request or a candidate tool",
		},
		Cause: cause,
	}
}
