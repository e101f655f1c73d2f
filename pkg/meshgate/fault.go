// Package meshgate holds the handful of cross-package primitives that
// every other package in this module shares: the common deadline
// error and the stable-code/message/suggestion fault shape every
// error kind embeds or wraps.
package meshgate

import "errors"

// ErrTimeout is returned whenever a public operation's deadline fires
// mid-execution, by both router and sandbox.
var ErrTimeout = errors.New("deadline exceeded")

// Fault is the stable, user-visible shape every error kind in this
// module carries: a machine-checkable Code, a human Message, and an
// optional Suggestion for how to recover.
type Fault struct {
	Code       string
	Message    string
	Suggestion string
}

func (f Fault) Error() string {
	if f.Suggestion != "" {
		return f.Message + " (" + f.Suggestion + ")"
	}
	return f.Message
}
