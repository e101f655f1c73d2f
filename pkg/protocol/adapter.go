// Package protocol turns protocol-tagged opaque payloads into
// NormalizedRequest values. Each wire format (mcp, a2a, ucp, acp, v1,
// v2) is implemented by its own subpackage behind the Adapter
// interface; Dispatcher holds the registered set and performs
// detection and conversion.
package protocol

import (
	"time"

	"github.com/meshgate/core/pkg/types"
)

// ParseResult is the typed value an adapter's Parse step hands to
// Normalize: the protocol-specific parsed value (opaque to the
// dispatcher), plus metadata about the parse itself.
type ParseResult struct {
	Protocol  types.ProtocolTag
	StartedAt time.Time
	RawBytes  int
	Parsed    any
}

// NormalizeResult is the typed value an adapter's Normalize step
// returns: the Intent plus the context/metadata needed to build a
// NormalizedRequest, and the durations spent in each phase.
type NormalizeResult struct {
	Intent          types.Intent
	Context         types.RequestContext
	Metadata        types.RequestMetadata
	ParseDuration   time.Duration
	NormalizeDuration time.Duration
}

// Adapter implements one protocol's parse+normalize pair. Parse and
// Normalize never panic or return a bare error for malformed input;
// they report failure through the (ok bool) return so the Dispatcher
// can translate it into the correct typed error at the boundary.
type Adapter interface {
	// Tag identifies which protocol this adapter implements.
	Tag() types.ProtocolTag

	// Parse validates raw against this protocol's mandatory fields. ok
	// is false when raw does not look like this protocol at all (used
	// by DetectProtocol to try the next adapter); parseErr is set when
	// raw looks like this protocol but violates a required field.
	Parse(raw []byte) (result ParseResult, ok bool, parseErr *ParseError)

	// Normalize consumes a successful ParseResult and produces a
	// NormalizeResult. normErr is set when the parsed value cannot be
	// classified into an Intent.
	Normalize(parsed ParseResult) (result NormalizeResult, normErr *NormalizeError)
}
