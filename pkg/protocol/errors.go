package protocol

import (
	"errors"
	"fmt"

	"github.com/meshgate/core/pkg/types"
)

// ErrUnsupportedProtocol is returned by Convert when no adapter is
// registered for the given tag.
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// ParseError reports that a raw payload violated its protocol's
// required shape.
type ParseError struct {
	Protocol types.ProtocolTag
	Code     string
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s/%s]: %s", e.Protocol, e.Code, e.Msg)
}

// NormalizeError reports that a successfully parsed payload could not
// be normalized into an Intent.
type NormalizeError struct {
	Protocol types.ProtocolTag
	Code     string
	Msg      string
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize error [%s/%s]: %s", e.Protocol, e.Code, e.Msg)
}

// UnsupportedProtocolError names the unknown tag that Convert was
// asked to handle.
type UnsupportedProtocolError struct {
	Tag types.ProtocolTag
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedProtocol, e.Tag)
}

func (e *UnsupportedProtocolError) Unwrap() error { return ErrUnsupportedProtocol }
