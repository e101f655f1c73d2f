package protocol_test

import (
	"context"
	"testing"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/protocol/a2a"
	"github.com/meshgate/core/pkg/protocol/acp"
	"github.com/meshgate/core/pkg/protocol/mcp"
	"github.com/meshgate/core/pkg/protocol/ucp"
	"github.com/meshgate/core/pkg/protocol/v1"
	"github.com/meshgate/core/pkg/protocol/v2"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *protocol.Dispatcher {
	t.Helper()
	d, err := protocol.NewDispatcher(nil, mcp.New(), a2a.New(), ucp.New(), acp.New(), v1.New(), v2.New())
	require.NoError(t, err)
	return d
}

func TestDetectProtocolPicksFirstMatchingAdapter(t *testing.T) {
	d := newDispatcher(t)

	tag, ok := d.DetectProtocol([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`))
	require.True(t, ok)
	assert.Equal(t, types.ProtocolMCP, tag)

	tag, ok = d.DetectProtocol([]byte(`{"context_id":"c1","operation":"read"}`))
	require.True(t, ok)
	assert.Equal(t, types.ProtocolUCP, tag)
}

func TestDetectProtocolReturnsFalseForUnrecognized(t *testing.T) {
	d := newDispatcher(t)
	_, ok := d.DetectProtocol([]byte(`{"garbage":true}`))
	assert.False(t, ok)
}

func TestConvertBuildsNormalizedRequest(t *testing.T) {
	d := newDispatcher(t)
	raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"file.read","arguments":{}}}`)

	req, err := d.Convert(context.Background(), raw, types.ProtocolMCP, "trace-123")
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolMCP, req.Source)
	assert.Equal(t, "trace-123", req.Metadata.TraceID)
	assert.Equal(t, types.CategoryToolCall, req.Intent.Category)
	assert.NotEmpty(t, req.ID)
}

func TestConvertUnsupportedProtocolReturnsTypedError(t *testing.T) {
	d := newDispatcher(t)
	_, err := d.Convert(context.Background(), []byte(`{}`), types.ProtocolTag("nope"), "")

	var unsupported *protocol.UnsupportedProtocolError
	require.ErrorAs(t, err, &unsupported)
}

func TestConvertOversizedPayloadReturnsParseError(t *testing.T) {
	d := newDispatcher(t)
	big := make([]byte, protocol.MaxPayloadBytes+1)
	_, err := d.Convert(context.Background(), big, types.ProtocolMCP, "")

	var parseErr *protocol.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "payload_too_large", parseErr.Code)
}
