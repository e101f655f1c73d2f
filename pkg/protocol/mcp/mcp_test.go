package mcp_test

import (
	"testing"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/protocol/mcp"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, a *mcp.Adapter, raw string) protocol.NormalizeResult {
	t.Helper()
	pr, ok, parseErr := a.Parse([]byte(raw))
	require.Nil(t, parseErr)
	require.True(t, ok)
	norm, normErr := a.Normalize(pr)
	require.Nil(t, normErr)
	return norm
}

func TestToolsCallProducesToolCallIntent(t *testing.T) {
	a := mcp.New()
	norm := parse(t, a, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"file.read","arguments":{"path":"/tmp/x"}}}`)

	assert.Equal(t, types.CategoryToolCall, norm.Intent.Category)
	assert.Equal(t, "file.read", norm.Intent.Action)
	assert.Equal(t, "tool", norm.Intent.Target)
	assert.Equal(t, 1.0, norm.Intent.Confidence)
	assert.Equal(t, "/tmp/x", norm.Intent.Parameters["path"])
}

func TestResourcesReadProducesDataRetrieval(t *testing.T) {
	a := mcp.New()
	norm := parse(t, a, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{}}`)

	assert.Equal(t, types.CategoryDataRetrieval, norm.Intent.Category)
	assert.Equal(t, 0.95, norm.Intent.Confidence)
}

func TestUnknownMethodFallsBackToConversation(t *testing.T) {
	a := mcp.New()
	norm := parse(t, a, `{"jsonrpc":"2.0","id":3,"method":"ping","params":{}}`)

	assert.Equal(t, types.CategoryConversation, norm.Intent.Category)
	require.Len(t, norm.Intent.Alternatives, 1)
	assert.Equal(t, "help", norm.Intent.Alternatives[0].Action)
}

func TestMissingJSONRPCVersionIsNotRecognized(t *testing.T) {
	a := mcp.New()
	_, ok, parseErr := a.Parse([]byte(`{"method":"tools/call"}`))
	assert.False(t, ok)
	assert.Nil(t, parseErr)
}

func TestMissingMethodProducesParseError(t *testing.T) {
	a := mcp.New()
	_, ok, parseErr := a.Parse([]byte(`{"jsonrpc":"2.0","id":1}`))
	assert.False(t, ok)
	require.NotNil(t, parseErr)
	assert.Equal(t, "MISSING_METHOD", parseErr.Code)
}

func TestTagIsMCP(t *testing.T) {
	assert.Equal(t, types.ProtocolMCP, mcp.New().Tag())
}
