package v1_test

import (
	"testing"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/protocol/v1"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, a *v1.Adapter, raw string) protocol.NormalizeResult {
	t.Helper()
	pr, ok, parseErr := a.Parse([]byte(raw))
	require.Nil(t, parseErr)
	require.True(t, ok)
	norm, normErr := a.Normalize(pr)
	require.Nil(t, normErr)
	return norm
}

func TestAssistantToolCallProducesToolCallIntent(t *testing.T) {
	a := v1.New()
	norm := parse(t, a, `{"model":"gpt-4","messages":[
		{"role":"user","content":"what's the weather?"},
		{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"weather.get","arguments":"{\"city\":\"nyc\"}"}}]}
	]}`)

	assert.Equal(t, types.CategoryToolCall, norm.Intent.Category)
	assert.Equal(t, "weather.get", norm.Intent.Action)
	assert.Equal(t, "nyc", norm.Intent.Parameters["city"])
	require.Len(t, norm.Context.ConversationHistory, 2)
}

func TestPlainChatProducesConversation(t *testing.T) {
	a := v1.New()
	norm := parse(t, a, `{"model":"gpt-4","messages":[{"role":"user","content":"hello"}]}`)

	assert.Equal(t, types.CategoryConversation, norm.Intent.Category)
	assert.Equal(t, "hello", norm.Intent.Parameters["content"])
}

func TestToolsOfferedButUnusedAddsAlternative(t *testing.T) {
	a := v1.New()
	norm := parse(t, a, `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}],"tools":[{"type":"function"}]}`)

	require.Len(t, norm.Intent.Alternatives, 1)
	assert.Equal(t, "tool_call", norm.Intent.Alternatives[0].Action)
}

func TestLowTemperatureAddsDeterministicAlternative(t *testing.T) {
	a := v1.New()
	norm := parse(t, a, `{"model":"gpt-4","temperature":0.1,"messages":[{"role":"user","content":"hi"}]}`)

	found := false
	for _, alt := range norm.Intent.Alternatives {
		if alt.Action == "deterministic_completion" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEmptyMessagesIsNotRecognized(t *testing.T) {
	a := v1.New()
	_, ok, parseErr := a.Parse([]byte(`{"model":"gpt-4","messages":[]}`))
	assert.False(t, ok)
	assert.Nil(t, parseErr)
}
