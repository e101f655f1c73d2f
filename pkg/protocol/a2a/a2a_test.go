package a2a_test

import (
	"testing"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/protocol/a2a"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, a *a2a.Adapter, raw string) protocol.NormalizeResult {
	t.Helper()
	pr, ok, parseErr := a.Parse([]byte(raw))
	require.Nil(t, parseErr)
	require.True(t, ok)
	norm, normErr := a.Normalize(pr)
	require.Nil(t, normErr)
	return norm
}

func TestTaskProducesActionExecution(t *testing.T) {
	a := a2a.New()
	norm := parse(t, a, `{"id":"1","sender":"agent-a","recipient":"agent-b","task":{"id":"t1","name":"deploy","params":{"env":"prod"}}}`)

	assert.Equal(t, types.CategoryActionExecution, norm.Intent.Category)
	assert.Equal(t, "deploy", norm.Intent.Action)
	assert.Equal(t, "t1", norm.Intent.Target)
	assert.Equal(t, "prod", norm.Intent.Parameters["env"])
}

func TestRequestMessageProducesInformationRequest(t *testing.T) {
	a := a2a.New()
	norm := parse(t, a, `{"id":"2","sender":"agent-a","recipient":"agent-b","message":{"type":"request","role":"user","text":"what's the status?"}}`)

	assert.Equal(t, types.CategoryInformationRequest, norm.Intent.Category)
	require.Len(t, norm.Context.ConversationHistory, 1)
	assert.Equal(t, "what's the status?", norm.Context.ConversationHistory[0].Content)
}

func TestPlainMessageProducesConversation(t *testing.T) {
	a := a2a.New()
	norm := parse(t, a, `{"id":"3","sender":"agent-a","recipient":"agent-b","message":{"type":"chat","role":"agent","text":"hi"}}`)

	assert.Equal(t, types.CategoryConversation, norm.Intent.Category)
}

func TestMissingFieldsIsNotRecognized(t *testing.T) {
	a := a2a.New()
	_, ok, parseErr := a.Parse([]byte(`{"id":"4"}`))
	assert.False(t, ok)
	assert.Nil(t, parseErr)
}

func TestNoTaskOrMessageOffersDiscoveryAlternative(t *testing.T) {
	a := a2a.New()
	norm := parse(t, a, `{"id":"5","sender":"agent-a","recipient":"agent-b"}`)

	assert.Equal(t, types.CategoryConversation, norm.Intent.Category)
	require.Len(t, norm.Intent.Alternatives, 1)
	assert.Equal(t, "a2a_discovery", norm.Intent.Alternatives[0].Action)
}
