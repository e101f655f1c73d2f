package ucp_test

import (
	"testing"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/protocol/ucp"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, a *ucp.Adapter, raw string) protocol.NormalizeResult {
	t.Helper()
	pr, ok, parseErr := a.Parse([]byte(raw))
	require.Nil(t, parseErr)
	require.True(t, ok)
	norm, normErr := a.Normalize(pr)
	require.Nil(t, normErr)
	return norm
}

func TestReadOperationProducesDataRetrieval(t *testing.T) {
	a := ucp.New()
	norm := parse(t, a, `{"context_id":"ctx1","operation":"read","target":"doc-1","parameters":{"section":"intro"}}`)

	assert.Equal(t, types.CategoryDataRetrieval, norm.Intent.Category)
	assert.Equal(t, "doc-1", norm.Intent.Target)
	assert.Equal(t, "intro", norm.Intent.Parameters["section"])
	assert.Equal(t, "ctx1", norm.Context.SessionID)
}

func TestWriteOperationProducesActionExecution(t *testing.T) {
	a := ucp.New()
	norm := parse(t, a, `{"context_id":"ctx1","operation":"write"}`)
	assert.Equal(t, types.CategoryActionExecution, norm.Intent.Category)
}

func TestAnalyzeOperationProducesAnalysis(t *testing.T) {
	a := ucp.New()
	norm := parse(t, a, `{"context_id":"ctx1","operation":"analyze"}`)
	assert.Equal(t, types.CategoryAnalysis, norm.Intent.Category)
}

func TestGenerateOperationProducesCodeGeneration(t *testing.T) {
	a := ucp.New()
	norm := parse(t, a, `{"context_id":"ctx1","operation":"generate"}`)
	assert.Equal(t, types.CategoryCodeGeneration, norm.Intent.Category)
}

func TestUnknownOperationFallsBackToConversation(t *testing.T) {
	a := ucp.New()
	norm := parse(t, a, `{"context_id":"ctx1","operation":"teleport"}`)
	assert.Equal(t, types.CategoryConversation, norm.Intent.Category)
	require.Len(t, norm.Intent.Alternatives, 1)
}

func TestMissingOperationIsNotRecognized(t *testing.T) {
	a := ucp.New()
	_, ok, parseErr := a.Parse([]byte(`{"context_id":"ctx1"}`))
	assert.False(t, ok)
	assert.Nil(t, parseErr)
}
