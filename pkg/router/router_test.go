package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/meshgate/core/pkg/embedder"
	"github.com/meshgate/core/pkg/registry"
	"github.com/meshgate/core/pkg/router"
	"github.com/meshgate/core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogWith(t *testing.T, tools ...types.ToolDefinition) *registry.BaseRegistry[types.ToolDefinition] {
	t.Helper()
	cat := registry.NewBaseRegistry[types.ToolDefinition]()
	for _, tool := range tools {
		require.NoError(t, cat.Register(tool.ID, tool))
	}
	return cat
}

func newRequest(action, target string) *types.NormalizedRequest {
	return &types.NormalizedRequest{
		ID: "req-1",
		Intent: types.Intent{
			Category: types.CategoryToolCall,
			Action:   action,
			Target:   target,
		},
	}
}

func TestRouteSelectsSoleQualifyingTool(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(16, "det-test"), time.Minute, nil)
	r := router.New(svc, nil, router.Config{SimilarityThreshold: -1, MinConfidence: -1})

	cat := catalogWith(t, types.ToolDefinition{ID: "file.read", Name: "file.read", Description: "reads a file from disk"})
	req := newRequest("read", "file.read")

	decision, err := r.Route(context.Background(), req, cat)
	require.NoError(t, err)
	assert.Equal(t, "file.read", decision.SelectedTool.ID)
	assert.NotEmpty(t, decision.Reasoning)
	assert.GreaterOrEqual(t, decision.Confidence, 0.0)
	assert.LessOrEqual(t, decision.Confidence, 1.0)
}

func TestRouteNoMatchWhenAllBelowConfidence(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(16, "det-test"), time.Minute, nil)
	r := router.New(svc, nil, router.Config{SimilarityThreshold: 2, MinConfidence: 2})

	cat := catalogWith(t, types.ToolDefinition{ID: "file.read", Name: "file.read", Description: "reads a file"})
	req := newRequest("read", "file.read")

	_, err := r.Route(context.Background(), req, cat)
	require.Error(t, err)

	var noMatch *router.ErrNoMatch
	require.ErrorAs(t, err, &noMatch)
}

func TestRouteRequiresApprovalBelowEightyPercent(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(16, "det-test"), time.Minute, nil)
	r := router.New(svc, nil, router.Config{SimilarityThreshold: -1, MinConfidence: -1})

	cat := catalogWith(t, types.ToolDefinition{ID: "file.read", Name: "file.read", Description: "reads a file from disk"})
	req := newRequest("read", "file.read")

	decision, err := r.Route(context.Background(), req, cat)
	require.NoError(t, err)
	if decision.Confidence < 0.8 {
		assert.True(t, decision.RequiresApproval)
		assert.NotEmpty(t, decision.ApprovalReason)
	} else {
		assert.False(t, decision.RequiresApproval)
	}
}

func TestRouteFallbacksCappedAtMaxAlternatives(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(16, "det-test"), time.Minute, nil)
	r := router.New(svc, nil, router.Config{SimilarityThreshold: -1, MinConfidence: -1, MaxAlternatives: 2})

	cat := catalogWith(t,
		types.ToolDefinition{ID: "a", Name: "a", Description: "tool a"},
		types.ToolDefinition{ID: "b", Name: "b", Description: "tool b"},
		types.ToolDefinition{ID: "c", Name: "c", Description: "tool c"},
		types.ToolDefinition{ID: "d", Name: "d", Description: "tool d"},
	)
	req := newRequest("do", "a")

	decision, err := r.Route(context.Background(), req, cat)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(decision.Fallbacks), 2)
}

func TestRouteTimeoutWhenDeadlineAlreadyExpired(t *testing.T) {
	svc := embedder.NewService(embedder.NewDeterministic(16, "det-test"), time.Minute, nil)
	r := router.New(svc, nil, router.Config{Timeout: time.Nanosecond})

	cat := catalogWith(t, types.ToolDefinition{ID: "a", Name: "a", Description: "tool a"})
	req := newRequest("do", "a")

	_, err := r.Route(context.Background(), req, cat)
	require.Error(t, err)
}
