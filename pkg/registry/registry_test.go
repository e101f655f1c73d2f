package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshgate/core/pkg/types"
)

// These tests exercise BaseRegistry with types.ToolDefinition, the
// element type cmd/meshgate's tool catalog actually instantiates it
// with (registry.NewBaseRegistry[types.ToolDefinition]()).

func testTool(id string) types.ToolDefinition {
	return types.ToolDefinition{ID: id, Name: id, Description: "a catalog test tool"}
}

func TestBaseRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid tool", id: "tool.read_file"},
		{name: "empty id", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewBaseRegistry[types.ToolDefinition]()
			err := r.Register(tt.id, testTool(tt.id))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseRegistryRegisterRejectsDuplicate(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()
	require.NoError(t, r.Register("tool.web_search", testTool("tool.web_search")))

	err := r.Register("tool.web_search", testTool("tool.web_search"))
	assert.Error(t, err)
}

func TestBaseRegistryGet(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()
	require.NoError(t, r.Register("tool.send_email", testTool("tool.send_email")))

	tool, ok := r.Get("tool.send_email")
	require.True(t, ok)
	assert.Equal(t, "tool.send_email", tool.ID)

	_, ok = r.Get("tool.does_not_exist")
	assert.False(t, ok)
}

func TestBaseRegistryList(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()
	assert.Empty(t, r.List())

	ids := []string{"tool.a", "tool.b", "tool.c"}
	for _, id := range ids {
		require.NoError(t, r.Register(id, testTool(id)))
	}

	listed := r.List()
	require.Len(t, listed, len(ids))

	seen := make(map[string]bool, len(listed))
	for _, tool := range listed {
		seen[tool.ID] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id], "expected %s in List()", id)
	}
}

func TestBaseRegistryRemove(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()
	require.NoError(t, r.Register("tool.a", testTool("tool.a")))

	require.NoError(t, r.Remove("tool.a"))
	_, ok := r.Get("tool.a")
	assert.False(t, ok)

	assert.Error(t, r.Remove("tool.a"), "removing an already-removed id must error")
}

func TestBaseRegistryCount(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()
	assert.Equal(t, 0, r.Count())

	for i, id := range []string{"tool.a", "tool.b"} {
		require.NoError(t, r.Register(id, testTool(id)))
		assert.Equal(t, i+1, r.Count())
	}
}

func TestBaseRegistryClear(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()
	require.NoError(t, r.Register("tool.a", testTool("tool.a")))
	require.NoError(t, r.Register("tool.b", testTool("tool.b")))

	r.Clear()

	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.List())
	_, ok := r.Get("tool.a")
	assert.False(t, ok)
}

func TestBaseRegistryConcurrentRegisterAndRead(t *testing.T) {
	r := NewBaseRegistry[types.ToolDefinition]()

	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		for i := 0; i < 100; i++ {
			id := fmt.Sprintf("tool.concurrent-%d", i)
			_ = r.Register(id, testTool(id))
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		for i := 0; i < 100; i++ {
			r.Get(fmt.Sprintf("tool.concurrent-%d", i))
			r.Count()
			r.List()
		}
	}()

	<-done
	<-done

	assert.Equal(t, 100, r.Count())
}
