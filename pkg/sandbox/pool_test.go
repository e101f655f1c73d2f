package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshgate/core/pkg/types"
)

// fakeDriver is an in-memory Driver that never touches a real process,
// so pool logic can be exercised deterministically.
type fakeDriver struct {
	mu          sync.Mutex
	created     int
	destroyed   int
	createDelay time.Duration
	createErr   error
	runFunc     func(tool types.ToolDefinition, args map[string]any) (*types.ExecutionResult, error)
	runDelay    time.Duration
}

type fakeHandle struct{ id int }

func (d *fakeDriver) Create(ctx context.Context, cfg types.SandboxConfig) (Handle, error) {
	if d.createDelay > 0 {
		time.Sleep(d.createDelay)
	}
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created++
	return &fakeHandle{id: d.created}, nil
}

func (d *fakeDriver) Run(ctx context.Context, handle Handle, tool types.ToolDefinition, args map[string]any, timeout time.Duration) (*types.ExecutionResult, error) {
	if d.runDelay > 0 {
		select {
		case <-time.After(d.runDelay):
		case <-time.After(timeout):
			return &types.ExecutionResult{Success: false, Err: &types.ExecutionError{Code: "TIMEOUT", Message: "tool execution exceeded " + timeout.String()}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.runFunc != nil {
		return d.runFunc(tool, args)
	}
	return &types.ExecutionResult{Success: true, Output: "ok"}, nil
}

func (d *fakeDriver) Destroy(ctx context.Context, handle Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed++
	return nil
}

var _ Driver = (*fakeDriver)(nil)

func testTool(id string) types.ToolDefinition {
	return types.ToolDefinition{ID: id, Name: id, Description: "a test tool"}
}

func TestPoolExecuteColdStartsOnFirstAcquire(t *testing.T) {
	driver := &fakeDriver{}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10}, nil, types.NewFakeClock(time.Now()))

	result, err := pool.Execute(context.Background(), testTool("demo.echo"), nil, time.Second)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, driver.created)

	stats := pool.Stats()
	assert.Equal(t, 1, stats.Ready)
	assert.Equal(t, 0, stats.Running)
}

func TestPoolExecuteHitsPoolOnSecondAcquire(t *testing.T) {
	driver := &fakeDriver{}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10}, nil, types.NewFakeClock(time.Now()))

	_, err := pool.Execute(context.Background(), testTool("demo.echo"), nil, time.Second)
	require.NoError(t, err)
	_, err = pool.Execute(context.Background(), testTool("demo.echo"), nil, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, driver.created, "second call should be a pool hit and must not trigger another Create")
}

func TestPoolExecuteFailureDestroysSandboxInsteadOfReleasing(t *testing.T) {
	driver := &fakeDriver{
		runFunc: func(tool types.ToolDefinition, args map[string]any) (*types.ExecutionResult, error) {
			return &types.ExecutionResult{Success: false, Err: &types.ExecutionError{Code: "TOOL_ERROR", Message: "boom"}}, nil
		},
	}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10}, nil, types.NewFakeClock(time.Now()))

	result, err := pool.Execute(context.Background(), testTool("demo.fail"), nil, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Success)

	stats := pool.Stats()
	assert.Equal(t, 0, stats.Ready, "a tool-level failure destroys the sandbox instead of returning it to the pool")
}

func TestPoolExecuteTimeoutDestroysSandbox(t *testing.T) {
	driver := &fakeDriver{runDelay: 50 * time.Millisecond}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10}, nil, types.NewFakeClock(time.Now()))

	result, err := pool.Execute(context.Background(), testTool("demo.slow"), nil, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, result.Err)
	assert.Equal(t, "TIMEOUT", result.Err.Code)

	stats := pool.Stats()
	assert.Equal(t, 0, stats.Ready, "a timed-out sandbox must never be returned to the ready pool")
	assert.Equal(t, 1, driver.destroyed)
}

func TestPoolExecuteWrapsConstructionFailureAsExecutionError(t *testing.T) {
	driver := &fakeDriver{createErr: errors.New("no binary found"), createDelay: 5 * time.Millisecond}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10}, nil, types.NewFakeClock(time.Now()))

	_, err := pool.Execute(context.Background(), testTool("demo.missing"), nil, time.Second)
	require.Error(t, err)

	var execErr *types.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SANDBOX_CREATE_FAILED", execErr.Code)
	assert.Contains(t, execErr.Message, "no binary found")
}

func TestPoolAcquireReturnsErrPoolExhaustedAtMaxInstances(t *testing.T) {
	driver := &fakeDriver{runDelay: 30 * time.Millisecond}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 1}, nil, types.NewFakeClock(time.Now()))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := pool.Execute(context.Background(), testTool("demo.busy"), nil, time.Second)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	exhausted := 0
	for _, err := range errs {
		if err == ErrPoolExhausted {
			exhausted++
		}
	}
	assert.Equal(t, 1, exhausted, "exactly one of two concurrent calls should find the pool at capacity")
}

func TestPoolTickReapsIdleSandboxes(t *testing.T) {
	driver := &fakeDriver{}
	clock := types.NewFakeClock(time.Now())
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10, IdleTimeoutMs: 1000}, nil, clock)

	_, err := pool.Execute(context.Background(), testTool("demo.echo"), nil, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, pool.Stats().Ready)

	clock.Advance(2 * time.Second)
	pool.tick(context.Background())

	assert.Equal(t, 0, pool.Stats().Ready)
	assert.Equal(t, 1, driver.destroyed)
}

func TestPoolTickWarmsUpToMinInstances(t *testing.T) {
	driver := &fakeDriver{}
	pool := NewPool(driver, PoolConfig{MinInstances: 3, MaxInstances: 10, IdleTimeoutMs: 60_000}, nil, types.NewFakeClock(time.Now()))

	pool.tick(context.Background())
	require.Eventually(t, func() bool {
		return pool.Stats().Ready == 3
	}, time.Second, time.Millisecond)
}

func TestPoolStopHaltsMaintenanceGoroutine(t *testing.T) {
	driver := &fakeDriver{}
	pool := NewPool(driver, PoolConfig{MinInstances: 0, MaxInstances: 10, WarmupIntervalMs: 5}, nil, types.NewFakeClock(time.Now()))
	pool.Start()
	pool.Stop()
}
