package sandbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/types"
)

const hitRateAlpha = 0.1

// Stats is the plain in-process view of the pool's aggregate counters,
// mirrored onto Prometheus instruments when metrics are enabled.
type Stats struct {
	Ready          int
	Running        int
	TotalCreated   int
	TotalDestroyed int
	ColdStartEMAMs float64
	HitRateEMA     float64
}

// Pool is the single critical section guarding the ready set and
// aggregate counters. Driver calls (Create/Run/Destroy) always happen
// outside the lock.
type Pool struct {
	driver  Driver
	cfg     PoolConfig
	metrics *observability.Metrics
	clock   types.Clock

	mu             sync.Mutex
	ready          []*Sandbox
	running        int
	totalCreated   int
	totalDestroyed int
	coldStartEMAMs float64
	hitRateEMA     float64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPool constructs a Pool. metrics may be nil. clock may be nil, in
// which case types.RealClock{} is used.
func NewPool(driver Driver, cfg PoolConfig, metrics *observability.Metrics, clock types.Clock) *Pool {
	cfg.SetDefaults()
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Pool{
		driver:  driver,
		cfg:     cfg,
		metrics: metrics,
		clock:   clock,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the maintenance goroutine, firing tick every
// WarmupIntervalMs until Stop is called.
func (p *Pool) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(time.Duration(p.cfg.WarmupIntervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.tick(context.Background())
			}
		}
	}()
}

// Stop halts the maintenance goroutine and waits for it to exit.
func (p *Pool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// Stats returns a snapshot of the pool's aggregate counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Ready:          len(p.ready),
		Running:        p.running,
		TotalCreated:   p.totalCreated,
		TotalDestroyed: p.totalDestroyed,
		ColdStartEMAMs: p.coldStartEMAMs,
		HitRateEMA:     p.hitRateEMA,
	}
}

// Execute acquires a sandbox (pool hit or cold-started miss), runs
// tool in it, and returns it to the pool on success. timeout defaults
// to 30s when zero.
func (p *Pool) Execute(ctx context.Context, tool types.ToolDefinition, args map[string]any, timeout time.Duration) (*types.ExecutionResult, error) {
	if timeout == 0 {
		timeout = time.Duration(p.cfg.DefaultTimeoutMs) * time.Millisecond
	}

	tracer := observability.GetTracer("github.com/meshgate/core/pkg/sandbox")
	ctx, span := tracer.Start(ctx, observability.SpanToolExecution, trace.WithAttributes(attribute.String(observability.AttrToolName, tool.Name)))
	defer span.End()

	acquireStart := p.clock.Now()
	sb, coldStartMs, err := p.acquire(ctx, tool)
	if err != nil {
		p.metrics.RecordPoolAcquire("error", p.clock.Now().Sub(acquireStart))
		if coldStartMs > 0 {
			p.metrics.RecordColdStart(time.Duration(coldStartMs) * time.Millisecond)
		}
		return nil, err
	}
	hit := coldStartMs == 0
	p.recordAcquireOutcome(hit)
	if hit {
		p.metrics.RecordPoolAcquire("hit", p.clock.Now().Sub(acquireStart))
	} else {
		p.metrics.RecordPoolAcquire("miss", p.clock.Now().Sub(acquireStart))
		p.metrics.RecordColdStart(time.Duration(coldStartMs) * time.Millisecond)
	}

	execStart := p.clock.Now()
	result, runErr := p.driver.Run(ctx, sb.Handle, tool, args, timeout)
	execMs := float64(p.clock.Now().Sub(execStart).Milliseconds())

	if runErr != nil {
		p.destroy(ctx, sb)
		p.metrics.RecordToolExecution(tool.Name, "error", time.Duration(execMs)*time.Millisecond)
		return nil, runErr
	}

	result.Metrics = types.ExecutionMetrics{ColdStartMs: coldStartMs, ExecMs: execMs}

	if !result.Success {
		p.destroy(ctx, sb)
		outcome := "failure"
		if result.Err != nil && result.Err.Code == "TIMEOUT" {
			outcome = "timeout"
		}
		p.metrics.RecordToolExecution(tool.Name, outcome, time.Duration(execMs)*time.Millisecond)
		return result, nil
	}

	p.release(ctx, sb)
	p.metrics.RecordToolExecution(tool.Name, "success", time.Duration(execMs)*time.Millisecond)
	return result, nil
}

// acquire returns a ready sandbox (coldStartMs==0) or creates one for
// tool (coldStartMs>0).
func (p *Pool) acquire(ctx context.Context, tool types.ToolDefinition) (*Sandbox, float64, error) {
	p.mu.Lock()
	if len(p.ready) > 0 {
		idx := lruIndex(p.ready)
		sb := p.ready[idx]
		p.ready = append(p.ready[:idx], p.ready[idx+1:]...)
		sb.State = types.SandboxRunning
		p.running++
		p.mu.Unlock()
		return sb, 0, nil
	}
	if p.running+len(p.ready) >= p.cfg.MaxInstances {
		p.mu.Unlock()
		return nil, 0, ErrPoolExhausted
	}
	// Reserve the slot before releasing the lock so concurrent misses
	// can't both pass the capacity check and overshoot maxInstances.
	p.running++
	p.mu.Unlock()

	createStart := p.clock.Now()
	cfg := toolSandboxConfig(tool, p.cfg.DefaultTimeoutMs)
	handle, err := p.driver.Create(ctx, cfg)
	coldStartMs := float64(p.clock.Now().Sub(createStart).Milliseconds())
	if err != nil {
		p.mu.Lock()
		p.running--
		p.mu.Unlock()
		return nil, coldStartMs, &types.ExecutionError{
			Code:    "SANDBOX_CREATE_FAILED",
			Message: err.Error(),
		}
	}
	if coldStartMs > float64(coldStartWarnThreshold.Milliseconds()) {
		slog.Warn("sandbox cold start exceeded warn threshold", "tool", tool.Name, "coldStartMs", coldStartMs)
	}

	sb := &Sandbox{
		ID:         types.NewID(),
		State:      types.SandboxRunning,
		Config:     cfg,
		Handle:     handle,
		CreatedAt:  p.clock.Now(),
		LastUsedAt: p.clock.Now(),
	}

	p.mu.Lock()
	p.totalCreated++
	p.updateColdStartEMA(coldStartMs)
	p.mu.Unlock()

	return sb, coldStartMs, nil
}

// release returns sb to the pool after a successful run, evicting the
// oldest ready sandbox if the pool is already at capacity.
func (p *Pool) release(ctx context.Context, sb *Sandbox) {
	sb.State = types.SandboxReady
	sb.LastUsedAt = p.clock.Now()
	sb.ExecutionCount++

	p.mu.Lock()
	p.running--
	var evicted *Sandbox
	if len(p.ready) >= p.cfg.MaxInstances {
		idx := lruIndex(p.ready)
		evicted = p.ready[idx]
		p.ready = append(p.ready[:idx], p.ready[idx+1:]...)
	}
	p.ready = append(p.ready, sb)
	p.setPoolGauges()
	p.mu.Unlock()

	if evicted != nil {
		p.destroy(ctx, evicted)
	}
}

// destroy tears sb down outside the pool's critical section and
// accounts for it; sb must already be removed from the ready set. A
// sandbox still in the running state is also taken off the running
// count.
func (p *Pool) destroy(ctx context.Context, sb *Sandbox) {
	if sb.State == types.SandboxRunning {
		p.mu.Lock()
		p.running--
		p.mu.Unlock()
	}
	_ = p.driver.Destroy(ctx, sb.Handle)
	sb.State = types.SandboxDestroyed

	p.mu.Lock()
	p.totalDestroyed++
	p.setPoolGauges()
	p.mu.Unlock()
}

func (p *Pool) recordAcquireOutcome(hit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := 0.0
	if hit {
		v = 1.0
	}
	p.hitRateEMA = p.hitRateEMA*(1-hitRateAlpha) + v*hitRateAlpha
	p.metrics.SetPoolHitRate(p.hitRateEMA)
}

func (p *Pool) updateColdStartEMA(ms float64) {
	if p.coldStartEMAMs == 0 {
		p.coldStartEMAMs = ms
		return
	}
	p.coldStartEMAMs = p.coldStartEMAMs*(1-hitRateAlpha) + ms*hitRateAlpha
}

// setPoolGauges must be called with mu held.
func (p *Pool) setPoolGauges() {
	p.metrics.SetPoolInstances("ready", len(p.ready))
	p.metrics.SetPoolInstances("running", p.running)
}

// tick runs one maintenance pass: reap idle sandboxes, then warm the
// pool back up to MinInstances. Exposed for tests to call directly
// instead of waiting on a real ticker.
func (p *Pool) tick(ctx context.Context) {
	p.reap(ctx)
	p.warm(ctx)
}

func (p *Pool) reap(ctx context.Context) {
	idleTimeout := time.Duration(p.cfg.IdleTimeoutMs) * time.Millisecond
	now := p.clock.Now()

	p.mu.Lock()
	var stale []*Sandbox
	kept := p.ready[:0:0]
	for _, sb := range p.ready {
		if now.Sub(sb.LastUsedAt) > idleTimeout {
			stale = append(stale, sb)
		} else {
			kept = append(kept, sb)
		}
	}
	p.ready = kept
	p.mu.Unlock()

	for _, sb := range stale {
		p.destroy(ctx, sb)
	}
}

func (p *Pool) warm(ctx context.Context) {
	p.mu.Lock()
	deficit := p.cfg.MinInstances - (len(p.ready) + p.running)
	p.mu.Unlock()

	for i := 0; i < deficit; i++ {
		go func() {
			handle, err := p.driver.Create(ctx, genericSandboxConfig())
			if err != nil {
				slog.Warn("sandbox warm creation failed", "error", err)
				return
			}
			sb := &Sandbox{
				ID:         types.NewID(),
				State:      types.SandboxReady,
				Config:     genericSandboxConfig(),
				Handle:     handle,
				CreatedAt:  p.clock.Now(),
				LastUsedAt: p.clock.Now(),
			}
			p.mu.Lock()
			p.ready = append(p.ready, sb)
			p.totalCreated++
			p.setPoolGauges()
			p.mu.Unlock()
		}()
	}
}

// lruIndex returns the index of the least-recently-used sandbox in
// ready. ready is never empty when called.
func lruIndex(ready []*Sandbox) int {
	idx := 0
	for i, sb := range ready {
		if sb.LastUsedAt.Before(ready[idx].LastUsedAt) {
			idx = i
		}
	}
	return idx
}
