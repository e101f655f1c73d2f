package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/types"
)

// Handler receives every entry flushed from the stream. A handler that
// panics or returns an error only affects itself; the stream logs and
// moves on.
type Handler func(entries []types.AuditEntry) error

// StreamConfig tunes the stream's buffering and flush cadence.
type StreamConfig struct {
	BufferSize      int
	FlushIntervalMs int
}

func (c *StreamConfig) SetDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = 100
	}
	if c.FlushIntervalMs == 0 {
		c.FlushIntervalMs = 5000
	}
}

// Filter narrows Query to a subset of retained entries.
type Filter struct {
	StartTime  time.Time
	EndTime    time.Time
	EventTypes []types.AuditEventType
	Severities []types.Severity
	Actor      string
	TraceID    string
}

// Subscription is the handle returned by Subscribe; call Unsubscribe to
// stop receiving flushed batches.
type Subscription struct {
	id     int
	stream *Stream
}

// Unsubscribe removes the handler permanently.
func (s *Subscription) Unsubscribe() {
	s.stream.mu.Lock()
	delete(s.stream.subscribers, s.id)
	s.stream.mu.Unlock()
}

// Stream is a bounded in-memory buffer with periodic flush, subscriber
// fan-out, and a persistence sink, matching spec.md §4.5 and the
// concurrency model in §5: append is atomic, flush swaps the buffer
// under the lock and emits outside it so subscribers can never block
// writers.
type Stream struct {
	cfg     StreamConfig
	sink    Sink
	metrics *observability.Metrics
	clock   types.Clock

	mu          sync.Mutex
	buffer      []types.AuditEntry
	retained    []types.AuditEntry
	subscribers map[int]Handler
	nextSubID   int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStream constructs a Stream. sink may be nil (defaults to NoopSink).
// clock may be nil (defaults to types.RealClock{}).
func NewStream(cfg StreamConfig, sink Sink, metrics *observability.Metrics, clock types.Clock) *Stream {
	cfg.SetDefaults()
	if sink == nil {
		sink = NoopSink{}
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Stream{
		cfg:         cfg,
		sink:        sink,
		metrics:     metrics,
		clock:       clock,
		subscribers: make(map[int]Handler),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the periodic-flush goroutine.
func (s *Stream) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Duration(s.cfg.FlushIntervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Flush(context.Background())
			}
		}
	}()
}

// Stop halts the periodic-flush goroutine and performs one final flush.
func (s *Stream) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.Flush(context.Background())
}

// Write appends entry to the buffer, flushing synchronously if the
// buffer has reached capacity.
func (s *Stream) Write(ctx context.Context, entry types.AuditEntry) {
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	atCapacity := len(s.buffer) >= s.cfg.BufferSize
	s.mu.Unlock()

	s.metrics.RecordAuditEntry(string(entry.EventType))

	if atCapacity {
		s.Flush(ctx)
	}
}

// Flush detaches the current buffer, fans it out to every subscriber
// (outside the lock, so a slow subscriber never blocks Write), then
// hands it to the sink.
func (s *Stream) Flush(ctx context.Context) {
	start := s.clock.Now()

	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = nil
	s.retained = append(s.retained, batch...)
	handlers := make([]Handler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		s.invokeHandler(h, batch)
	}

	if err := s.sink.Persist(ctx, batch); err != nil {
		slog.Error("audit sink persist failed", "error", err, "count", len(batch))
	}

	s.metrics.RecordAuditFlush(s.clock.Now().Sub(start))
}

// invokeHandler recovers a panicking handler and always logs rather
// than propagates, per spec.md §7's "Audit handler errors are logged
// and swallowed."
func (s *Stream) invokeHandler(h Handler, batch []types.AuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("audit subscriber handler panicked", "error", newHandlerError(r))
		}
	}()
	if err := h(batch); err != nil {
		slog.Error("audit subscriber handler failed", "error", newHandlerError(err))
	}
}

// Subscribe registers h to receive every future flushed batch.
func (s *Stream) Subscribe(h Handler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = h
	return &Subscription{id: id, stream: s}
}

// Query returns retained entries matching every set field of filter.
func (s *Stream) Query(filter Filter) []types.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.AuditEntry
	for _, e := range s.retained {
		if !filter.StartTime.IsZero() && e.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && e.Timestamp.After(filter.EndTime) {
			continue
		}
		if len(filter.EventTypes) > 0 && !containsEventType(filter.EventTypes, e.EventType) {
			continue
		}
		if len(filter.Severities) > 0 && !containsSeverity(filter.Severities, e.Severity) {
			continue
		}
		if filter.Actor != "" && e.Actor != filter.Actor {
			continue
		}
		if filter.TraceID != "" && e.TraceID != filter.TraceID {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsEventType(set []types.AuditEventType, v types.AuditEventType) bool {
	for _, e := range set {
		if e == v {
			return true
		}
	}
	return false
}

func containsSeverity(set []types.Severity, v types.Severity) bool {
	for _, e := range set {
		if e == v {
			return true
		}
	}
	return false
}
