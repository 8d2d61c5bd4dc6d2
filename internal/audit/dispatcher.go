package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher hands identity events to a sink on a single worker goroutine.
// Sinks receive the emitting request's context values but not its
// cancellation, so a finished request never truncates its own audit trail.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan queued
	worker     sync.WaitGroup
	dropped    atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker. A disabled config yields a nil
// *Dispatcher, whose methods are no-ops.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queued, size),
	}
	d.worker.Add(1)
	go func() {
		defer d.worker.Done()
		for q := range d.queue {
			d.sink.Emit(q.ctx, q.event)
		}
	}()
	return d
}

// Emit queues event. With DropIfFull a full queue drops the event; otherwise
// Emit waits for room and drops only when ctx ends first. Every drop is
// counted.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	q := queued{ctx: context.WithoutCancel(ctx), event: event}
	if d.dropIfFull {
		select {
		case d.queue <- q:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close delivers everything already queued, then stops the worker. Emit after
// Close is a no-op. Close is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.worker.Wait()
}

// Dropped reports how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
