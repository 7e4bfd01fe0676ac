package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit drop (and count) events instead of waiting for room.
	DropIfFull bool
	// DrainTimeout bounds how long Close waits for buffered events. Zero waits forever.
	DrainTimeout time.Duration
}

// Dispatcher relays events to a sink from a single goroutine, in emit order. A nil
// *Dispatcher discards events; NewDispatcher returns nil when auditing is disabled.
type Dispatcher struct {
	sink         Sink
	dropIfFull   bool
	drainTimeout time.Duration

	// mu guards closing queue against concurrent sends.
	mu     sync.RWMutex
	closed bool
	queue  chan Event

	finished  chan struct{}
	dropped   atomic.Uint64
	delivered atomic.Uint64
	abandoned atomic.Bool
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:         sink,
		dropIfFull:   cfg.DropIfFull,
		drainTimeout: cfg.DrainTimeout,
		queue:        make(chan Event, cfg.BufferSize),
		finished:     make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.finished)
	for event := range d.queue {
		if d.abandoned.Load() {
			d.dropped.Add(1)
			continue
		}
		d.sink.Emit(context.Background(), event)
		d.delivered.Add(1)
	}
}

// Emit enqueues event, stamping its timestamp when unset. With DropIfFull a full buffer
// drops the event; otherwise Emit waits for room or for ctx to end. Events emitted after
// Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and waits up to DrainTimeout for buffered ones to reach the
// sink. Events still queued when the timeout passes are counted as dropped. It reports
// whether the buffer was fully drained.
func (d *Dispatcher) Close() bool {
	if d == nil {
		return true
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	if d.drainTimeout <= 0 {
		<-d.finished
		return true
	}
	timer := time.NewTimer(d.drainTimeout)
	defer timer.Stop()
	select {
	case <-d.finished:
		return true
	case <-timer.C:
		d.abandoned.Store(true)
		return false
	}
}

// Dropped returns how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns how many events the sink has been handed.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
