package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
// Values below 1 keep the default.
func WithBufferSize(n int) Option {
	return func(a *Async) {
		if n > 0 {
			a.bufSize = n
		}
	}
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the event) when the
// buffer is full, instead of blocking. Use for outputs where lossiness is
// acceptable, such as a webhook or websocket subscribers.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithOnDrop sets a callback for events dropped by WithDropOnFull.
func WithOnDrop(f func(model.Event)) Option {
	return func(a *Async) { a.dropFunc = f }
}

// WithName labels log lines from this wrapper.
func WithName(name string) Option {
	return func(a *Async) { a.name = name }
}

// Async decouples classification from slow destinations via a buffered
// channel. A single background goroutine drains it to the wrapped output,
// so events reach the output in the order they were written. Errors from
// the inner output are passed to errFunc rather than propagated.
type Async struct {
	inner      output.Output
	ch         chan model.Event
	done       chan struct{}
	errFunc    func(error)
	dropFunc   func(model.Event)
	name       string
	bufSize    int
	dropOnFull bool
	closeOnce  sync.Once
}

// New wraps an output.Output in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		name:    "async",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.errFunc == nil {
		a.errFunc = func(err error) { slog.Warn("async output write error", "output", a.name, "error", err) }
	}
	a.ch = make(chan model.Event, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write sends the event into the channel. By default, blocks if the channel
// is full (backpressure). With WithDropOnFull, returns nil immediately and
// the event is lost.
func (a *Async) Write(_ context.Context, event model.Event) error {
	if a.dropOnFull {
		select {
		case a.ch <- event:
		default:
			slog.Debug("async output buffer full, dropping event",
				"output", a.name, "project", event.Project, "kind", event.Kind)
			if a.dropFunc != nil {
				a.dropFunc(event)
			}
		}
		return nil
	}
	a.ch <- event
	return nil
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("async output drain timed out", "output", a.name, "pending", len(a.ch))
		}
		err = a.inner.Close()
	})
	return err
}

// drain reads events from the channel and writes them to the inner output.
func (a *Async) drain() {
	defer close(a.done)
	for event := range a.ch {
		if err := a.inner.Write(context.Background(), event); err != nil {
			a.errFunc(err)
		}
	}
}
