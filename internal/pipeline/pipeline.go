package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/rcwatch/internal/connector"
	"github.com/crimson-sun/rcwatch/internal/debugsink"
	"github.com/crimson-sun/rcwatch/internal/engine"
	"github.com/crimson-sun/rcwatch/internal/metrics"
	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/output"
)

// Processor classifies raw lines. *engine.Engine implements it.
type Processor interface {
	Process(raw model.RawLine) (model.Event, error)
	ProcessBatch(raws []model.RawLine) ([]model.Event, error)
}

// Recorder keeps a copy of every raw line received.
type Recorder interface {
	Record(raw model.RawLine) error
}

// ReactorError is an event the output failed to take, including a
// recovered panic.
type ReactorError struct {
	Project string
	Kind    model.Kind
	Err     error
}

func (e *ReactorError) Error() string {
	return fmt.Sprintf("pipeline: output failed for %s %s: %v", e.Project, e.Kind, e.Err)
}

func (e *ReactorError) Unwrap() error { return e.Err }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebugSink sets where classification misses and output failures are
// reported. Default: debugsink.Discard.
func WithDebugSink(s debugsink.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithMetrics records pipeline counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRecorder records raw lines before they are classified.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// Pipeline connects a connector, processor, and output. Lines are handled
// one at a time in delivery order; nothing that goes wrong with a single
// line stops the stream.
type Pipeline struct {
	connector connector.Connector
	processor Processor
	output    output.Output
	sink      debugsink.Sink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	recorder  Recorder

	skippedLines    atomic.Int64
	reactorFailures atomic.Int64
	lastMessage     atomic.Int64 // unix nanos
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		processor: proc,
		output:    out,
		sink:      debugsink.Discard{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p
}

// Stream starts the pipeline in streaming mode, processing lines as they arrive.
// Blocks until the context is cancelled or the connector closes its channel.
func (p *Pipeline) Stream(ctx context.Context, cfg connector.Config) error {
	ch, err := p.connector.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			p.handle(ctx, raw)
		}
	}
}

// Query runs the pipeline once over a finite batch from a connector that
// implements connector.Querier.
func (p *Pipeline) Query(ctx context.Context, cfg connector.Config, params connector.QueryParams) error {
	q, ok := p.connector.(connector.Querier)
	if !ok {
		return fmt.Errorf("pipeline query: connector %q cannot query", cfg.Provider)
	}
	raws, err := q.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}

	// Fast path: a clean batch goes straight to the output.
	events, err := p.processor.ProcessBatch(raws)
	if err == nil && len(events) == len(raws) {
		for i, ev := range events {
			p.touch(raws[i])
			p.metrics.Received(ev.Project)
			p.record(raws[i])
			p.metrics.Classified(ev, 0)
			p.deliver(ctx, ev, raws[i])
		}
		return nil
	}

	// Some lines were dropped: go line by line so each drop is accounted for.
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.handle(ctx, raw)
	}
	return nil
}

// handle classifies one line and hands the event to the output.
func (p *Pipeline) handle(ctx context.Context, raw model.RawLine) {
	p.touch(raw)
	project := raw.Project()
	p.metrics.Received(project)
	p.record(raw)

	start := time.Now()
	ev, err := p.processor.Process(raw)
	if err != nil {
		p.skippedLines.Add(1)
		p.metrics.Dropped(project, err)
		if engine.Quiet(err) {
			p.logger.Debug("line dropped", "channel", raw.Channel, "reason", err)
			return
		}
		p.logger.Warn("line dropped", "channel", raw.Channel, "error", err)
		p.sink.Report(debugsink.CategoryWarning, debugsink.CodeClassifyMiss, err.Error(), raw.Channel+" "+raw.Text)
		return
	}
	p.metrics.Classified(ev, time.Since(start))
	p.deliver(ctx, ev, raw)
}

func (p *Pipeline) record(raw model.RawLine) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(raw); err != nil {
		p.logger.Warn("recording line failed", "error", err)
	}
}

// deliver writes to the output. An output error or panic is logged and
// reported; it never stops the stream.
func (p *Pipeline) deliver(ctx context.Context, ev model.Event, raw model.RawLine) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return p.output.Write(ctx, ev)
	}()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	err = &ReactorError{Project: ev.Project, Kind: ev.Kind, Err: err}
	p.reactorFailures.Add(1)
	p.metrics.ReactorFailed(ev.Project)
	p.logger.Error("output failed", "project", ev.Project, "kind", ev.Kind, "title", ev.Title, "error", err)
	p.sink.Report(debugsink.CategoryError, debugsink.CodeReactorException, err.Error(), raw.Channel+" "+raw.Text)
}

func (p *Pipeline) touch(raw model.RawLine) {
	ts := raw.Received
	if ts.IsZero() {
		ts = time.Now()
	}
	p.lastMessage.Store(ts.UnixNano())
}

// LastMessage returns when the most recent line arrived, or the zero time
// if none has. A stale value means the feed has gone quiet.
func (p *Pipeline) LastMessage() time.Time {
	n := p.lastMessage.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Skipped returns how many lines produced no event.
func (p *Pipeline) Skipped() int64 { return p.skippedLines.Load() }

// ReactorFailures returns how many events the output failed to take.
func (p *Pipeline) ReactorFailures() int64 { return p.reactorFailures.Load() }

// Close shuts down the output and reports the skip count.
func (p *Pipeline) Close() error {
	if n := p.skippedLines.Load(); n > 0 {
		p.logger.Info("pipeline closing", "skipped_lines", n, "reactor_failures", p.reactorFailures.Load())
	}
	return p.output.Close()
}
