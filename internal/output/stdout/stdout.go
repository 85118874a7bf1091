package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/output"
)

// Option configures a stdout Output.
type Option func(*Output)

// WithWriter replaces os.Stdout as the destination.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// WithText writes one human readable line per event instead of JSON.
func WithText() Option {
	return func(o *Output) { o.text = true }
}

// Output writes classified events to stdout, as NDJSON by default.
type Output struct {
	mu        sync.Mutex
	w         io.Writer
	enc       *json.Encoder
	verbosity output.Verbosity
	text      bool
}

// New creates a new stdout Output with verbosity-aware field omission
// and optional pretty-printed JSON.
func New(verbosity output.Verbosity, pretty bool, opts ...Option) *Output {
	o := &Output{w: os.Stdout, verbosity: verbosity}
	for _, opt := range opts {
		opt(o)
	}
	o.enc = json.NewEncoder(o.w)
	if pretty {
		o.enc.SetIndent("", "  ")
	}
	return o
}

func (o *Output) Write(_ context.Context, event model.Event) error {
	formatted := output.FormatEvent(event, o.verbosity)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.text {
		if _, err := fmt.Fprintln(o.w, output.Render(formatted)); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		return nil
	}
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
