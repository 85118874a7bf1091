package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/output"
)

// Multi fans out events to multiple output.Output implementations.
// Each Write call delivers the event to every wrapped output sequentially.
// If one output fails, the remaining outputs still receive the event.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the event to every wrapped output. Errors are collected
// but do not prevent delivery to subsequent outputs.
func (m *Multi) Write(ctx context.Context, event model.Event) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filtered passes only events of the listed kinds to the wrapped output.
type Filtered struct {
	inner output.Output
	kinds map[model.Kind]bool
}

// Filter wraps out so it only sees the given kinds. With no kinds, out is
// returned unchanged.
func Filter(out output.Output, kinds ...model.Kind) output.Output {
	if len(kinds) == 0 {
		return out
	}
	f := &Filtered{inner: out, kinds: make(map[model.Kind]bool, len(kinds))}
	for _, k := range kinds {
		f.kinds[k] = true
	}
	return f
}

func (f *Filtered) Write(ctx context.Context, event model.Event) error {
	if !f.kinds[event.Kind] {
		return nil
	}
	return f.inner.Write(ctx, event)
}

func (f *Filtered) Close() error { return f.inner.Close() }
