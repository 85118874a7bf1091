// Package reloader brings projects online and keeps them current: fresh
// builds from the live wiki, re-synthesis from edited records, and bulk
// refreshes on request. A project that fails to rebuild keeps serving its
// previous bundle.
package reloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/rcwatch/internal/debugsink"
	"github.com/crimson-sun/rcwatch/internal/metrics"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/store"
)

// Builder builds a project from its live wiki. *project.Builder implements it.
type Builder interface {
	Build(ctx context.Context, id project.Identity) (*project.Project, error)
}

// Reloader owns the registry's write side.
type Reloader struct {
	builder  Builder
	store    store.Store
	registry *project.Registry
	sink     debugsink.Sink
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithDebugSink reports failed builds. Default: debugsink.Discard.
func WithDebugSink(s debugsink.Sink) Option {
	return func(r *Reloader) { r.sink = s }
}

// WithMetrics counts builds and tracks the online project gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reloader) { r.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reloader) { r.logger = l }
}

// New creates a Reloader.
func New(b Builder, st store.Store, reg *project.Registry, opts ...Option) *Reloader {
	r := &Reloader{
		builder:  b,
		store:    st,
		registry: reg,
		sink:     debugsink.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reloader")
	return r
}

// Start loads every stored project, then builds any of keys that are not
// stored yet. It returns the joined errors of the projects that could not
// be brought online; the rest are online regardless.
func (r *Reloader) Start(ctx context.Context, keys []string) error {
	var errs []error
	if err := store.LoadAll(ctx, r.store, r.registry, r.logger); err != nil {
		errs = append(errs, err)
	}
	for _, key := range keys {
		if _, ok := r.registry.Get(key); ok {
			continue
		}
		if _, err := r.Bring(ctx, project.DefaultIdentity(key)); err != nil {
			errs = append(errs, err)
		}
	}
	r.online()
	return errors.Join(errs...)
}

// Bring builds a project from its live wiki, saves its record, and puts
// it online.
func (r *Reloader) Bring(ctx context.Context, id project.Identity) (*project.Project, error) {
	p, err := r.builder.Build(ctx, id)
	r.metrics.Synthesized(id.Key, err)
	if err != nil {
		r.fail(id.Key, err)
		return nil, err
	}
	if err := r.store.Save(ctx, p.Record()); err != nil {
		// The project still works this run; it just has to be fetched again next time.
		r.logger.Warn("saving project record failed", "project", id.Key, "error", err)
	}
	r.registry.Put(p)
	r.online()
	return p, nil
}

// Refresh rebuilds the given projects, or every online project when keys
// is empty, from their live wikis.
func (r *Reloader) Refresh(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		keys = r.registry.Keys()
	}
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := project.DefaultIdentity(key)
		if p, ok := r.registry.Get(key); ok {
			id = p.Identity()
		} else if rec, err := r.store.Load(ctx, key); err == nil {
			id = project.Identity{Key: rec.Key, Interwiki: rec.Interwiki, RootURL: rec.RootURL}
		}
		if _, err := r.Bring(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	r.logger.Info("refresh finished", "projects", len(keys), "failed", len(errs))
	return errors.Join(errs...)
}

// Apply re-synthesizes a project after its stored record changed.
func (r *Reloader) Apply(ctx context.Context, c store.Change) error {
	err := store.Reload(ctx, r.store, r.registry, c.Key, r.logger)
	if !c.Removed {
		r.metrics.Synthesized(c.Key, err)
	}
	if err != nil {
		r.fail(c.Key, err)
		return err
	}
	if c.Removed {
		r.logger.Info("project removed", "project", c.Key)
	} else {
		r.logger.Info("project reloaded from record", "project", c.Key)
	}
	r.online()
	return nil
}

// Watch applies changes from w until ctx is done or w stops.
func (r *Reloader) Watch(ctx context.Context, changes <-chan store.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			_ = r.Apply(ctx, c)
		}
	}
}

func (r *Reloader) fail(key string, err error) {
	r.logger.Warn("project not reloaded, keeping previous bundle", "project", key, "error", err)
	r.sink.Report(debugsink.CategoryWarning, debugsink.CodeSynthesis, err.Error(), fmt.Sprintf("project %s", key))
}

func (r *Reloader) online() {
	r.metrics.SetProjectsOnline(r.registry.Len())
}
