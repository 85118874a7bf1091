package rcwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/crimson-sun/rcwatch/internal/classifier"
	"github.com/crimson-sun/rcwatch/internal/engine"
	"github.com/crimson-sun/rcwatch/internal/feed"
	"github.com/crimson-sun/rcwatch/internal/fetch"
	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/store"
)

// Errors returned for lines that produce no event. All are expected in
// normal operation; see Quiet.
var (
	ErrIgnored        = classifier.ErrIgnored
	ErrUndecodable    = feed.ErrUndecodable
	ErrUnknownProject = engine.ErrUnknownProject
)

// Quiet reports whether err is a routine drop (a log type nobody watches,
// a malformed line, or a channel with no project) rather than a line that
// should have classified but did not.
func Quiet(err error) bool { return engine.Quiet(err) }

// Watcher classifies feed lines for a set of projects.
// Safe for concurrent use.
type Watcher struct {
	registry *project.Registry
	engine   *engine.Engine
	builder  *project.Builder
	store    store.Store
	opts     options
}

// New creates a Watcher and loads the projects named by the options.
// A record that fails to load fails New.
func New(opts ...Option) (*Watcher, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	w := &Watcher{
		registry: project.NewRegistry(),
		opts:     o,
		builder: project.NewBuilder(fetch.New(
			fetch.WithTimeout(o.timeout),
			fetch.WithUserAgent(o.userAgent),
		), o.logger),
	}
	w.engine = engine.New(w.registry, nil)

	for _, path := range o.recordFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rcwatch: %w", err)
		}
		o.records = append(o.records, data)
	}
	for _, data := range o.records {
		if err := w.addRecord(data); err != nil {
			return nil, err
		}
	}

	if o.storeDriver != "" {
		st, err := store.Open(context.Background(), o.storeDriver, o.storePath)
		if err != nil {
			return nil, fmt.Errorf("rcwatch: %w", err)
		}
		if err := store.LoadAll(context.Background(), st, w.registry, o.logger); err != nil {
			st.Close()
			return nil, fmt.Errorf("rcwatch: %w", err)
		}
		w.store = st
	}
	return w, nil
}

func (w *Watcher) addRecord(data []byte) error {
	r, err := project.UnmarshalRecord(data)
	if err != nil {
		return fmt.Errorf("rcwatch: %w", err)
	}
	p, err := project.FromRecord(r, w.opts.logger)
	if err != nil {
		return fmt.Errorf("rcwatch: %w", err)
	}
	w.registry.Put(p)
	return nil
}

// AddProject fetches a wiki's namespaces and messages and brings the
// project online, replacing any previous version. An empty rootURL means
// https://<key>.org/. With a store configured the record is saved too.
func (w *Watcher) AddProject(ctx context.Context, key, rootURL string) error {
	id := project.DefaultIdentity(key)
	if rootURL != "" {
		id.RootURL = rootURL
	}
	p, err := w.builder.Build(ctx, id)
	if err != nil {
		return fmt.Errorf("rcwatch: %w", err)
	}
	if w.store != nil {
		if err := w.store.Save(ctx, p.Record()); err != nil {
			return fmt.Errorf("rcwatch: %w", err)
		}
	}
	w.registry.Put(p)
	return nil
}

// RemoveProject takes a project offline.
func (w *Watcher) RemoveProject(key string) {
	w.registry.Remove(key)
}

// Record returns a project's record in its TOML form, suitable for
// WithRecord.
func (w *Watcher) Record(key string) ([]byte, error) {
	p, ok := w.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("rcwatch: %w: %s", ErrUnknownProject, key)
	}
	return project.MarshalRecord(p.Record())
}

// Classify classifies one line of feed text received on channel.
func (w *Watcher) Classify(channel, text string) (Event, error) {
	return w.ClassifyLine(Line{Channel: channel, Text: text})
}

// ClassifyLine classifies a feed line.
func (w *Watcher) ClassifyLine(l Line) (Event, error) {
	e, err := w.engine.Process(rawLine(l, time.Now()))
	if err != nil {
		return Event{}, err
	}
	return eventFromModel(e), nil
}

// ClassifyBatch classifies lines in order. Lines that produce no event are
// left out of the result, and their errors are joined in the returned error.
func (w *Watcher) ClassifyBatch(lines []Line) ([]Event, error) {
	now := time.Now()
	raws := make([]model.RawLine, len(lines))
	for i, l := range lines {
		raws[i] = rawLine(l, now)
	}
	es, err := w.engine.ProcessBatch(raws)
	events := make([]Event, len(es))
	for i, e := range es {
		events[i] = eventFromModel(e)
	}
	return events, err
}

// Close releases the store, if any.
func (w *Watcher) Close() error {
	if w.store != nil {
		return w.store.Close()
	}
	return nil
}

func rawLine(l Line, now time.Time) model.RawLine {
	ts := l.Received
	if ts.IsZero() {
		ts = now
	}
	return model.RawLine{Received: ts, Channel: l.Channel, Text: l.Text}
}

// Unmatched reports whether err is a log entry that matched none of its
// project's patterns, which usually means the wiki changed a message and
// the project needs refetching.
func Unmatched(err error) bool {
	var miss *classifier.MissError
	return errors.As(err, &miss)
}
