package engine

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/rcwatch/internal/classifier"
	"github.com/crimson-sun/rcwatch/internal/feed"
	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/project"
)

// ErrUnknownProject is returned for lines from a channel with no project
// online, either never configured or still failing to synthesize.
var ErrUnknownProject = errors.New("engine: unknown project")

// Lookup resolves a project key to its current bundle.
type Lookup interface {
	Get(key string) (*project.Project, bool)
}

// Engine orchestrates the decode → lookup → classify steps for one line.
type Engine struct {
	projects   Lookup
	classifier *classifier.Classifier
}

// New creates an Engine reading projects from the given lookup.
func New(projects Lookup, cls *classifier.Classifier) *Engine {
	if cls == nil {
		cls = classifier.New()
	}
	return &Engine{
		projects:   projects,
		classifier: cls,
	}
}

// Process classifies a single raw line into an event. Every error it
// returns means the line is dropped; none is fatal to the caller.
func (e *Engine) Process(raw model.RawLine) (model.Event, error) {
	key := raw.Project()
	p, ok := e.projects.Get(key)
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %s", ErrUnknownProject, key)
	}

	fields, err := feed.Decode(raw.Text)
	if err != nil {
		return model.Event{}, err
	}

	ev, err := e.classifier.Classify(p, fields)
	if err != nil {
		return model.Event{}, err
	}
	ev.Channel = raw.Channel
	ev.Received = raw.Received
	return ev, nil
}

// ProcessBatch classifies lines in order. Dropped lines are left out of the
// result and their errors joined.
func (e *Engine) ProcessBatch(raws []model.RawLine) ([]model.Event, error) {
	events := make([]model.Event, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		ev, err := e.Process(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}

// Quiet reports whether a drop is expected and should not be logged above
// debug level: ignored log types, undecodable lines and unknown channels.
func Quiet(err error) bool {
	return errors.Is(err, classifier.ErrIgnored) ||
		errors.Is(err, feed.ErrUndecodable) ||
		errors.Is(err, ErrUnknownProject)
}
