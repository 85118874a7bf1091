// Package metrics exposes Prometheus counters for the feed pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/rcwatch/internal/classifier"
	"github.com/crimson-sun/rcwatch/internal/engine"
	"github.com/crimson-sun/rcwatch/internal/feed"
	"github.com/crimson-sun/rcwatch/internal/model"
)

const namespace = "rcwatch"

// Drop reasons used as the "reason" label of LinesDropped.
const (
	ReasonUndecodable    = "undecodable"
	ReasonIgnored        = "ignored"
	ReasonMiss           = "miss"
	ReasonUnknownProject = "unknown_project"
	ReasonOther          = "other"
)

// Metrics holds every collector rcwatch exports.
type Metrics struct {
	registry *prometheus.Registry

	LinesReceived    *prometheus.CounterVec
	EventsClassified *prometheus.CounterVec
	LinesDropped     *prometheus.CounterVec
	ReactorFailures  *prometheus.CounterVec
	ClassifyDuration prometheus.Histogram
	ProjectsOnline   prometheus.Gauge
	Synthesis        *prometheus.CounterVec
	DebugReports     *prometheus.CounterVec
}

// New creates the collectors and registers them, with Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LinesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "lines_received_total",
				Help:      "Feed lines received, by project",
			},
			[]string{"project"},
		),
		EventsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "classifier",
				Name:      "events_total",
				Help:      "Events classified, by project and kind",
			},
			[]string{"project", "kind"},
		),
		LinesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "classifier",
				Name:      "dropped_total",
				Help:      "Feed lines dropped without an event, by project and reason",
			},
			[]string{"project", "reason"},
		),
		ReactorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "reactor_failures_total",
				Help:      "Output failures and panics caught by the pipeline",
			},
			[]string{"project"},
		),
		ClassifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "classifier",
				Name:      "duration_seconds",
				Help:      "Time to decode and classify one line",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
		ProjectsOnline: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "projects",
				Name:      "online",
				Help:      "Projects with a synthesized pattern bundle",
			},
		),
		Synthesis: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "projects",
				Name:      "synthesis_total",
				Help:      "Project synthesis attempts, by project and result",
			},
			[]string{"project", "result"},
		),
		DebugReports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "debug",
				Name:      "reports_total",
				Help:      "Anomaly reports sent to the debug sink, by category",
			},
			[]string{"category"},
		),
	}
	m.registry.MustRegister(
		m.LinesReceived,
		m.EventsClassified,
		m.LinesDropped,
		m.ReactorFailures,
		m.ClassifyDuration,
		m.ProjectsOnline,
		m.Synthesis,
		m.DebugReports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterGaugeFunc exports a value read at scrape time, such as the number
// of websocket subscribers.
func (m *Metrics) RegisterGaugeFunc(subsystem, name, help string, f func() float64) error {
	if m == nil {
		return nil
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, f)
	if err := m.registry.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Received counts a feed line.
func (m *Metrics) Received(project string) {
	if m == nil {
		return
	}
	m.LinesReceived.WithLabelValues(project).Inc()
}

// Classified counts an event and observes how long classifying it took.
func (m *Metrics) Classified(ev model.Event, took time.Duration) {
	if m == nil {
		return
	}
	m.EventsClassified.WithLabelValues(ev.Project, string(ev.Kind)).Inc()
	m.ClassifyDuration.Observe(took.Seconds())
}

// Dropped counts a line the engine returned an error for.
func (m *Metrics) Dropped(project string, err error) {
	if m == nil {
		return
	}
	m.LinesDropped.WithLabelValues(project, DropReason(err)).Inc()
}

// ReactorFailed counts a failed or panicking output write.
func (m *Metrics) ReactorFailed(project string) {
	if m == nil {
		return
	}
	m.ReactorFailures.WithLabelValues(project).Inc()
}

// SetProjectsOnline records how many projects are online.
func (m *Metrics) SetProjectsOnline(n int) {
	if m == nil {
		return
	}
	m.ProjectsOnline.Set(float64(n))
}

// Synthesized counts a project build or reload.
func (m *Metrics) Synthesized(project string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Synthesis.WithLabelValues(project, result).Inc()
}

// Reported counts a debug sink report.
func (m *Metrics) Reported(category string) {
	if m == nil {
		return
	}
	m.DebugReports.WithLabelValues(category).Inc()
}

// DropReason maps an engine error to a LinesDropped label.
func DropReason(err error) string {
	var miss *classifier.MissError
	switch {
	case errors.Is(err, feed.ErrUndecodable):
		return ReasonUndecodable
	case errors.Is(err, classifier.ErrIgnored):
		return ReasonIgnored
	case errors.Is(err, engine.ErrUnknownProject):
		return ReasonUnknownProject
	case errors.As(err, &miss):
		return ReasonMiss
	}
	return ReasonOther
}
