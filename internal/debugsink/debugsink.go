// Package debugsink receives anomaly reports: classification misses,
// output failures and synthesis problems. Reporting never blocks the
// caller and never fails.
package debugsink

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Report categories.
const (
	CategoryError   = "ERROR"
	CategoryWarning = "WARNING"
)

// Report codes.
const (
	CodeReactorException = "ReactorException"
	CodeClassifyMiss     = "ClassificationMiss"
	CodeSynthesis        = "SynthesisFailure"
)

// Sink accepts fire-and-forget anomaly reports.
type Sink interface {
	Report(category, code, message, detail string)
}

// Report is the structured form of one anomaly, as published.
type Report struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Category string    `json:"category"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Context  string    `json:"context,omitempty"`
	Source   string    `json:"source,omitempty"`
}

func newReport(category, code, message, detail string) Report {
	return Report{
		ID:       uuid.NewString(),
		Time:     time.Now().UTC(),
		Category: category,
		Code:     code,
		Message:  message,
		Context:  detail,
	}
}

// Discard drops every report.
type Discard struct{}

func (Discard) Report(string, string, string, string) {}

// Logger writes reports to a slog logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a sink that logs reports. A nil logger uses slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{logger: l.With("component", "debug")}
}

func (l *Logger) Report(category, code, message, detail string) {
	level := slog.LevelWarn
	if category == CategoryError {
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, message, "category", category, "code", code, "context", detail)
}

// Tee fans a report out to several sinks.
type Tee []Sink

func (t Tee) Report(category, code, message, detail string) {
	for _, s := range t {
		s.Report(category, code, message, detail)
	}
}

// Counting wraps a sink and calls count with each report's category.
type Counting struct {
	Sink
	count func(category string)
}

// WithCount returns a sink that calls count before forwarding.
func WithCount(s Sink, count func(category string)) *Counting {
	return &Counting{Sink: s, count: count}
}

func (c *Counting) Report(category, code, message, detail string) {
	c.count(category)
	c.Sink.Report(category, code, message, detail)
}
