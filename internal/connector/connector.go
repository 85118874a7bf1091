package connector

import (
	"context"
	"time"

	"github.com/crimson-sun/rcwatch/internal/model"
)

// Connector defines the interface every feed source must implement.
type Connector interface {
	// Stream opens a long-lived feed and sends raw lines in delivery order.
	// The channel is closed when ctx is cancelled or the source is exhausted.
	Stream(ctx context.Context, cfg Config) (<-chan model.RawLine, error)
}

// Querier is implemented by sources that can return a finite batch of
// lines, such as a recorded feed.
type Querier interface {
	Query(ctx context.Context, cfg Config, params QueryParams) ([]model.RawLine, error)
}

// Config holds source connection settings.
type Config struct {
	Provider string
	Endpoint string   // host:port for irc, a file path for replay
	Nick     string   // irc only
	Channels []string // feed channels with their marker, e.g. "#en.wikipedia"
	Extra    map[string]string
}

// QueryParams filters a batch query.
type QueryParams struct {
	Start time.Time
	End   time.Time
	Limit int
}

// Match reports whether a line falls inside the query window.
func (p QueryParams) Match(raw model.RawLine) bool {
	if !p.Start.IsZero() && !raw.Received.IsZero() && raw.Received.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !raw.Received.IsZero() && !raw.Received.Before(p.End) {
		return false
	}
	return true
}

// Channels turns project keys into feed channel names.
func Channels(projects []string) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = "#" + p
	}
	return out
}
