package rcwatch

import (
	"log/slog"
	"time"
)

type options struct {
	records     [][]byte
	recordFiles []string
	storeDriver string
	storePath   string
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		timeout:   30 * time.Second,
		userAgent: "rcwatch-go",
		logger:    slog.Default(),
	}
}

// Option configures a Watcher.
type Option func(*options)

// WithRecord loads a project from a record in its TOML form.
func WithRecord(data []byte) Option {
	return func(o *options) {
		o.records = append(o.records, data)
	}
}

// WithRecordFile loads a project from a record file, as written by
// "rcwatch fetch".
func WithRecordFile(path string) Option {
	return func(o *options) {
		o.recordFiles = append(o.recordFiles, path)
	}
}

// WithStore loads every project in a store ("file" directory or "sqlite"
// database) and saves projects added with AddProject there.
func WithStore(driver, path string) Option {
	return func(o *options) {
		o.storeDriver = driver
		o.storePath = path
	}
}

// WithFetchTimeout bounds each document fetch made by AddProject.
// Default: 30s.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent sent to wikis by AddProject.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithLogger sets the logger for synthesis warnings. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
