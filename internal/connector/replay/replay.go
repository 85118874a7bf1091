// Package replay reads a recorded feed from a file and records live lines
// in the same format. Each line is
//
//	<RFC 3339 time>\t<channel>\t<Go-quoted text>
//
// Hand-written files may use the short form "<channel>\t<text>".
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crimson-sun/rcwatch/internal/connector"
	"github.com/crimson-sun/rcwatch/internal/model"
)

func init() {
	connector.Register("replay", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector and connector.Querier for
// recorded feed files.
type Connector struct{}

func (c *Connector) Query(ctx context.Context, cfg connector.Config, params connector.QueryParams) ([]model.RawLine, error) {
	var lines []model.RawLine
	err := read(ctx, cfg, func(raw model.RawLine) bool {
		if params.Match(raw) {
			lines = append(lines, raw)
		}
		return params.Limit <= 0 || len(lines) < params.Limit
	})
	return lines, err
}

func (c *Connector) Stream(ctx context.Context, cfg connector.Config) (<-chan model.RawLine, error) {
	if _, err := os.Stat(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("replay connector: %w", err)
	}
	ch := make(chan model.RawLine, 64)
	go func() {
		defer close(ch)
		err := read(ctx, cfg, func(raw model.RawLine) bool {
			select {
			case ch <- raw:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("replay stopped", "connector", "replay", "file", cfg.Endpoint, "error", err)
		}
	}()
	return ch, nil
}

// read calls yield for each line of the file on the configured channels
// until yield returns false.
func read(ctx context.Context, cfg connector.Config, yield func(model.RawLine) bool) error {
	if cfg.Endpoint == "" {
		return errors.New("replay connector: no file given")
	}
	f, err := os.Open(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("replay connector: %w", err)
	}
	defer f.Close()

	want := make(map[string]bool, len(cfg.Channels))
	for _, c := range cfg.Channels {
		want[c] = true
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := sc.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#!") {
			continue
		}
		raw, err := ParseLine(text)
		if err != nil {
			return fmt.Errorf("replay connector: %s:%d: %w", cfg.Endpoint, n, err)
		}
		if len(want) > 0 && !want[raw.Channel] {
			continue
		}
		if !yield(raw) {
			return nil
		}
	}
	return sc.Err()
}

// ParseLine parses one recorded line.
func ParseLine(s string) (model.RawLine, error) {
	parts := strings.SplitN(s, "\t", 3)
	switch len(parts) {
	case 2:
		return model.RawLine{Channel: parts[0], Text: parts[1]}, nil
	case 3:
		ts, err := time.Parse(time.RFC3339Nano, parts[0])
		if err != nil {
			return model.RawLine{}, fmt.Errorf("bad timestamp %q", parts[0])
		}
		text := parts[2]
		if strings.HasPrefix(text, `"`) {
			if text, err = strconv.Unquote(text); err != nil {
				return model.RawLine{}, fmt.Errorf("bad quoted text: %w", err)
			}
		}
		return model.RawLine{Received: ts, Channel: parts[1], Text: text}, nil
	}
	return model.RawLine{}, fmt.Errorf("want channel and text separated by a tab")
}

// FormatLine renders a raw line in the recorded form.
func FormatLine(raw model.RawLine) string {
	return raw.Received.UTC().Format(time.RFC3339Nano) + "\t" + raw.Channel + "\t" + strconv.Quote(raw.Text)
}

// Recorder appends live lines to a file for later replay.
type Recorder struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// NewRecorder opens (or creates) path for appending.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("replay recorder: %w", err)
	}
	return &Recorder{f: f, w: bufio.NewWriter(f)}, nil
}

// Record appends one line.
func (r *Recorder) Record(raw model.RawLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.WriteString(FormatLine(raw) + "\n"); err != nil {
		return fmt.Errorf("replay recorder: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return fmt.Errorf("replay recorder: %w", err)
	}
	return r.f.Close()
}
