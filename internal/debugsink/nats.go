package debugsink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject reports are published on.
const DefaultSubject = "rcwatch.debug"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher broadcasts reports as JSON on a NATS subject so several
// instances can share one anomaly stream.
type Publisher struct {
	conn    Conn
	nc      *nats.Conn // nil when built from a Conn
	subject string
	source  string
	logger  *slog.Logger
}

// Dial connects to a NATS server and returns a Publisher on subject.
// The connection reconnects forever in the background; reports published
// while disconnected are buffered by the client.
func Dial(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "debug")
	nc, err := nats.Connect(url,
		nats.Name("rcwatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("debug sink disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("debug sink reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("debug sink: connect %s: %w", url, err)
	}
	p := NewPublisher(nc, subject, logger)
	p.nc = nc
	return p, nil
}

// NewPublisher publishes reports on an existing connection.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	host, _ := os.Hostname()
	return &Publisher{conn: conn, subject: subject, source: host, logger: logger}
}

func (p *Publisher) Report(category, code, message, detail string) {
	r := newReport(category, code, message, detail)
	r.Source = p.source
	data, err := json.Marshal(r)
	if err != nil {
		p.logger.Warn("debug report marshal failed", "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Warn("debug report publish failed", "subject", p.subject, "error", err)
	}
}

// Close drains and closes a connection opened by Dial.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
