// Package irc reads the recent changes feed from an IRC server. The feed
// is read-only: the connector registers, joins the project channels and
// forwards every channel message. Registration, keepalive, nick collisions
// and reconnects are handled by ircevent.
package irc

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"

	"github.com/crimson-sun/rcwatch/internal/connector"
	"github.com/crimson-sun/rcwatch/internal/model"
)

const (
	DefaultEndpoint = "irc.wikimedia.org:6667"
	defaultNick     = "rcwatch"

	// Servers cap a line at 512 bytes, but the feed server does not.
	maxLineSize = 64 * 1024
	// Channels per JOIN command.
	joinBatch = 20

	minBackoff     = time.Second
	maxBackoff     = 2 * time.Minute
	reconnectDelay = 15 * time.Second
	keepAlive      = 4 * time.Minute
)

func init() {
	connector.Register("irc", func() connector.Connector {
		return New()
	})
}

// Connector implements connector.Connector for an IRC feed.
type Connector struct {
	logger     *slog.Logger
	now        func() time.Time
	minBackoff time.Duration
	reconnect  time.Duration
}

// New creates an IRC connector.
func New() *Connector {
	return &Connector{
		logger:     slog.Default().With("connector", "irc"),
		now:        time.Now,
		minBackoff: minBackoff,
		reconnect:  reconnectDelay,
	}
}

// Stream connects and keeps the feed connected until ctx is cancelled.
// The first connection is retried with exponential backoff; once registered,
// the client reconnects and rejoins on its own.
func (c *Connector) Stream(ctx context.Context, cfg connector.Config) (<-chan model.RawLine, error) {
	if len(cfg.Channels) == 0 {
		return nil, errors.New("irc connector: no channels to join")
	}
	addr := cfg.Endpoint
	if addr == "" {
		addr = DefaultEndpoint
	}
	nick := cfg.Nick
	if nick == "" {
		nick = defaultNick
	}

	ch := make(chan model.RawLine, 256)
	conn := c.client(ctx, addr, nick, cfg.Channels, ch)

	go func() {
		defer close(ch)
		backoff := c.minBackoff
		for {
			err := conn.Connect()
			if err == nil {
				break
			}
			c.logger.Warn("feed connection failed, retrying", "addr", addr, "error", err, "in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}

		stop := context.AfterFunc(ctx, conn.Quit)
		defer stop()
		conn.Loop()
	}()
	return ch, nil
}

// client configures an ircevent connection that joins channels on every
// registration and forwards channel messages to out.
func (c *Connector) client(ctx context.Context, addr, nick string, channels []string, out chan<- model.RawLine) *ircevent.Connection {
	conn := &ircevent.Connection{
		Server:        addr,
		Nick:          nick,
		User:          nick,
		RealName:      "rcwatch",
		QuitMessage:   "shutting down",
		ReconnectFreq: c.reconnect,
		KeepAlive:     keepAlive,
		MaxLineLen:    maxLineSize,
		Log:           slog.NewLogLogger(c.logger.Handler(), slog.LevelDebug),
	}

	conn.AddConnectCallback(func(ircmsg.Message) {
		c.logger.Info("connected to feed", "addr", addr, "nick", conn.CurrentNick(), "channels", len(channels))
		for batch := range slices.Chunk(channels, joinBatch) {
			if err := conn.Join(strings.Join(batch, ",")); err != nil {
				c.logger.Warn("join failed", "error", err)
				return
			}
		}
	})
	conn.AddDisconnectCallback(func(ircmsg.Message) {
		if ctx.Err() == nil {
			c.logger.Warn("feed connection lost, reconnecting", "addr", addr, "in", c.reconnect)
		}
	})
	conn.AddCallback("PRIVMSG", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		raw := model.RawLine{Received: c.now(), Channel: e.Params[0], Text: e.Params[1]}
		select {
		case out <- raw:
		case <-ctx.Done():
		}
	})
	return conn
}
