// Package websocket broadcasts classified events to websocket subscribers.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/output"
)

const (
	defaultClientBuffer = 256
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = pongWait * 9 / 10
)

// Envelope wraps each event sent to a subscriber.
type Envelope struct {
	Type      string      `json:"type"`
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Payload   model.Event `json:"payload"`
}

// Option configures a websocket Output.
type Option func(*Output)

// WithClientBuffer sets how many events may queue per subscriber before
// further events to it are dropped. Default: 256.
func WithClientBuffer(n int) Option {
	return func(o *Output) { o.clientBuffer = n }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Output) { o.logger = l }
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	project string // "" subscribes to every project
	once    sync.Once
}

// Output is an output.Output and an http.Handler. Subscribers connect to
// the handler, optionally with ?project=<key> to receive one wiki only.
// A subscriber that cannot keep up loses events rather than slowing the feed.
type Output struct {
	upgrader     websocket.Upgrader
	verbosity    output.Verbosity
	clientBuffer int
	logger       *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// New creates a websocket output.
func New(verbosity output.Verbosity, opts ...Option) *Output {
	o := &Output{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		verbosity:    verbosity,
		clientBuffer: defaultClientBuffer,
		logger:       slog.Default(),
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "websocket")
	return o
}

// Handler returns the HTTP handler subscribers connect to.
func (o *Output) Handler() http.Handler {
	return http.HandlerFunc(o.serve)
}

// Clients returns the number of connected subscribers.
func (o *Output) Clients() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.clients)
}

func (o *Output) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{
		conn:    conn,
		send:    make(chan []byte, o.clientBuffer),
		project: r.URL.Query().Get("project"),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		conn.Close()
		return
	}
	o.clients[c] = struct{}{}
	o.wg.Add(2)
	o.mu.Unlock()

	o.logger.Info("subscriber connected", "remote", r.RemoteAddr, "project", c.project)
	go o.writeLoop(c)
	go o.readLoop(c)
}

// readLoop discards client messages and notices disconnects.
func (o *Output) readLoop(c *client) {
	defer o.wg.Done()
	defer o.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only goroutine writing to c.conn.
func (o *Output) writeLoop(c *client) {
	defer o.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				o.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				o.remove(c)
				return
			}
		}
	}
}

func (o *Output) remove(c *client) {
	c.once.Do(func() {
		o.mu.Lock()
		delete(o.clients, c)
		o.mu.Unlock()
		close(c.send)
	})
}

// Write broadcasts the event to every matching subscriber without blocking.
func (o *Output) Write(_ context.Context, event model.Event) error {
	data, err := json.Marshal(Envelope{
		Type:      "event",
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   output.FormatEvent(event, o.verbosity),
	})
	if err != nil {
		return fmt.Errorf("websocket output: marshal: %w", err)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	for c := range o.clients {
		if c.project != "" && c.project != event.Project {
			continue
		}
		select {
		case c.send <- data:
		default:
			o.logger.Debug("subscriber too slow, dropping event", "project", event.Project)
		}
	}
	return nil
}

// Close disconnects every subscriber.
func (o *Output) Close() error {
	o.mu.Lock()
	o.closed = true
	clients := make([]*client, 0, len(o.clients))
	for c := range o.clients {
		clients = append(clients, c)
	}
	o.mu.Unlock()

	for _, c := range clients {
		o.remove(c)
	}
	o.wg.Wait()
	return nil
}
