package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/rcwatch/internal/config"
	"github.com/crimson-sun/rcwatch/internal/connector"
	"github.com/crimson-sun/rcwatch/internal/connector/replay"
	"github.com/crimson-sun/rcwatch/internal/engine"
	"github.com/crimson-sun/rcwatch/internal/logging"
	"github.com/crimson-sun/rcwatch/internal/metrics"
	"github.com/crimson-sun/rcwatch/internal/output/websocket"
	"github.com/crimson-sun/rcwatch/internal/pipeline"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/reloader"
	"github.com/crimson-sun/rcwatch/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Join the feed and classify notifications until interrupted",
	Long: `Brings every stored project (and any listed in feed.projects) online,
joins their feed channels, and writes classified events to the outputs.

SIGHUP refetches every project from its wiki. A project that fails to
rebuild keeps its previous patterns.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringSlice("projects", nil, "project keys to watch, e.g. en.wikipedia")
	f.String("connector", "irc", "feed connector: irc or replay")
	f.String("replay-file", "", "recorded feed to replay")
	f.String("record-file", "", "append every received line to this file")
	f.String("output", "stdout", "comma-separated outputs: stdout, file, webhook, websocket")
	f.Bool("pretty", false, "indent JSON output")
	f.Bool("text", false, "one human-readable line per event instead of JSON")
	f.String("http-addr", "", "serve /metrics, /healthz and /ws on this address")
	f.Bool("watch", false, "reload projects when their stored records change")

	bind := map[string]string{
		"feed.projects":    "projects",
		"feed.connector":   "connector",
		"feed.replay_file": "replay-file",
		"feed.record_file": "record-file",
		"output.format":    "output",
		"output.pretty":    "pretty",
		"output.text":      "text",
		"http.addr":        "http-addr",
		"store.watch":      "watch",
	}
	for key, flag := range bind {
		bindFlag(key, f.Lookup(flag))
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.For("rcwatch")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	sink, closeSink, err := buildSink(cfg, m, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := project.NewRegistry()
	rl := reloader.New(newBuilder(cfg), st, reg,
		reloader.WithDebugSink(sink),
		reloader.WithMetrics(m),
		reloader.WithLogger(logger))
	if err := rl.Start(ctx, cfg.Feed.Projects); err != nil {
		logger.Warn("some projects are offline", "error", err)
	}
	if reg.Len() == 0 {
		return errors.New("no projects online; add one with 'rcwatch fetch <key>' or set feed.projects")
	}

	out, ws, err := buildOutputs(cfg, m, logger)
	if err != nil {
		return err
	}

	ctor, err := connector.Get(cfg.Feed.Connector)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithDebugSink(sink),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	}
	if cfg.Feed.RecordFile != "" {
		rec, err := replay.NewRecorder(cfg.Feed.RecordFile)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, pipeline.WithRecorder(rec))
	}
	p := pipeline.New(ctor(), engine.New(reg, nil), out, opts...)
	defer p.Close()

	_ = m.RegisterGaugeFunc("pipeline", "last_message_age_seconds",
		"Seconds since the last feed line arrived.", func() float64 {
			last := p.LastMessage()
			if last.IsZero() {
				return -1
			}
			return time.Since(last).Seconds()
		})

	if cfg.HTTP.Addr != "" {
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: httpMux(m, ws, p), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("http listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go refreshOnHangup(ctx, rl, logger)

	if cfg.Store.Watch {
		if fs, ok := st.(*store.File); ok {
			w, err := store.NewWatcher(fs.Dir())
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()
			go rl.Watch(ctx, w.Changes)
		} else {
			logger.Warn("store.watch only applies to the file store", "driver", cfg.Store.Driver)
		}
	}

	connCfg := feedConfig(cfg, reg)
	logger.Info("rcwatch starting", "version", config.Version, "connector", connCfg.Provider,
		"projects", reg.Len(), "channels", len(connCfg.Channels))

	err = p.Stream(ctx, connCfg)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down", "skipped_lines", p.Skipped())
		return nil
	}
	return err
}

// feedConfig builds the connector config; with no explicit project list,
// every online project's channel is joined.
func feedConfig(cfg config.Config, reg *project.Registry) connector.Config {
	channels := cfg.Feed.Channels()
	if len(channels) == 0 {
		channels = connector.Channels(reg.Keys())
	}
	endpoint := cfg.Feed.Server
	if cfg.Feed.Connector == "replay" {
		endpoint = cfg.Feed.ReplayFile
	}
	return connector.Config{
		Provider: cfg.Feed.Connector,
		Endpoint: endpoint,
		Nick:     cfg.Feed.Nick,
		Channels: channels,
	}
}

func refreshOnHangup(ctx context.Context, rl *reloader.Reloader, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, refetching projects")
			if err := rl.Refresh(ctx); err != nil {
				logger.Warn("refresh incomplete", "error", err)
			}
		}
	}
}

func httpMux(m *metrics.Metrics, ws *websocket.Output, p *pipeline.Pipeline) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if ws != nil {
		mux.Handle("/ws", ws.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		last := p.LastMessage()
		if last.IsZero() || time.Since(last) > 10*time.Minute {
			http.Error(w, "feed quiet", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
