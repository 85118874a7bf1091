package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/rcwatch/internal/config"
	"github.com/crimson-sun/rcwatch/internal/debugsink"
	"github.com/crimson-sun/rcwatch/internal/fetch"
	"github.com/crimson-sun/rcwatch/internal/metrics"
	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/output"
	"github.com/crimson-sun/rcwatch/internal/output/async"
	"github.com/crimson-sun/rcwatch/internal/output/file"
	"github.com/crimson-sun/rcwatch/internal/output/multi"
	"github.com/crimson-sun/rcwatch/internal/output/stdout"
	"github.com/crimson-sun/rcwatch/internal/output/webhook"
	"github.com/crimson-sun/rcwatch/internal/output/websocket"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/store"
)

func newBuilder(cfg config.Config) *project.Builder {
	f := fetch.New(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
	)
	return project.NewBuilder(f, slog.Default())
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.Path)
}

// buildOutputs assembles the configured outputs. Slow network outputs sit
// behind an async buffer that drops rather than stalls the feed. The
// websocket output is returned separately so its handler can be mounted.
func buildOutputs(cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (output.Output, *websocket.Output, error) {
	if logger == nil {
		logger = slog.Default()
	}
	verbosity, err := output.ParseVerbosity(cfg.Output.Verbosity)
	if err != nil {
		return nil, nil, err
	}
	dropped := func(e model.Event) {
		m.Dropped(e.Project, errOutputFull)
	}

	var outs []output.Output
	var ws *websocket.Output
	for _, format := range cfg.Output.Formats() {
		switch format {
		case "stdout":
			var opts []stdout.Option
			if cfg.Output.Text {
				opts = append(opts, stdout.WithText())
			}
			outs = append(outs, stdout.New(verbosity, cfg.Output.Pretty, opts...))
		case "file":
			f, err := file.New(cfg.Output.FilePath, verbosity)
			if err != nil {
				return nil, nil, err
			}
			outs = append(outs, f)
		case "webhook":
			opts := []webhook.Option{webhook.WithVerbosity(verbosity)}
			if cfg.Output.Text {
				opts = append(opts, webhook.WithTextPayload())
			}
			outs = append(outs, async.New(webhook.New(cfg.Output.WebhookURL, opts...),
				async.WithBufferSize(cfg.Output.AsyncBuffer),
				async.WithDropOnFull(),
				async.WithOnDrop(dropped),
				async.WithName("webhook")))
		case "websocket":
			ws = websocket.New(verbosity, websocket.WithLogger(logger))
			outs = append(outs, ws)
		default:
			return nil, nil, fmt.Errorf("unknown output format %q", format)
		}
	}

	var out output.Output = multi.New(outs...)
	if len(outs) == 1 {
		out = outs[0]
	}
	if len(cfg.Output.Kinds) > 0 {
		kinds := make([]model.Kind, 0, len(cfg.Output.Kinds))
		for _, k := range cfg.Output.Kinds {
			kind, _ := model.ParseKind(k)
			kinds = append(kinds, kind)
		}
		out = multi.Filter(out, kinds...)
	}
	return out, ws, nil
}

var errOutputFull = errors.New("output buffer full")

// buildSink assembles the debug sink: the log always, NATS when configured,
// with repeated reports suppressed and every report counted.
func buildSink(cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (debugsink.Sink, func() error, error) {
	sinks := debugsink.Tee{debugsink.NewLogger(logger)}
	closeFn := func() error { return nil }
	if cfg.Debug.NATSURL != "" {
		pub, err := debugsink.Dial(cfg.Debug.NATSURL, cfg.Debug.Subject, logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pub)
		closeFn = pub.Close
	}
	counted := debugsink.WithCount(sinks, m.Reported)
	return debugsink.NewSuppressor(counted, cfg.Debug.SuppressWindow), closeFn, nil
}
