package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/rcwatch/internal/connector"
	"github.com/crimson-sun/rcwatch/internal/engine"
	"github.com/crimson-sun/rcwatch/internal/logging"
	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/pipeline"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/store"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <channel>",
	Short: "Classify raw feed lines read from stdin",
	Long: `Reads one raw feed notification per line from stdin, as received on
the given channel, and prints each classified event as JSON. Lines that
produce no event print the reason on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Classify a recorded feed through the configured outputs",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.String("since", "", "skip lines received before this RFC 3339 time")
	f.String("until", "", "skip lines received at or after this RFC 3339 time")
	f.Int("limit", 0, "stop after this many lines (0 = all)")
	f.StringSlice("channels", nil, "only replay these channels")
}

// loadRegistry brings every stored project online without fetching.
func loadRegistry(cmd *cobra.Command) (*project.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	reg := project.NewRegistry()
	if err := store.LoadAll(cmd.Context(), st, reg, logging.For("store")); err != nil {
		logging.For("rcwatch").Warn("some projects failed to load", "error", err)
	}
	return reg, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	eng := engine.New(reg, nil)
	enc := json.NewEncoder(cmd.OutOrStdout())

	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		ev, err := eng.Process(model.RawLine{Received: time.Now(), Channel: args[0], Text: sc.Text()})
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			continue
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	params := connector.QueryParams{}
	params.Limit, _ = cmd.Flags().GetInt("limit")
	for flag, dst := range map[string]*time.Time{"since": &params.Start, "until": &params.End} {
		v, _ := cmd.Flags().GetString(flag)
		if v == "" {
			continue
		}
		if *dst, err = time.Parse(time.RFC3339, v); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	channels, _ := cmd.Flags().GetStringSlice("channels")

	logger := logging.For("rcwatch")
	out, _, err := buildOutputs(cfg, nil, logger)
	if err != nil {
		return err
	}
	ctor, err := connector.Get("replay")
	if err != nil {
		return err
	}
	p := pipeline.New(ctor(), engine.New(reg, nil), out, pipeline.WithLogger(logger))
	defer p.Close()

	err = p.Query(cmd.Context(), connector.Config{Provider: "replay", Endpoint: args[0], Channels: channels}, params)
	if err != nil {
		return err
	}
	logger.Info("replay finished", "skipped_lines", p.Skipped(), "reactor_failures", p.ReactorFailures())
	return nil
}
