package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/reloader"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <key> [root-url]",
	Short: "Fetch a project's namespaces and messages and store its record",
	Long: `Fetches the namespace listing and interface messages of one wiki,
synthesizes its patterns, and saves the project record.

The root URL defaults to https://<key>.org/.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFetch,
}

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a stored project record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored projects",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var reloadCmd = &cobra.Command{
	Use:   "reload [key...]",
	Short: "Refetch stored projects from their wikis",
	Long:  "Refetches the given stored projects, or all of them. A project that fails to rebuild keeps its stored record.",
	RunE:  runReload,
}

func init() {
	fetchCmd.Flags().String("interwiki", "", "interwiki prefix for the project, e.g. w:en")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	id := project.DefaultIdentity(args[0])
	if len(args) == 2 {
		id.RootURL = args[1]
	}
	id.Interwiki, _ = cmd.Flags().GetString("interwiki")

	rl := reloader.New(newBuilder(cfg), st, project.NewRegistry())
	p, err := rl.Bring(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d namespaces, root %s\n", p.Key(), p.Namespaces().Len(), p.RootURL())
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	data, err := project.MarshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	keys, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tINTERWIKI\tROOT")
	for _, key := range keys {
		rec, err := st.Load(cmd.Context(), key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Key, rec.Interwiki, rec.RootURL)
	}
	return tw.Flush()
}

func runReload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	keys := args
	if len(keys) == 0 {
		if keys, err = st.List(cmd.Context()); err != nil {
			return err
		}
	}
	rl := reloader.New(newBuilder(cfg), st, project.NewRegistry())
	return rl.Refresh(cmd.Context(), keys...)
}
