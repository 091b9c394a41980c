package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gfxsel/gfxsel/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the selection history database",
		Long: `Inspect past selection runs recorded by gfxsel run --db: which family
won, how long probing and initialization took, and per-family aggregate
statistics.`,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "gfxsel.db", "selection history database path")

	cmd.AddCommand(newHistoryRunsCommand(&dbPath))
	cmd.AddCommand(newHistoryStatsCommand(&dbPath))
	cmd.AddCommand(newHistoryEventsCommand(&dbPath))

	return cmd
}

func openStore(cmd *cobra.Command, dbPath string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(cmd.Context()); err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newHistoryRunsCommand(dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded selection runs",
		Example: `  # Show the last 20 runs
  gfxsel history runs

  # Show more, as JSON
  gfxsel history runs --limit 100 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tTRIGGER\tSTRATEGY\tSUCCESS\tFAMILY\tSCORE\tSTARTED\tDURATION")
			for _, run := range runs {
				family, score := "-", "-"
				if run.Family != nil {
					family = *run.Family
				}
				if run.Score != nil {
					score = fmt.Sprintf("%.1f", *run.Score)
				}
				fmt.Fprintf(w, "%.8s\t%s\t%s\t%v\t%s\t%s\t%s\t%s\n",
					run.ID, run.Trigger, run.Strategy, run.Success, family, score,
					run.StartedAt.Format(time.RFC3339),
					run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}

func newHistoryStatsCommand(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-family aggregate statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.StatsByFamily(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tWINS\tPROBES\tAVAILABLE")
			for _, st := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", st.Family, st.Wins, st.Attempts, st.Available)
			}
			return w.Flush()
		},
	}

	return cmd
}

func newHistoryEventsCommand(dbPath *string) *cobra.Command {
	var (
		runID string
		level string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded lifecycle events",
		Example: `  # Show the last 50 events
  gfxsel history events

  # Only warnings and errors for one run
  gfxsel history events --run 9f1c... --level warning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var runFilter, levelFilter *string
			if runID != "" {
				runFilter = &runID
			}
			if level != "" {
				levelFilter = &level
			}

			events, err := store.ListEvents(cmd.Context(), runFilter, levelFilter, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tLEVEL\tTYPE\tFAMILY\tMESSAGE")
			for _, e := range events {
				family := "-"
				if e.Family != nil {
					family = *e.Family
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format(time.RFC3339), e.Level, e.Type, family, e.Message)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "filter by run ID")
	cmd.Flags().StringVar(&level, "level", "", "filter by level (info, warning, error)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to list")

	return cmd
}
