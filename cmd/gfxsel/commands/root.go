package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	verbose     bool
	jsonOutput  bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gfxsel",
		Short: "gfxsel - Graphics Backend Selection Engine",
		Long: `gfxsel probes the graphics backend families available on the current
platform, scores their capabilities, and selects the best one under a
configurable strategy with retry and fallback.

Features:
  - Parallel, time-bounded capability probing
  - Multi-factor capability scoring with tunable weights
  - Eight selection strategies plus a preferred-family override
  - Initialization retry with backoff and fallback chains
  - Hot reload between families without restarting
  - Starlark scoring hooks for custom policy
  - SQLite-backed selection history`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "selection profile file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newFamiliesCommand())
	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newSelectCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
