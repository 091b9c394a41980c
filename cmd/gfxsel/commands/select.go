package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/lifecycle"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

func newSelectCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Run one full selection attempt",
		Long: `Run the full pipeline once: probe every candidate family, rank the
results under the profile's strategy, initialize the winner with retries
and fallback, then shut the backend down again and report the outcome.

Useful for verifying what the engine would pick on this machine without
keeping anything running.`,
		Example: `  # Select with the default profile
  gfxsel select

  # Select with a profile and an overall timeout
  gfxsel select --profile render.yaml --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := LoadProfile(profilePath)
			if err != nil {
				return err
			}

			tel, err := buildTelemetry(profile, cmd.Root().Version)
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(context.Background()) }()

			cfg, err := profile.SelectionConfig(tel)
			if err != nil {
				return err
			}

			controller := lifecycle.NewController(backend.NewDefaultRegistry(), tel)

			op := telemetry.StartOperation(tel.WithContext(cmd.Context()), "select",
				telemetry.AttrStrategy.String(string(cfg.Strategy)))
			result := <-controller.InitializeAsync(op.Ctx, cfg, timeout)
			op.Logger.Infof("selection finished in %s", op.Timer.Duration())
			op.End(result.Err)
			defer func() { _ = controller.Shutdown(context.Background()) }()

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printResult(result)
			}

			if !result.Success {
				return fmt.Errorf("selection failed: %w", result.Err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall selection timeout")

	return cmd
}

// printResult renders a terminal selection result for humans.
func printResult(result *lifecycle.InitResult) {
	if result.Success {
		fmt.Printf("Selected: %s (%s)\n", result.Family, result.Family.DisplayName())
		if result.Score != nil {
			fmt.Printf("Score:    %.1f (feature %.1f, performance %.1f, stability %.1f, platform %.1f)\n",
				result.Score.Total, result.Score.FeatureScore, result.Score.PerformanceScore,
				result.Score.StabilityScore, result.Score.PlatformScore)
		}
	} else {
		fmt.Printf("Selection failed: %v\n", result.Err)
	}
	fmt.Printf("Duration: %s (probe %s, init %s)\n",
		result.Duration().Round(time.Millisecond),
		result.ProbeDuration.Round(time.Millisecond),
		result.InitDuration.Round(time.Millisecond))
	if len(result.Tried) > 0 {
		fmt.Printf("Tried:    %v\n", result.Tried)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("Warning:  %s\n", warning)
	}
	for family, reason := range result.Diagnostics {
		fmt.Printf("Rejected: %s: %s\n", family, reason)
	}
}

// buildTelemetry constructs telemetry from a profile. The metrics endpoint
// only makes sense for long-running commands; run and watch start it
// explicitly.
func buildTelemetry(profile *Profile, version string) (*telemetry.Telemetry, error) {
	cfg := profile.TelemetryConfig(version)
	return telemetry.NewTelemetry(cfg)
}
