package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/selection"
)

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [family...]",
		Short: "Probe backend families without selecting one",
		Long: `Probe one or more backend families: construct each, attempt a cheap
initialization, collect its capability report and score it. Probed
instances are shut down immediately; nothing stays active.

With no arguments, every candidate family from the profile is probed.`,
		Example: `  # Probe everything the profile would consider
  gfxsel probe

  # Probe specific families
  gfxsel probe vulkan software

  # Machine-readable output
  gfxsel probe --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := LoadProfile(profilePath)
			if err != nil {
				return err
			}
			cfg, err := profile.SelectionConfig(nil)
			if err != nil {
				return err
			}

			families := cfg.Candidates()
			if len(args) > 0 {
				families = make([]backend.Family, len(args))
				for i, name := range args {
					families[i] = backend.Family(name)
				}
			}

			registry := backend.NewDefaultRegistry()
			prober := selection.NewProber(registry)
			results := prober.ProbeAll(cmd.Context(), families, cfg, nil)

			// Probed instances are not kept; shut them down right away.
			for _, r := range results {
				if r.Instance != nil {
					_ = r.Instance.Shutdown()
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tAVAILABLE\tSCORE\tMEETS-REQ\tDEVICE\tDURATION\tREASON")
			for _, r := range results {
				score, meets := "-", "-"
				if r.Score != nil {
					score = fmt.Sprintf("%.1f", r.Score.Total)
					meets = fmt.Sprintf("%v", r.Score.MeetsRequirements)
				}
				device := r.DeviceName
				if device == "" {
					device = "-"
				}
				reason := r.Reason
				if reason == "" {
					reason = "-"
				}
				fmt.Fprintf(w, "%s\t%v\t%s\t%s\t%s\t%s\t%s\n",
					r.Family, r.Available, score, meets, device, r.Duration.Round(time.Microsecond), reason)
			}
			return w.Flush()
		},
	}

	return cmd
}
