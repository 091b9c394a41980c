package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gfxsel/gfxsel/pkg/backend"
)

func newFamiliesCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "families",
		Short: "List known backend families",
		Long: `List the backend families the engine knows about, with their static
metadata: display name, whether they are modern explicit APIs, and which
platforms they support. By default only families supported on the current
platform are shown.`,
		Example: `  # List families supported on this platform
  gfxsel families

  # List every known family
  gfxsel families --all

  # JSON output
  gfxsel families --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			platform := backend.CurrentPlatform()

			type familyRow struct {
				Family      string   `json:"family"`
				DisplayName string   `json:"display_name"`
				Modern      bool     `json:"modern"`
				LowPower    bool     `json:"low_power"`
				Platforms   []string `json:"platforms"`
				Supported   bool     `json:"supported"`
			}

			var rows []familyRow
			for _, f := range backend.Families() {
				info, _ := f.Info()
				supported := f.SupportsPlatform(platform)
				if !all && !supported {
					continue
				}
				platforms := make([]string, len(info.Platforms))
				for i, p := range info.Platforms {
					platforms[i] = string(p)
				}
				rows = append(rows, familyRow{
					Family:      string(f),
					DisplayName: info.DisplayName,
					Modern:      info.Modern,
					LowPower:    info.LowPower,
					Platforms:   platforms,
					Supported:   supported,
				})
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			fmt.Printf("Platform: %s\n\n", platform)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tNAME\tMODERN\tLOW-POWER\tSUPPORTED")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%v\n",
					row.Family, row.DisplayName, row.Modern, row.LowPower, row.Supported)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include families not supported on this platform")

	return cmd
}
