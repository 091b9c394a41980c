package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/lifecycle"
	"github.com/gfxsel/gfxsel/pkg/stores"
)

func newRunCommand() *cobra.Command {
	var (
		dbPath  string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Select a backend and keep it active",
		Long: `Run a full selection attempt and hold the winning backend active until
interrupted. While running, the Prometheus metrics endpoint serves probe,
selection and lifecycle metrics, and every run and event is recorded in
the selection history database.`,
		Example: `  # Run with the default profile
  gfxsel run

  # Run with history persistence and metrics
  gfxsel run --profile render.yaml --db gfxsel.db

  # Run without the metrics endpoint
  gfxsel run --metrics=false`,
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

			if metrics {
				if err := tel.StartMetricsServer(); err != nil {
					return err
				}
			}

			cfg, err := profile.SelectionConfig(tel)
			if err != nil {
				return err
			}

			// History store is optional; without --db nothing persists.
			var recorder *stores.Recorder
			if dbPath != "" {
				store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
				if err != nil {
					return err
				}
				if err := store.Init(cmd.Context()); err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
				recorder = stores.NewRecorder(store, tel)
				recorder.Attach()
				defer recorder.Detach()
			}

			controller := lifecycle.NewController(backend.NewDefaultRegistry(), tel)

			result, err := controller.Initialize(cmd.Context(), cfg)
			if recorder != nil {
				if rerr := recorder.RecordResult(cmd.Context(), stores.RunTriggerInitialize, cfg, result, controller.ProbeResults()); rerr != nil {
					log.Warn().Err(rerr).Msg("Failed to record selection run")
				}
			}
			if err != nil {
				printResult(result)
				return err
			}

			printResult(result)
			log.Info().
				Str("family", string(result.Family)).
				Msg("Backend active, press Ctrl-C to shut down")

			// Hold until interrupted, logging uptime periodically.
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					log.Info().Msg("Shutting down")
					return controller.Shutdown(context.Background())
				case <-ticker.C:
					log.Debug().
						Dur("uptime", controller.Uptime()).
						Str("family", string(controller.ActiveFamily())).
						Msg("Backend healthy")
				}
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "selection history database path")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "serve the Prometheus metrics endpoint")

	return cmd
}
