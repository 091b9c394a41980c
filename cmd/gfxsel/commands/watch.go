package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/lifecycle"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run with hot reload on profile changes",
		Long: `Select a backend and keep it active like run, but watch the profile
file and hot reload when it changes. If the edited profile names a
different preferred family, the engine swaps to it without restarting;
if the reload fails the engine ends up in the failed state and the next
edit triggers a fresh attempt.`,
		Example: `  # Watch a profile for changes
  gfxsel watch --profile render.yaml

  # Slow down reload debouncing
  gfxsel watch --profile render.yaml --debounce 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if profilePath == "" {
				return fmt.Errorf("watch requires --profile")
			}

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
			result, err := controller.Initialize(cmd.Context(), cfg)
			printResult(result)
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			// Watch the directory: editors replace files on save, which
			// drops the watch on the file itself.
			dir := filepath.Dir(profilePath)
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}

			target := filepath.Clean(profilePath)
			var timer *time.Timer
			reload := make(chan struct{}, 1)

			log.Info().Str("profile", profilePath).Msg("Watching profile for changes")

			for {
				select {
				case <-cmd.Context().Done():
					log.Info().Msg("Shutting down")
					return controller.Shutdown(context.Background())

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != target {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
						continue
					}
					// Debounce: editors fire several events per save.
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounce, func() {
						select {
						case reload <- struct{}{}:
						default:
						}
					})

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(err).Msg("Watcher error")

				case <-reload:
					if err := reloadProfile(cmd.Context(), controller, tel); err != nil {
						log.Warn().Err(err).Msg("Hot reload failed")
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay before reloading after a change")

	return cmd
}

// reloadProfile re-reads the profile and hot reloads to its preferred family.
// When the controller is in the failed state a fresh selection attempt is
// started instead, since hot reload is only legal from initialized.
func reloadProfile(ctx context.Context, controller *lifecycle.Controller, tel *telemetry.Telemetry) error {
	profile, err := LoadProfile(profilePath)
	if err != nil {
		return err
	}
	cfg, err := profile.SelectionConfig(tel)
	if err != nil {
		return err
	}

	if controller.CurrentState() == lifecycle.StateFailed {
		result, err := controller.Initialize(ctx, cfg)
		printResult(result)
		return err
	}

	target := cfg.Preferred
	if target == "" {
		target = controller.ActiveFamily()
	}
	log.Info().Str("family", string(target)).Msg("Hot reloading")
	result, err := controller.HotReload(ctx, target)
	if result != nil {
		printResult(result)
	}
	return err
}
