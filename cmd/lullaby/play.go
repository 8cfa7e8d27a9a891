package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlayCommand(cc *commandContext) *cobra.Command {
	var (
		loop   bool
		volume int
	)

	cmd := &cobra.Command{
		Use:   "play <sound-id>",
		Short: "Play a sound without the interface until it ends or Ctrl-C",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("volume") {
				cc.config.Volume = config.ClampVolume(volume)
			}

			out := cmd.OutOrStdout()
			notifier := player.NotifierFunc(func(kind player.ErrorKind, message string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", message)
			})

			eng, err := newEngine(cc.config, cc.metricsAddr, notifier)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			refreshCatalog(ctx, eng.tracks, cc.config.CatalogURL)

			id := args[0]
			if _, ok := eng.tracks.Get(id); !ok {
				return fmt.Errorf("unknown sound %q (see 'lullaby tracks')", id)
			}

			finished := make(chan player.PlaybackState, 1)
			var (
				mu   sync.Mutex
				last player.Status = -1
			)
			eng.controller.OnChange(func(state player.PlaybackState) {
				mu.Lock()
				defer mu.Unlock()
				if state.Status == last {
					return
				}
				last = state.Status
				printState(out, state)
				if isTerminal(state.Status) {
					select {
					case finished <- state:
					default:
					}
				}
			})

			if loop && !eng.controller.Snapshot().Looping {
				eng.controller.ToggleLoop()
			}
			if err := eng.controller.Play(ctx, id); err != nil {
				return err
			}
			eng.tracks.MarkPlayed(id)

			select {
			case <-ctx.Done():
				eng.controller.Stop()
				log.Info().Msg("Playback interrupted")
				return nil
			case state := <-finished:
				if state.Status == player.StatusError {
					return fmt.Errorf("playback failed: %s", state.LastError.Message())
				}
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Repeat the sound until interrupted")
	cmd.Flags().IntVar(&volume, "volume", config.DefaultVolume, "Volume percent (0-100)")
	return cmd
}

func isTerminal(status player.Status) bool {
	return status == player.StatusEnded || status == player.StatusError
}

func printState(w io.Writer, state player.PlaybackState) {
	switch state.Status {
	case player.StatusError:
		fmt.Fprintf(w, "%-8s %s\n", state.Status, state.LastError.Message())
	case player.StatusPlaying, player.StatusReady:
		fmt.Fprintf(w, "%-8s %s [%s]\n", state.Status, state.TrackID, state.ActiveTier.Short())
	default:
		fmt.Fprintf(w, "%-8s %s\n", state.Status, state.TrackID)
	}
}
