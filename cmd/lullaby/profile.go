package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/device"
	"github.com/glebovdev/lullaby-cli/internal/quality"
	"github.com/spf13/cobra"
)

const profileTimeout = 10 * time.Second

func newProfileCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Detect the device and network profile and the quality it selects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), profileTimeout)
			defer cancel()

			profiler := device.NewProfiler(device.NewSystemProbe(cc.config.ProbeURL))
			profile := profiler.Detect(ctx)

			writeProfile(cmd.OutOrStdout(), profile, cc.config.Quality)
			return nil
		},
	}
}

func writeProfile(w io.Writer, profile device.Profile, settings quality.Settings) {
	settings = settings.Normalize()
	mode := "auto"
	if !settings.AutoSelect {
		mode = "fixed"
	}

	fmt.Fprintf(w, "Device:         %s\n", profile.Kind())
	fmt.Fprintf(w, "Network:        %s\n", profile.Network)
	fmt.Fprintf(w, "Advanced audio: %t\n", profile.SupportsAdvancedAudioContext)
	fmt.Fprintf(w, "Quality mode:   %s (preferred %s)\n", mode, settings.PreferredTier)
	fmt.Fprintf(w, "Selected tier:  %s\n", quality.SelectTier(profile, settings))
}
