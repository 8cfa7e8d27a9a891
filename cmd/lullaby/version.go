package main

import (
	"fmt"

	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s v%s\n", config.AppName, config.AppVersion)
			fmt.Fprintln(out, config.AppDescription)
			return nil
		},
	}
}
