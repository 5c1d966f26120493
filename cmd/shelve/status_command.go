package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shelve/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			health, err := client.Health(cmd.Context())
			if err != nil {
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(out, "Daemon: not running (start it with `shelved`)")
					return nil
				}
				return err
			}

			fmt.Fprintf(out, "Daemon: running (pid %d)\n", health.PID)
			fmt.Fprintf(out, "Database: %s\n", health.DatabasePath)
			fmt.Fprintf(out, "Folders: %d registered, %d watched\n", health.WatchedFolders, health.ActiveWatches)
			fmt.Fprintf(out, "Categories: %d\n", health.Categories)
			return nil
		},
	}
}
