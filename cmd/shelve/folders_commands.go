package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage watched folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFolders(ctx, cmd)
		},
	}

	foldersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watched folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFolders(ctx, cmd)
		},
	})

	foldersCmd.AddCommand(&cobra.Command{
		Use:   "add <path>",
		Short: "Register a folder and start watching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			folder, err := client.AddFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching folder %d: %s\n", folder.ID, folder.Path)
			return nil
		},
	})

	foldersCmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Stop watching a folder and delete its registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.RemoveFolder(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed folder %d\n", id)
			return nil
		},
	})

	foldersCmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a folder's watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			folder, err := client.ToggleFolder(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "disabled"
			if folder.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Folder %d %s\n", folder.ID, state)
			return nil
		},
	})

	return foldersCmd
}

func listFolders(ctx *commandContext, cmd *cobra.Command) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	folders, err := client.ListFolders(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(folders) == 0 {
		fmt.Fprintln(out, "No folders registered. Add one with `shelve folders add <path>`.")
		return nil
	}

	rows := make([][]string, 0, len(folders))
	for _, folder := range folders {
		state := "disabled"
		switch {
		case folder.PausedReason != "":
			state = "paused: " + folder.PausedReason
		case folder.Watching:
			state = "watching"
		case folder.Enabled:
			state = "enabled"
		}
		rows = append(rows, []string{
			strconv.FormatInt(folder.ID, 10),
			folder.Path,
			state,
			strconv.Itoa(folder.FileCount),
			relativeTime(folder.LastActivity),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Path", "State", "Files", "Last Activity"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}
