package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and undo file movements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistory(ctx, cmd, limit)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of movements to show")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "undo <id>",
		Short: "Move a file back to where it came from",
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
			movement, err := client.Undo(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to %s\n", movement.Filename, movement.FromPath)
			return nil
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show aggregate movement statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stats, err := client.HistoryStats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Movements: %d total, %d completed, %d undone\n",
				stats.TotalMoves, stats.CompletedMoves, stats.UndoneMoves)
			fmt.Fprintf(out, "Success rate: %s\n", percent(stats.SuccessRate))
			fmt.Fprintf(out, "Average confidence: %s\n", percent(stats.AvgConfidence))
			if len(stats.ByCategory) > 0 {
				names := make([]string, 0, len(stats.ByCategory))
				for name := range stats.ByCategory {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name, strconv.Itoa(stats.ByCategory[name])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Category", "Moves"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return nil
		},
	})

	return historyCmd
}

func listHistory(ctx *commandContext, cmd *cobra.Command, limit int) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	movements, err := client.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(movements) == 0 {
		fmt.Fprintln(out, "No movements recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(movements))
	for _, movement := range movements {
		rows = append(rows, []string{
			strconv.FormatInt(movement.ID, 10),
			movement.Filename,
			movement.Category,
			percent(movement.Confidence),
			movement.Status,
			relativeTime(movement.MovedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "File", "Category", "Confidence", "Status", "Moved"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
