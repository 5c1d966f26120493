package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"shelve/internal/api"
	"shelve/internal/daemonctl"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var detach bool
	var sync bool

	cmd := &cobra.Command{
		Use:   "process <folder-id>",
		Short: "Run every file in a folder through the engine",
		Long: "Run every file in a folder through the classification engine. " +
			"By default the run happens in the background and progress is streamed until it finishes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if sync {
				summary, err := client.ProcessFolder(cmd.Context(), folderID)
				if err != nil {
					return err
				}
				printSummary(cmd, summary)
				return nil
			}

			accepted, err := client.ProcessFolderAsync(cmd.Context(), folderID)
			if err != nil {
				return err
			}
			if detach {
				fmt.Fprintf(out, "Started job %s for folder %d\n", accepted.JobID, folderID)
				fmt.Fprintf(out, "Track it with `shelve progress %d`.\n", folderID)
				return nil
			}
			return watchProgress(ctx, cmd, client, folderID)
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "Start the run and return immediately")
	cmd.Flags().BoolVar(&sync, "sync", false, "Block on a single request instead of polling progress")
	return cmd
}

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "progress <folder-id>",
		Short: "Show progress for a folder's bulk run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if follow {
				return watchProgress(ctx, cmd, client, folderID)
			}
			progress, err := client.Progress(cmd.Context(), folderID)
			if err != nil {
				return err
			}
			printProgress(cmd, progress)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the job reaches a terminal state")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <folder-id>",
		Short: "Cancel a folder's running bulk job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Cancel(cmd.Context(), folderID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for folder %d\n", folderID)
			return nil
		},
	}
}

// watchProgress polls the job until it reaches a terminal state, rendering a
// live bar on terminals and periodic lines otherwise.
func watchProgress(ctx *commandContext, cmd *cobra.Command, client *daemonctl.Client, folderID int64) error {
	interval := 800 * time.Millisecond
	if cfg, err := ctx.ensureConfig(); err == nil && cfg.Workflow.ProgressPollMS > 0 {
		interval = time.Duration(cfg.Workflow.ProgressPollMS) * time.Millisecond
	}

	var bar *progressbar.ProgressBar
	for {
		progress, err := client.Progress(cmd.Context(), folderID)
		if err != nil {
			return err
		}

		done := progress.Completed + progress.Failed
		if stdoutIsTerminal() {
			if bar == nil {
				bar = progressbar.NewOptions(progress.Total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription(fmt.Sprintf("Processing folder %d", folderID)),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(os.Stderr)
					}),
				)
			}
			_ = bar.Set(done)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d done, %d failed, %d in progress\n",
				progress.Status, done, progress.Total, progress.Failed, progress.InProgress)
		}

		switch progress.Status {
		case "completed", "failed", "cancelled":
			if bar != nil {
				_ = bar.Finish()
			}
			printProgress(cmd, progress)
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(interval):
		}
	}
}

func printProgress(cmd *cobra.Command, progress api.JobProgress) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s (folder %d): %s\n", progress.JobID, progress.FolderID, progress.Status)
	fmt.Fprintf(out, "  %d total, %d completed, %d failed, %d in progress\n",
		progress.Total, progress.Completed, progress.Failed, progress.InProgress)
	if progress.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", progress.Error)
	}
}

func printSummary(cmd *cobra.Command, summary api.ProcessSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d of %d files\n", summary.ProcessedCount, summary.FileCount)
	if summary.LowConfidence > 0 {
		fmt.Fprintf(out, "  %d below the confidence threshold\n", summary.LowConfidence)
	}
	if summary.IgnoredCount > 0 {
		fmt.Fprintf(out, "  %d ignored\n", summary.IgnoredCount)
	}
	if summary.FailedCount > 0 {
		fmt.Fprintf(out, "  %d failed\n", summary.FailedCount)
	}
}
