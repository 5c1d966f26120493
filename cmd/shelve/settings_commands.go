package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shelve/internal/api"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change engine settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSettings(ctx, cmd)
		},
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the live engine settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSettings(ctx, cmd)
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one engine setting",
		Long: `Change one engine setting. Keys:
  text-threshold, image-threshold, audio-threshold, video-threshold (0-100)
  text-model, image-model, audio-model, video-model (on/off)
  fallback (skip or review)
  max-file-size (e.g. 500MB)
  skip-hidden, preserve-metadata, create-backups (on/off)`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			current, err := client.Settings(cmd.Context())
			if err != nil {
				return err
			}
			if err := applySetting(&current, args[0], args[1]); err != nil {
				return err
			}
			updated, err := client.UpdateSettings(cmd.Context(), current)
			if err != nil {
				return err
			}
			printSettings(cmd, updated)
			return nil
		},
	})

	return settingsCmd
}

func showSettings(ctx *commandContext, cmd *cobra.Command) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	current, err := client.Settings(cmd.Context())
	if err != nil {
		return err
	}
	printSettings(cmd, current)
	return nil
}

func printSettings(cmd *cobra.Command, s api.Settings) {
	maxSize := humanize.IBytes(uint64(s.MaxFileSize))
	rows := [][]string{
		{"text-threshold", strconv.Itoa(s.TextThreshold), "model " + onOff(s.TextModelEnabled)},
		{"image-threshold", strconv.Itoa(s.ImageThreshold), "model " + onOff(s.ImageModelEnabled)},
		{"audio-threshold", strconv.Itoa(s.AudioThreshold), "model " + onOff(s.AudioModelEnabled)},
		{"video-threshold", strconv.Itoa(s.VideoThreshold), "model " + onOff(s.VideoModelEnabled)},
		{"fallback", s.FallbackBehavior, ""},
		{"max-file-size", maxSize, ""},
		{"skip-hidden", onOff(s.SkipHiddenFiles), ""},
		{"preserve-metadata", onOff(s.PreserveMetadata), ""},
		{"create-backups", onOff(s.CreateBackups), ""},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Setting", "Value", ""},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
}

func applySetting(s *api.Settings, key, value string) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "text-threshold":
		return setThreshold(&s.TextThreshold, value)
	case "image-threshold":
		return setThreshold(&s.ImageThreshold, value)
	case "audio-threshold":
		return setThreshold(&s.AudioThreshold, value)
	case "video-threshold":
		return setThreshold(&s.VideoThreshold, value)
	case "text-model":
		return setBool(&s.TextModelEnabled, value)
	case "image-model":
		return setBool(&s.ImageModelEnabled, value)
	case "audio-model":
		return setBool(&s.AudioModelEnabled, value)
	case "video-model":
		return setBool(&s.VideoModelEnabled, value)
	case "fallback":
		behavior := strings.ToLower(strings.TrimSpace(value))
		if behavior != "skip" && behavior != "review" {
			return fmt.Errorf("fallback must be skip or review, got %q", value)
		}
		s.FallbackBehavior = behavior
		return nil
	case "max-file-size":
		parsed, err := humanize.ParseBytes(value)
		if err != nil || parsed == 0 {
			return fmt.Errorf("invalid size %q", value)
		}
		s.MaxFileSize = int64(parsed)
		return nil
	case "skip-hidden":
		return setBool(&s.SkipHiddenFiles, value)
	case "preserve-metadata":
		return setBool(&s.PreserveMetadata, value)
	case "create-backups":
		return setBool(&s.CreateBackups, value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
}

func setThreshold(target *int, value string) error {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 || parsed > 100 {
		return fmt.Errorf("threshold must be 0-100, got %q", value)
	}
	*target = parsed
	return nil
}

func setBool(target *bool, value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "yes", "1":
		*target = true
	case "off", "false", "no", "0":
		*target = false
	default:
		return fmt.Errorf("expected on or off, got %q", value)
	}
	return nil
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
