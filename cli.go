package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"TimeRing/store"
	"TimeRing/timer"

	"github.com/spf13/cobra"
)

const (
	appVersion   = "1.0.0"
	appDeveloper = "Lusan Sapkota"
)

type options struct {
	ConfigDir string
	SetSound  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "timering",
		Short:        "TimeRing - A lightweight desktop timer application",
		Version:      appVersion,
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Launch the window
  timering

  # Set the default alarm sound and launch
  timering --set-sound /path/to/sound.mp3

  # Print saved timers
  timering list
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveConfigDir(opts.ConfigDir)
			if err != nil {
				return err
			}
			return runGUI(dir, opts.SetSound, cmd.OutOrStdout())
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("TimeRing {{.Version}}\nDeveloper: %s\n", appDeveloper))

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", envOr("TIMERING_CONFIG_DIR", ""), "Directory holding timers.json and settings.json")
	cmd.Flags().StringVar(&opts.SetSound, "set-sound", "", "Set default alarm sound file path")

	cmd.AddCommand(newListCmd(opts))
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print saved timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveConfigDir(opts.ConfigDir)
			if err != nil {
				return err
			}
			snaps, err := store.NewTimerStore(filepath.Join(dir, store.TimersFile)).Load(time.Now())
			if err != nil {
				return err
			}
			return printTimers(cmd.OutOrStdout(), snaps, time.Now())
		},
	}
}

func printTimers(w io.Writer, snaps []timer.Snapshot, now time.Time) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "No saved timers.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tREMAINING\tTOTAL\tID")
	for _, s := range snaps {
		t := timer.FromSnapshot(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Name, t.State(), timer.FormatTime(t.Recompute(now)), timer.FormatTime(s.TotalSeconds), s.ID)
	}
	return tw.Flush()
}

// resolveConfigDir returns flagDir, created if needed, or the default
// config directory.
func resolveConfigDir(flagDir string) (string, error) {
	if flagDir == "" {
		return store.ConfigDir()
	}
	if err := os.MkdirAll(flagDir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return flagDir, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
