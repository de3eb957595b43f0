package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomis52/gymsync/clients/statusclient"
	"github.com/nomis52/gymsync/status"
)

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current activity and elapsed time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cfg)
			defer cancel()
			id, err := resolveIdentity(ctx, cfg)
			if err != nil {
				return err
			}
			client, err := newStatusClient(cfg)
			if err != nil {
				return err
			}

			snap, err := client.Get(ctx, id)
			if errors.Is(err, statusclient.ErrNotFound) {
				fmt.Fprintln(opts.out, styleLabel.Render("No activity"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, renderSnapshot(snap))
			return nil
		},
	}
}

// renderSnapshot formats a snapshot on one line.
func renderSnapshot(snap status.Snapshot) string {
	badge := styleRunning.Render("● running")
	if snap.Paused {
		badge = stylePaused.Render("⏸ paused")
	}
	return fmt.Sprintf("%s  %s  %s",
		badge,
		styleActivity.Render(snap.Activity),
		styleValue.Render(formatElapsed(snap.Time)))
}

// formatElapsed renders seconds as H:MM:SS.
func formatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
