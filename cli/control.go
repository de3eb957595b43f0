package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomis52/gymsync/clients/statusclient"
)

// controlFunc performs one mutation for id.
type controlFunc func(ctx context.Context, client *statusclient.Client, id string) error

// runControl loads the config, resolves the identity and applies fn.
func runControl(cmd *cobra.Command, opts *options, fn controlFunc, done string) error {
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
	if err := fn(ctx, client, id); err != nil {
		return err
	}
	fmt.Fprintln(opts.out, styleSuccess.Render("✓ ")+done)
	return nil
}

func newStartCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start <activity>",
		Short: "Start a new activity, discarding any current one",
		Example: `  gymsync start Running
  gymsync start "Leg day at the gym"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			activity := strings.Join(args, " ")
			return runControl(cmd, opts, func(ctx context.Context, c *statusclient.Client, id string) error {
				return c.Start(ctx, id, activity)
			}, "Started "+styleActivity.Render(activity))
		},
	}
}

func newPauseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, opts, func(ctx context.Context, c *statusclient.Client, id string) error {
				return c.Pause(ctx, id)
			}, "Paused")
		},
	}
}

func newResumeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the paused activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, opts, func(ctx context.Context, c *statusclient.Client, id string) error {
				return c.Resume(ctx, id)
			}, "Resumed")
		},
	}
}

func newStopCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop and remove the activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, opts, func(ctx context.Context, c *statusclient.Client, id string) error {
				return c.Stop(ctx, id)
			}, "Stopped")
		},
	}
}
