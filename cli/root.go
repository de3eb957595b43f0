// Package cli implements the gymsync command line client.
//
// The client runs the presence sync loop and controls the activity timer on
// the status server:
//
//	gymsync run -c ~/.config/gymsync/config.yaml
//	gymsync start "Leg day at the gym"
//	gymsync pause
//	gymsync status
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nomis52/gymsync/clients/statusclient"
	"github.com/nomis52/gymsync/config"
	"github.com/nomis52/gymsync/identity"
)

// ErrNoIdentity is returned by commands that need a Discord id when none is
// configured.
var ErrNoIdentity = errors.New("no Discord identity configured: set discord_id, discord_token or DISCORD_ID")

// options are shared by all subcommands.
type options struct {
	configPath string
	out        io.Writer
	errOut     io.Writer
}

func (o *options) loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// NewRootCommand builds the gymsync command tree.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &options{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "gymsync",
		Short: "Mirror your workout timer into Discord rich presence",
		Long: `gymsync keeps an activity timer on the GymSync status server and mirrors
it into a rich-presence display.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")

	// Add subcommands (alphabetical)
	root.AddCommand(newPauseCommand(opts))
	root.AddCommand(newResumeCommand(opts))
	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newStartCommand(opts))
	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newStopCommand(opts))
	root.AddCommand(newVersionCommand(opts))
	return root
}

// Execute runs the CLI.
func Execute() error {
	err := NewRootCommand(os.Stdout, os.Stderr).Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("error: ")+err.Error())
	}
	return err
}

// identityProvider picks the identity source from the config.
func identityProvider(cfg config.Config) identity.Provider {
	if cfg.DiscordID == "" && cfg.DiscordToken != "" {
		return identity.NewDiscord(cfg.DiscordToken)
	}
	return identity.Static(cfg.DiscordID)
}

// resolveIdentity returns the Discord id or ErrNoIdentity.
func resolveIdentity(ctx context.Context, cfg config.Config) (string, error) {
	id, err := identityProvider(cfg).Identity(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving Discord identity: %w", err)
	}
	if id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

// commandContext bounds one control command by the configured fetch timeout.
func commandContext(cmd *cobra.Command, cfg config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
}

func newStatusClient(cfg config.Config) (*statusclient.Client, error) {
	return statusclient.New(cfg.BackendURL, statusclient.WithAPIKey(cfg.APIKey))
}
