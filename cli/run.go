package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomis52/gymsync/buildinfo"
	"github.com/nomis52/gymsync/clients/statusclient"
	"github.com/nomis52/gymsync/config"
	"github.com/nomis52/gymsync/logging"
	"github.com/nomis52/gymsync/metrics"
	"github.com/nomis52/gymsync/presence"
	"github.com/nomis52/gymsync/schedule"
)

const (
	metricsFlushInterval = time.Minute
	metricsFlushTimeout  = 10 * time.Second
)

func newRunCommand(opts *options) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the presence sync loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if validate {
				fmt.Fprintln(opts.out, styleSuccess.Render("✓ ")+"Configuration is valid")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSync(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the configuration and exit")
	return cmd
}

// runSync wires the sync loop from cfg and blocks until ctx is done.
func runSync(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Info("starting gymsync", "build", buildinfo.Get().String(), "backend_url", cfg.BackendURL)

	registry, push := newRegistry(cfg)

	client, err := statusclient.New(cfg.BackendURL,
		statusclient.WithAPIKey(cfg.APIKey),
		statusclient.WithLogger(logger.Logger))
	if err != nil {
		return fmt.Errorf("failed to create status client: %w", err)
	}

	syncer, err := presence.NewSyncer(client, identityProvider(cfg), presence.NewLogDisplay(logger.Logger),
		presence.Config{
			Title:        cfg.Title,
			Interval:     cfg.PollInterval,
			FetchTimeout: cfg.FetchTimeout,
			ClearOnExit:  cfg.ShouldClearOnExit(),
		},
		presence.WithLogger(logger.Logger),
		presence.WithRegistry(registry))
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	if push != nil {
		flusher := schedule.Every(metricsFlushInterval, func(ctx context.Context) {
			flushMetrics(ctx, push, logger.Logger)
		}, logger.Logger)
		go flusher.Run(ctx)
		defer flushMetrics(context.WithoutCancel(ctx), push, logger.Logger)
	}

	syncer.Run(ctx)
	logger.Info("gymsync stopped")
	return nil
}

// newRegistry returns a push registry when a remote write endpoint is
// configured and a discarding one otherwise.
func newRegistry(cfg config.Config) (metrics.Registry, *metrics.PushRegistry) {
	if cfg.Monitoring.VictoriaMetricsURL == "" {
		return metrics.Discard, nil
	}
	instance, err := os.Hostname()
	if err != nil {
		instance = "unknown"
	}
	push := metrics.NewPushRegistry(metrics.PushConfig{
		URL:      cfg.Monitoring.VictoriaMetricsURL,
		Prefix:   cfg.Monitoring.MetricsPrefix,
		Job:      cfg.Monitoring.JobName,
		Instance: instance,
	})
	return push, push
}

func flushMetrics(ctx context.Context, push *metrics.PushRegistry, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, metricsFlushTimeout)
	defer cancel()
	if err := push.Flush(ctx); err != nil {
		logger.Warn("failed to push metrics", "error", err)
	}
}
