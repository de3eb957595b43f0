// Package presence mirrors a user's activity timer into a rich-presence
// display.
//
// A Syncer polls the status server for one identity on a fixed period and
// projects each snapshot onto a Display. A missing status clears the display
// once; a failed fetch leaves whatever is shown untouched and the next tick
// retries.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/gymsync/clients/statusclient"
	"github.com/nomis52/gymsync/identity"
	"github.com/nomis52/gymsync/metrics"
	"github.com/nomis52/gymsync/schedule"
	"github.com/nomis52/gymsync/status"
)

const (
	// DefaultInterval is the polling period.
	DefaultInterval = 5 * time.Second
	// DefaultFetchTimeout caps the identity lookup and the snapshot fetch of
	// each tick.
	DefaultFetchTimeout = 4 * time.Second
	// DefaultTitle is the first presence line.
	DefaultTitle = "GymSync"

	pausedPrefix   = "[⏸️ Paused] "
	smallImageText = "GymSync"
	partyID        = "gymsync-party"
)

// Result is the outcome of a single tick.
type Result string

const (
	// ResultSkipped means there was no identity to poll.
	ResultSkipped Result = "skipped"
	// ResultUpdated means the display shows the fetched snapshot.
	ResultUpdated Result = "updated"
	// ResultCleared means there is no status for the identity and nothing is shown.
	ResultCleared Result = "cleared"
	// ResultError means the fetch or the display failed; the display is unchanged.
	ResultError Result = "error"
)

// SnapshotFetcher reads the status for an identity. A missing status is
// reported with an error matching statusclient.ErrNotFound or
// status.ErrNotFound. An error matching statusclient.ErrMalformedSnapshot
// clears the display like a missing status.
type SnapshotFetcher interface {
	Get(ctx context.Context, id string) (status.Snapshot, error)
}

// Config controls the sync loop.
type Config struct {
	Title        string
	Interval     time.Duration
	FetchTimeout time.Duration
	ClearOnExit  bool
}

func (c *Config) setDefaults() {
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// syncState is the projection carried between ticks.
type syncState struct {
	lastLabel string
	// baseline is the displayed start instant, nil until one is computed or
	// while paused.
	baseline *time.Time
	shown    bool
}

func (s *syncState) reset() {
	s.lastLabel = ""
	s.baseline = nil
}

// Syncer projects status snapshots onto a Display.
type Syncer struct {
	fetcher  SnapshotFetcher
	identity identity.Provider
	display  Display
	config   Config
	clock    status.Clock
	logger   *slog.Logger
	registry metrics.Registry

	ticks   metrics.CounterVec
	elapsed metrics.Gauge

	mu    sync.Mutex
	state syncState
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock sets the clock used to compute start instants.
func WithClock(c status.Clock) Option {
	return func(s *Syncer) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithRegistry sets the metrics registry.
func WithRegistry(r metrics.Registry) Option {
	return func(s *Syncer) {
		s.registry = r
	}
}

// NewSyncer creates a Syncer. Zero Config fields take their defaults.
func NewSyncer(fetcher SnapshotFetcher, provider identity.Provider, display Display, cfg Config, opts ...Option) (*Syncer, error) {
	var errs []error
	if fetcher == nil {
		errs = append(errs, errors.New("fetcher is required"))
	}
	if provider == nil {
		errs = append(errs, errors.New("identity provider is required"))
	}
	if display == nil {
		errs = append(errs, errors.New("display is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	s := &Syncer{
		fetcher:  fetcher,
		identity: provider,
		display:  display,
		config:   cfg,
		clock:    status.SystemClock{},
		logger:   slog.New(slog.DiscardHandler),
		registry: metrics.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.ticks, err = s.registry.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "sync",
		Name:      "ticks_total",
		Help:      "Sync loop ticks by result.",
	}, []string{"result"})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticks counter: %w", err)
	}
	s.elapsed, err = s.registry.NewGauge(prometheus.GaugeOpts{
		Subsystem: "sync",
		Name:      "elapsed_seconds",
		Help:      "Elapsed seconds of the last synced activity.",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elapsed gauge: %w", err)
	}
	return s, nil
}

// Run ticks every Interval until ctx is done, then clears the display when
// ClearOnExit is set. The first tick happens one Interval after Run starts.
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("presence sync started",
		"interval", s.config.Interval,
		"fetch_timeout", s.config.FetchTimeout)

	trigger := schedule.Every(s.config.Interval, func(ctx context.Context) {
		s.Tick(ctx)
	}, s.logger)
	trigger.Run(ctx)

	if s.config.ClearOnExit {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.FetchTimeout)
		defer cancel()
		if err := s.Clear(shutdownCtx); err != nil {
			s.logger.Warn("failed to clear presence on exit", "error", err)
		}
	}
	s.logger.Info("presence sync stopped")
}

// Tick performs one poll and projection.
func (s *Syncer) Tick(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.tick(ctx)
	s.ticks.With(prometheus.Labels{"result": string(result)}).Inc()
	return result
}

func (s *Syncer) tick(ctx context.Context) Result {
	identityCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	id, err := s.identity.Identity(identityCtx)
	cancel()
	if err != nil {
		s.logger.Warn("failed to resolve identity", "error", err)
		return ResultSkipped
	}
	if id == "" {
		return ResultSkipped
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	snap, err := s.fetcher.Get(fetchCtx, id)
	cancel()

	switch {
	case isNotFound(err):
		return s.clearResult(ctx)
	case errors.Is(err, statusclient.ErrMalformedSnapshot):
		s.logger.Warn("malformed status", "discord_id", id, "error", err)
		return s.clearResult(ctx)
	case err != nil:
		s.logger.Warn("failed to fetch status", "discord_id", id, "error", err)
		return ResultError
	case snap.Activity == "" || snap.Time < 0:
		return s.clearResult(ctx)
	}

	activity := s.project(snap)
	if err := s.display.SetActivity(ctx, activity); err != nil {
		s.logger.Warn("failed to update presence", "discord_id", id, "error", err)
		return ResultError
	}
	s.state.shown = true
	s.elapsed.Set(float64(snap.Time))

	s.logger.Debug("presence updated",
		"discord_id", id,
		"details", activity.Details,
		"image", activity.LargeImageKey,
		"time", snap.Time)
	return ResultUpdated
}

// project turns a snapshot into an Activity, updating the baseline when the
// label changes.
func (s *Syncer) project(snap status.Snapshot) Activity {
	label := snap.Activity
	if snap.Paused {
		label = pausedPrefix + snap.Activity
	}

	var start *time.Time
	if snap.Paused {
		s.state.baseline = nil
	} else {
		if label != s.state.lastLabel || s.state.baseline == nil {
			b := s.clock.Now().Truncate(time.Second).Add(-time.Duration(snap.Time) * time.Second)
			s.state.baseline = &b
		}
		b := *s.state.baseline
		start = &b
	}
	s.state.lastLabel = label

	return Activity{
		State:          s.config.Title,
		Details:        label,
		Start:          start,
		LargeImageKey:  ImageKey(snap.Activity),
		SmallImageKey:  DefaultImageKey,
		SmallImageText: smallImageText,
		PartyID:        partyID,
		PartySize:      [2]int{1, 1},
	}
}

// Clear removes any displayed presence and resets the projection.
func (s *Syncer) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearLocked(ctx)
}

// clearLocked keeps shown set when the display fails so the next not-found
// tick retries the clear.
func (s *Syncer) clearLocked(ctx context.Context) error {
	s.state.reset()
	s.elapsed.Set(0)
	if !s.state.shown {
		return nil
	}
	if err := s.display.ClearActivity(ctx); err != nil {
		return fmt.Errorf("failed to clear presence: %w", err)
	}
	s.state.shown = false
	s.logger.Info("presence cleared")
	return nil
}

func (s *Syncer) clearResult(ctx context.Context) Result {
	if err := s.clearLocked(ctx); err != nil {
		s.logger.Warn("failed to clear presence", "error", err)
		return ResultError
	}
	return ResultCleared
}

func isNotFound(err error) bool {
	return errors.Is(err, statusclient.ErrNotFound) || errors.Is(err, status.ErrNotFound)
}
