// Package schedule runs a function periodically according to a cron schedule.
//
// Trigger accepts standard 5-field cron specs as well as descriptors such as
// "@hourly" and "@every 5s". It is designed to be started once and run until
// the context is cancelled.
//
// Example usage:
//
//	trigger, err := schedule.NewTrigger("@every 5s", syncer.Tick, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Run(ctx) // blocks until ctx is done
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSpec is returned when the schedule specification cannot be parsed.
var ErrInvalidSpec = errors.New("invalid schedule spec")

// Func is the work executed on every scheduled tick.
type Func func(ctx context.Context)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Trigger executes a Func according to a schedule.
type Trigger struct {
	spec     string
	schedule cron.Schedule
	fn       Func
	logger   *slog.Logger
	now      func() time.Time
}

// NewTrigger creates a Trigger from a cron spec or descriptor.
// Returns ErrInvalidSpec if the specification cannot be parsed.
func NewTrigger(spec string, fn Func, logger *slog.Logger) (*Trigger, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidSpec, err)
	}
	return newTrigger(spec, schedule, fn, logger), nil
}

// Every creates a Trigger that fires at a fixed interval. Intervals below
// one second are rounded up to one second.
func Every(interval time.Duration, fn Func, logger *slog.Logger) *Trigger {
	return newTrigger(fmt.Sprintf("@every %s", interval), cron.Every(interval), fn, logger)
}

func newTrigger(spec string, schedule cron.Schedule, fn Func, logger *slog.Logger) *Trigger {
	return &Trigger{
		spec:     spec,
		schedule: schedule,
		fn:       fn,
		logger:   logger,
		now:      time.Now,
	}
}

// Spec returns the specification the trigger was created from.
func (t *Trigger) Spec() string {
	return t.spec
}

// NextRun returns the next scheduled run time from now.
func (t *Trigger) NextRun() time.Time {
	return t.schedule.Next(t.now())
}

// Start launches a goroutine running the trigger and returns immediately.
// The goroutine exits when ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	go t.Run(ctx)
}

// Run blocks, executing the Func on schedule until ctx is cancelled.
// The next run is scheduled after the previous one returns, so runs never
// overlap.
func (t *Trigger) Run(ctx context.Context) {
	for {
		nextRun := t.schedule.Next(t.now())
		wait := time.Until(nextRun)

		t.logger.Debug("waiting for next scheduled run",
			"spec", t.spec,
			"next_run", nextRun,
			"wait_duration", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Debug("schedule trigger shutting down", "spec", t.spec)
			return
		case <-timer.C:
			t.fn(ctx)
		}
	}
}
