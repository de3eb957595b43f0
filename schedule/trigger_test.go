package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepSchedule fires every d, allowing sub-second intervals in tests.
type stepSchedule time.Duration

func (s stepSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "every five seconds", spec: "@every 5s"},
		{name: "hourly descriptor", spec: "@hourly"},
		{name: "daily at 2am", spec: "0 2 * * *"},
		{name: "every minute", spec: "* * * * *"},
		{name: "empty", spec: "", wantErr: true},
		{name: "wrong format", spec: "not a cron spec", wantErr: true},
		{name: "too few fields", spec: "0 2 *", wantErr: true},
		{name: "invalid value", spec: "60 2 * * *", wantErr: true},
		{name: "bad duration", spec: "@every soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.spec, func(context.Context) {}, testLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSpec)
				assert.Nil(t, trigger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spec, trigger.Spec())
		})
	}
}

func TestTrigger_NextRun(t *testing.T) {
	trigger, err := NewTrigger("0 2 * * *", func(context.Context) {}, testLogger())
	require.NoError(t, err)
	trigger.now = func() time.Time {
		return time.Date(2025, 7, 1, 18, 0, 0, 0, time.Local)
	}

	next := trigger.NextRun()
	assert.Equal(t, time.Date(2025, 7, 2, 2, 0, 0, 0, time.Local), next)
}

func TestEvery(t *testing.T) {
	trigger := Every(5*time.Second, func(context.Context) {}, testLogger())
	base := time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC)
	trigger.now = func() time.Time { return base }

	assert.Equal(t, "@every 5s", trigger.Spec())
	assert.Equal(t, base.Add(5*time.Second), trigger.NextRun())
}

func TestTrigger_RunFiresRepeatedly(t *testing.T) {
	var count atomic.Int32
	trigger := newTrigger("test", stepSchedule(5*time.Millisecond), func(context.Context) {
		count.Add(1)
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trigger.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTrigger_CancellationBeforeFirstRun(t *testing.T) {
	var count atomic.Int32
	trigger := Every(time.Minute, func(context.Context) {
		count.Add(1)
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	trigger.Start(ctx)

	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, int32(0), count.Load())
}

func TestTrigger_RunsDoNotOverlap(t *testing.T) {
	var running, overlaps, count atomic.Int32
	trigger := newTrigger("test", stepSchedule(time.Millisecond), func(context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		running.Add(-1)
		count.Add(1)
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger.Start(ctx)

	assert.Eventually(t, func() bool { return count.Load() >= 5 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), overlaps.Load())
}
