package presence

import (
	"context"
	"log/slog"
	"time"
)

// Activity is what a rich-presence renderer shows for the user.
type Activity struct {
	// State is the first line, the configured title.
	State string
	// Details is the activity label, decorated while paused.
	Details string
	// Start makes the renderer count up from this instant. Nil while paused.
	Start *time.Time

	LargeImageKey  string
	SmallImageKey  string
	SmallImageText string

	PartyID   string
	PartySize [2]int
}

// Display renders presence. Implementations wrap a concrete renderer such as
// a Discord IPC client.
type Display interface {
	SetActivity(ctx context.Context, a Activity) error
	ClearActivity(ctx context.Context) error
}

// LogDisplay renders presence as structured log records.
type LogDisplay struct {
	logger *slog.Logger
}

// NewLogDisplay creates a LogDisplay writing to logger.
func NewLogDisplay(logger *slog.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

// SetActivity logs the presence.
func (d *LogDisplay) SetActivity(ctx context.Context, a Activity) error {
	attrs := []any{
		"state", a.State,
		"details", a.Details,
		"image", a.LargeImageKey,
		"small_image", a.SmallImageKey,
	}
	if a.Start != nil {
		attrs = append(attrs, "start", a.Start.Format(time.RFC3339))
	}
	d.logger.InfoContext(ctx, "presence updated", attrs...)
	return nil
}

// ClearActivity logs the clear.
func (d *LogDisplay) ClearActivity(ctx context.Context) error {
	d.logger.InfoContext(ctx, "presence cleared")
	return nil
}
