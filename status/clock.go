package status

import "time"

// Clock supplies the current time to a Store.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// elapsedSeconds returns the whole seconds between start and now.
// A clock that stepped backwards yields 0 rather than a negative value.
func elapsedSeconds(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
