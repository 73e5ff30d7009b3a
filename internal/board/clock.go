package board

import (
	"context"
	"fmt"
	"time"
)

// FormatElapsed renders d as mm:ss, or h:mm:ss from one hour on. Negative
// durations render as zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Elapsed formats the time between start and now.
func Elapsed(start, now time.Time) string {
	return FormatElapsed(now.Sub(start))
}

// Tick calls fn with the current time every interval until ctx is done.
func Tick(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}
