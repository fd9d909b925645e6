// Package util hosts small formatting helpers shared by log lines and alert bodies.
package util //nolint:revive // package name util is shared by service and notify code

import "time"

// FormatDuration renders a run or call duration truncated to milliseconds.
// Zero or negative durations (an untimed run) render as "n/a".
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "n/a"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}
