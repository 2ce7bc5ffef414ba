package search

import (
	"fmt"
	"strconv"
)

// FormatDuration renders a duration in seconds as M:SS, or H:MM:SS from one
// hour up. Non-positive durations render as "0:00".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FormatViews renders a view count in abbreviated form: "1.2B views",
// "3.4M views", "5.6K views", or the plain integer below one thousand.
func FormatViews(count int64) string {
	if count <= 0 {
		return "0 views"
	}

	switch {
	case count >= 1_000_000_000:
		return fmt.Sprintf("%.1fB views", float64(count)/1_000_000_000)
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fM views", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fK views", float64(count)/1_000)
	default:
		return strconv.FormatInt(count, 10) + " views"
	}
}
