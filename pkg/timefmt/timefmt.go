// Package timefmt renders millisecond durations for operator-facing output.
package timefmt

import (
	"strconv"
	"strings"
)

const hourMS = 3_600_000

// FormatMillis renders a remaining-time value like "2d 3h 5m".
// Seconds are only shown for durations under one hour; zero or negative
// input renders as "Finished".
func FormatMillis(ms int64) string {
	if ms <= 0 {
		return "Finished"
	}

	total := ms / 1000
	seconds := total % 60
	minutes := (total / 60) % 60
	hours := (total / 3600) % 24
	days := total / 86400

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}
	if ms < hourMS && seconds > 0 {
		parts = append(parts, strconv.FormatInt(seconds, 10)+"s")
	}

	if len(parts) == 0 {
		// Sub-second remainder.
		return "<1s"
	}
	return strings.Join(parts, " ")
}
