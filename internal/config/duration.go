package config

import (
	"fmt"
	"strings"
	"time"
)

// durationOrDefault parses a config duration string, substituting def when
// the field is empty or zero. Negative values are rejected; key names the
// field in the error ("poll.interval" etc).
func durationOrDefault(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
