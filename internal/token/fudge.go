package token

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var humanDuration = regexp.MustCompile(`(?i)^(-?\d*\.?\d+) *(milliseconds?|msecs?|ms|seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|years?|yrs?|y)$`)

// ParseFudge parses an expiry fudge window. A bare number is a count of
// seconds. Anything else is either a Go duration ("1m30s") or a single
// human duration ("10 seconds", "2 mins", "1d", "1 week").
func ParseFudge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFudge, nil
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("invalid fudge window %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	m := humanDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid fudge window %q", s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fudge window %q: %w", s, err)
	}
	return time.Duration(n * float64(unitOf(m[2]))), nil
}

func unitOf(u string) time.Duration {
	u = strings.ToLower(u)
	switch {
	case u == "ms" || strings.HasPrefix(u, "msec") || strings.HasPrefix(u, "milli"):
		return time.Millisecond
	case u == "s" || strings.HasPrefix(u, "sec"):
		return time.Second
	case u == "m" || strings.HasPrefix(u, "min"):
		return time.Minute
	case strings.HasPrefix(u, "h"):
		return time.Hour
	case u == "d" || strings.HasPrefix(u, "day"):
		return 24 * time.Hour
	case u == "w" || strings.HasPrefix(u, "week"):
		return 7 * 24 * time.Hour
	default:
		// years, as 365.25 days
		return time.Duration(365.25 * 24 * float64(time.Hour))
	}
}
