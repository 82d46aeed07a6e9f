package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DurationResult represents the result of parsing a duration.
type DurationResult struct {
	Duration time.Duration
	Valid    bool
}

// durationPattern matches "45", "45s", "2 minutes", "1m30s" and "1 min 30 sec".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes|s|sec|secs|second|seconds)?\s*(?:(\d+(?:\.\d+)?)\s*(s|sec|secs|second|seconds))?$`)

// ParseDuration parses a human-readable duration. A bare number is seconds.
func ParseDuration(input string) DurationResult {
	input = strings.TrimSpace(input)
	if input == "" {
		return DurationResult{}
	}

	if d, err := time.ParseDuration(input); err == nil {
		return DurationResult{Duration: d, Valid: d > 0}
	}

	matches := durationPattern.FindStringSubmatch(input)
	if matches == nil {
		return DurationResult{}
	}

	value, _ := strconv.ParseFloat(matches[1], 64)
	total := unitToDuration(value, strings.ToLower(matches[2]))

	// Trailing seconds, as in "1 min 30 sec".
	if matches[3] != "" {
		value, _ := strconv.ParseFloat(matches[3], 64)
		total += unitToDuration(value, "s")
	}

	if total <= 0 {
		return DurationResult{}
	}
	return DurationResult{Duration: total, Valid: true}
}

func unitToDuration(value float64, unit string) time.Duration {
	switch unit {
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(value * float64(time.Hour))
	case "m", "min", "mins", "minute", "minutes":
		return time.Duration(value * float64(time.Minute))
	default:
		return time.Duration(value * float64(time.Second))
	}
}

// ParseSeconds parses a countdown length and rounds it to whole seconds.
func ParseSeconds(input string) (int, error) {
	res := ParseDuration(input)
	if !res.Valid {
		return 0, NewDurationError(input)
	}
	return int(math.Round(res.Duration.Seconds())), nil
}
