// Package parser turns human input such as "yesterday" or "45s" into times
// and durations.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// TimestampResult holds the parsed timestamp and any error.
type TimestampResult struct {
	Time  time.Time
	Error error
}

// periodRegex matches period expressions like "this week", "last month".
var periodRegex = regexp.MustCompile(`(?i)^(this|current|last|previous)\s+(hour|day|week|month|year)$`)

// ParseTimestamp parses a natural language timestamp relative to now.
// Period names resolve to the start of the period.
func ParseTimestamp(input string, now time.Time) TimestampResult {
	input = strings.TrimSpace(input)
	lower := strings.ToLower(input)
	switch lower {
	case "", "now":
		return TimestampResult{Time: now}
	case "today":
		return TimestampResult{Time: startOfDay(now)}
	case "yesterday":
		return TimestampResult{Time: startOfDay(now).AddDate(0, 0, -1)}
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return TimestampResult{Time: t}
	}

	if match := periodRegex.FindStringSubmatch(input); match != nil {
		return TimestampResult{Time: periodStart(now, match[1], match[2])}
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil {
		return TimestampResult{Error: NewTimestampError(input)}
	}
	return TimestampResult{Time: result.Time}
}

// ParseSince parses the --since filter. Future times are rejected.
func ParseSince(input string, now time.Time) (time.Time, error) {
	res := ParseTimestamp(input, now)
	if res.Error != nil {
		return time.Time{}, res.Error
	}
	if res.Time.After(now) {
		e := NewTimestampError(input)
		e.Message = "time is in the future"
		return time.Time{}, e
	}
	return res.Time, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// periodStart resolves expressions like "last week" to the period's first instant.
func periodStart(now time.Time, modifier, period string) time.Time {
	previous := strings.EqualFold(modifier, "last") || strings.EqualFold(modifier, "previous")

	switch strings.ToLower(period) {
	case "hour":
		t := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
		if previous {
			t = t.Add(-time.Hour)
		}
		return t

	case "day":
		t := startOfDay(now)
		if previous {
			t = t.AddDate(0, 0, -1)
		}
		return t

	case "week":
		// Weeks start on Monday.
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		t := startOfDay(now).AddDate(0, 0, -weekday+1)
		if previous {
			t = t.AddDate(0, 0, -7)
		}
		return t

	case "month":
		t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		if previous {
			t = t.AddDate(0, -1, 0)
		}
		return t

	default: // year
		t := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		if previous {
			t = t.AddDate(-1, 0, 0)
		}
		return t
	}
}
