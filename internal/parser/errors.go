package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// TimeParseError is a parse failure with examples of accepted input.
type TimeParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// Unwrap lets errors.Is match the sentinel for the field.
func (e *TimeParseError) Unwrap() error {
	if e.Field == "duration" {
		return errors.ErrInvalidCountdown
	}
	return errors.ErrInvalidTimestamp
}

// FormatWithExamples returns the error message with example suggestions.
func (e *TimeParseError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}
	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// DurationExamples lists accepted countdown formats.
var DurationExamples = []string{
	"10",
	"45s",
	"1m",
	"1 min 30 sec",
	"2 minutes",
}

// TimestampExamples lists accepted --since formats.
var TimestampExamples = []string{
	"today",
	"yesterday",
	"last week",
	"3 days ago",
	"2026-03-07T08:00:00Z",
}

// NewDurationError creates a duration parse error with standard examples.
func NewDurationError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "duration",
		Message:    "could not parse duration",
		Examples:   DurationExamples,
		Suggestion: "A bare number is seconds; minutes (m) and hours (h) work too.",
	}
}

// NewTimestampError creates a timestamp parse error with standard examples.
func NewTimestampError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "timestamp",
		Message:    "could not parse time",
		Examples:   TimestampExamples,
		Suggestion: "Try 'yesterday', 'last week' or '3 days ago'.",
	}
}

// ToUserError converts a TimeParseError to a UserError for consistent handling.
func (e *TimeParseError) ToUserError() *errors.UserError {
	suggestion := e.Suggestion
	if suggestion == "" && len(e.Examples) > 0 {
		suggestion = fmt.Sprintf("Try: %s", strings.Join(e.Examples[:min(3, len(e.Examples))], ", "))
	}
	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion).WithCause(e.Unwrap())
}
