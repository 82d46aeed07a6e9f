package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// =============================================================================
// TimeParseError Tests
// =============================================================================

func TestTimeParseErrorMessage(t *testing.T) {
	err := NewDurationError("soon")
	assert.Equal(t, "invalid duration 'soon': could not parse duration", err.Error())

	err = NewTimestampError("whenever")
	assert.Equal(t, "invalid timestamp 'whenever': could not parse time", err.Error())
}

func TestTimeParseErrorUnwrap(t *testing.T) {
	assert.True(t, errors.Is(NewDurationError("x"), errors.ErrInvalidCountdown))
	assert.True(t, errors.Is(NewTimestampError("x"), errors.ErrInvalidTimestamp))
	assert.False(t, errors.Is(NewTimestampError("x"), errors.ErrInvalidCountdown))
}

func TestFormatWithExamples(t *testing.T) {
	out := NewTimestampError("whenever").FormatWithExamples()
	assert.Contains(t, out, "Valid examples:")
	assert.Contains(t, out, "  - yesterday")
	assert.Contains(t, out, "last week")

	bare := (&TimeParseError{Input: "x", Field: "f", Message: "m"}).FormatWithExamples()
	assert.Equal(t, "invalid f 'x': m", bare)
}

func TestToUserError(t *testing.T) {
	ue := NewDurationError("soon").ToUserError()
	assert.Equal(t, "duration", ue.Field)
	assert.Equal(t, "soon", ue.Value)
	assert.Contains(t, ue.Suggestion, "seconds")
	assert.True(t, errors.Is(ue, errors.ErrInvalidCountdown))
	assert.Equal(t, errors.CategoryUser, errors.Classify(ue))

	custom := (&TimeParseError{Field: "timestamp", Input: "x", Examples: []string{"a", "b", "c", "d"}}).ToUserError()
	assert.Equal(t, "Try: a, b, c", custom.Suggestion)
}
