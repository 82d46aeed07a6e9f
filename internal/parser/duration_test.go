package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// =============================================================================
// ParseDuration Tests
// =============================================================================

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		valid bool
	}{
		{"10", 10 * time.Second, true},
		{"45s", 45 * time.Second, true},
		{"45 sec", 45 * time.Second, true},
		{"2.5", 2500 * time.Millisecond, true},
		{"1m", time.Minute, true},
		{"1m30s", 90 * time.Second, true},
		{"2 minutes", 2 * time.Minute, true},
		{"1 min 30 sec", 90 * time.Second, true},
		{"1h", time.Hour, true},
		{"", 0, false},
		{"0", 0, false},
		{"-5s", 0, false},
		{"soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := ParseDuration(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, res.Duration)
			}
		})
	}
}

// =============================================================================
// ParseSeconds Tests
// =============================================================================

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"10", 10},
		{"30s", 30},
		{"2m", 120},
		{"1.6", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeconds(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSeconds("ten")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCountdown))
}
