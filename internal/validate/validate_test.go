package validate

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// =============================================================================
// Contact Tests
// =============================================================================

func TestContact(t *testing.T) {
	tests := []struct {
		name     string
		contact  [2]string
		sentinel error
	}{
		{"valid", [2]string{"Alex", "+44 7700 900123"}, nil},
		{"valid_parens", [2]string{"Sam", "(555) 123-4567"}, nil},
		{"blank_name", [2]string{"   ", "555"}, errors.ErrContactFieldsRequired},
		{"blank_phone", [2]string{"Alex", "  "}, errors.ErrContactFieldsRequired},
		{"letters_in_phone", [2]string{"Alex", "call me"}, errors.ErrInvalidPhone},
		{"no_digits", [2]string{"Alex", "+-()"}, errors.ErrInvalidPhone},
		{"too_many_digits", [2]string{"Alex", "1234567890123456"}, errors.ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Contact(tt.contact[0], tt.contact[1])
			if tt.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, errors.IsUserError(err))
		})
	}
}

func TestContactNameTooLong(t *testing.T) {
	err := Contact(strings.Repeat("a", MaxContactNameLength+1), "555")
	assert.Error(t, err)
}

// =============================================================================
// Settings Tests
// =============================================================================

func TestThreshold(t *testing.T) {
	assert.NoError(t, Threshold(MinThreshold))
	assert.NoError(t, Threshold(3.5))
	assert.NoError(t, Threshold(MaxThreshold))
	assert.ErrorIs(t, Threshold(0.5), errors.ErrInvalidThreshold)
	assert.ErrorIs(t, Threshold(16.5), errors.ErrInvalidThreshold)
}

func TestCountdown(t *testing.T) {
	assert.NoError(t, Countdown(MinCountdown))
	assert.NoError(t, Countdown(10))
	assert.NoError(t, Countdown(MaxCountdown))
	assert.ErrorIs(t, Countdown(2), errors.ErrInvalidCountdown)
	assert.ErrorIs(t, Countdown(121), errors.ErrInvalidCountdown)
}

func TestCoordinates(t *testing.T) {
	assert.NoError(t, Coordinates(51.5, -0.12))
	assert.NoError(t, Coordinates(-90, 180))
	assert.Error(t, Coordinates(91, 0))
	assert.Error(t, Coordinates(0, -181))
}

// =============================================================================
// Webhook Tests
// =============================================================================

func TestWebhookNameAndType(t *testing.T) {
	assert.NoError(t, WebhookName("family-chat"))
	assert.Error(t, WebhookName(""))
	assert.Error(t, WebhookName("has space"))

	assert.NoError(t, WebhookType("telegram"))
	err := WebhookType("pager")
	assert.Error(t, err)
	assert.Contains(t, errors.GetSuggestion(err), "discord")
}

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://example.com/webhook", false},
		{"https_with_port", "https://example.com:8443/hook", false},
		{"localhost_http", "http://localhost:8080/hook", false},
		{"loopback_http", "http://127.0.0.1/hook", false},

		{"empty", "", true},
		{"http_remote", "http://example.com/webhook", true},
		{"ftp_scheme", "ftp://example.com/file", true},
		{"no_scheme", "example.com/webhook", true},
		{"missing_host", "https:///path", true},
		{"too_long", "https://example.com/" + strings.Repeat("a", MaxURLLength), true},
		{"private_ip", "https://192.168.1.1/webhook", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := URL(tt.url)
			if tt.wantErr {
				assert.Error(t, err, "URL: %s", tt.url)
			} else {
				assert.NoError(t, err, "URL: %s", tt.url)
			}
		})
	}
}

func TestIsInternalIP(t *testing.T) {
	assert.True(t, isInternalIP(net.ParseIP("10.1.2.3")))
	assert.True(t, isInternalIP(net.ParseIP("172.20.0.1")))
	assert.True(t, isInternalIP(net.ParseIP("fe80::1")))
	assert.False(t, isInternalIP(net.ParseIP("1.1.1.1")))
}

func TestNonEmpty(t *testing.T) {
	assert.NoError(t, NonEmpty("name", "x"))
	assert.Error(t, NonEmpty("name", "  "))
}

// =============================================================================
// Sanitize Tests
// =============================================================================

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Alex Doe", SanitizeName("  Alex\x00 Doe \x07"))
	assert.Equal(t, "Line one two", SanitizeName("Line one\ntwo"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "émo...", TruncateString("émotional", 6))
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "incident_2026-05-01", SafeFilename("incident:2026-05-01"))
	assert.Equal(t, "unnamed", SafeFilename(" .. "))
}
