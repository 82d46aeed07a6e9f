// Package validate provides input validation helpers for BikeGuard.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
)

const (
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
	// MaxContactNameLength is the maximum length for a contact name.
	MaxContactNameLength = 64
	// MaxPhoneDigits is the E.164 limit.
	MaxPhoneDigits = 15

	MinThreshold = 1.0
	MaxThreshold = 16.0
	MinCountdown = 3
	MaxCountdown = 120
)

// Contact validates a contact's name and phone after trimming.
func Contact(name, phone string) error {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return errors.NewUserError("Please fill all fields", "Name and phone number are required").
			WithCause(errors.ErrContactFieldsRequired)
	}
	if utf8.RuneCountInString(name) > MaxContactNameLength {
		return errors.NewUserErrorWithField("name", name,
			"Contact name too long",
			fmt.Sprintf("Names must be %d characters or fewer", MaxContactNameLength))
	}
	return Phone(phone)
}

// Phone checks that a number has between 1 and 15 digits and only uses
// digits, spaces, '+', '-', '.', '(' and ')'.
func Phone(phone string) error {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '+' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return errors.NewUserErrorWithField("phone", phone,
				"Invalid phone number", "").WithCause(errors.ErrInvalidPhone)
		}
	}
	if digits == 0 || digits > MaxPhoneDigits {
		return errors.NewUserErrorWithField("phone", phone,
			"Invalid phone number", "").WithCause(errors.ErrInvalidPhone)
	}
	return nil
}

// Threshold validates an impact threshold in g.
func Threshold(g float64) error {
	if g < MinThreshold || g > MaxThreshold {
		return errors.NewUserErrorWithField("threshold", fmt.Sprintf("%g", g),
			"Impact threshold out of range", "").WithCause(errors.ErrInvalidThreshold)
	}
	return nil
}

// Countdown validates a countdown length in seconds.
func Countdown(seconds int) error {
	if seconds < MinCountdown || seconds > MaxCountdown {
		return errors.NewUserErrorWithField("countdown", fmt.Sprintf("%d", seconds),
			"Countdown time out of range", "").WithCause(errors.ErrInvalidCountdown)
	}
	return nil
}

// WebhookName validates a webhook name.
func WebhookName(name string) error {
	if !model.IsValidWebhookName(name) {
		return errors.NewUserErrorWithField("name", name,
			"Invalid webhook name",
			"Use letters, numbers, dashes or underscores (max 50 characters)")
	}
	return nil
}

// WebhookType validates a webhook type.
func WebhookType(t string) error {
	if !model.IsValidWebhookType(t) {
		return errors.NewUserErrorWithField("type", t,
			"Invalid webhook type",
			"Use one of: "+strings.Join(model.ValidWebhookTypes(), ", "))
	}
	return nil
}

// Coordinates validates a latitude/longitude pair.
func Coordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return errors.NewUserErrorWithField("location", fmt.Sprintf("%g,%g", lat, lon),
			"Coordinates out of range",
			"Latitude must be within ±90 and longitude within ±180")
	}
	return nil
}

// URL validates a URL for use as a webhook endpoint.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewUserError("URL cannot be empty", "Provide a valid URL")
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewUserError("URL too long", "URLs must be 2048 characters or fewer")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL format",
			"Provide a valid URL starting with https://").WithCause(errors.ErrInvalidURL)
	}

	// Check scheme
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL scheme",
			"URLs must use https:// (or http:// for localhost)")
	}

	// Check hostname exists
	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL: missing hostname",
			"Provide a valid URL like https://example.com/webhook")
	}

	// Check for localhost (http allowed)
	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"

	// Require HTTPS for non-localhost
	if parsed.Scheme == "http" && !isLocalhost {
		return errors.NewUserErrorWithField("url", rawURL,
			"HTTP not allowed for external URLs",
			"Use https:// for security. HTTP is only allowed for localhost.")
	}

	// Check for internal IPs (SSRF protection)
	if !isLocalhost {
		if err := checkInternalIP(hostname); err != nil {
			return err
		}
	}

	return nil
}

// checkInternalIP checks if a hostname resolves to an internal IP.
func checkInternalIP(hostname string) error {
	// First check if it's a direct IP
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Internal IP addresses not allowed",
				"Webhook URLs must point to external services")
		}
		return nil
	}

	// Try to resolve hostname
	ips, err := net.LookupIP(hostname)
	if err != nil {
		// DNS resolution failed - this is OK, the webhook will fail later
		return nil
	}

	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Hostname resolves to internal IP",
				"Webhook URLs must point to external services")
		}
	}

	return nil
}

// isInternalIP checks if an IP is in a private/internal range.
func isInternalIP(ip net.IP) bool {
	// Private ranges
	privateRanges := []string{
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"127.0.0.0/8",    // Loopback (except explicit localhost check)
		"169.254.0.0/16", // Link-local
		"fc00::/7",       // IPv6 private
		"fe80::/10",      // IPv6 link-local
		"::1/128",        // IPv6 loopback
	}

	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

// NonEmpty validates that a string is not empty.
func NonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewUserError(
			field+" cannot be empty",
			"Provide a value for "+field)
	}
	return nil
}
