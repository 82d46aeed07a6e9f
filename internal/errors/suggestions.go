package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	ErrNotActive:             "Run 'bikeguard monitor' or press 'a' in the dashboard to start protection.",
	ErrNoAlert:               "Nothing to cancel: no countdown is running.",
	ErrAlertInProgress:       "Cancel the running countdown or wait for it to finish.",
	ErrContactNotFound:       "Use 'bikeguard contact list' to see contact IDs.",
	ErrContactFieldsRequired: "Provide both a name and a phone number.",
	ErrInvalidPhone:          "Use an international number such as '+44 7700 900123'.",
	ErrInvalidThreshold:      "Pick an impact threshold between 1.0 and 16.0 g.",
	ErrInvalidCountdown:      "Pick a countdown between 3 and 120 seconds.",
	ErrIncidentNotFound:      "Use 'bikeguard incidents' to see recorded incidents.",
	ErrWebhookNotFound:       "Use 'bikeguard webhook list' to see configured webhooks.",
	ErrInvalidURL:            "Provide a valid URL starting with https:// (or http:// for localhost).",
	ErrInvalidTimestamp:      "Try formats like 'yesterday', 'last week', or '2 hours ago'.",
	ErrSensorUnavailable:     "Check the sensor source in config.yaml (mqtt broker/topic or replay file).",
	ErrLocationUnavailable:   "Check the GPS source in config.yaml. Alerts are still sent without coordinates.",
	ErrOpenerUnavailable:     "Install xdg-utils (Linux) or set alert.opener in config.yaml.",

	ErrDiskFull:           "Free up disk space and try again.",
	ErrDatabaseCorrupted:  "Move the data directory (~/.local/share/bikeguard/) aside and re-add contacts.",
	ErrNetworkUnavailable: "Check your connection. Webhook relays will retry automatically.",
	ErrLockHeld:           "Another bikeguard instance is running. Use 'bikeguard daemon stop' or check for stale processes.",
	ErrTimeout:            "The operation took too long. Try again or check your network connection.",
	ErrPermissionDenied:   "Check file permissions in your data directory (~/.local/share/bikeguard/).",
}

// GetSuggestion returns a suggestion for an error, if available.
// It walks the error chain to find matching suggestions.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	// A UserError carrying its own suggestion wins over the sentinel table.
	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}

	for knownErr, suggestion := range Suggestions {
		if errors.Is(err, knownErr) {
			return suggestion
		}
	}

	return ""
}

// CommandExamples provides example commands for common errors.
var CommandExamples = map[error][]string{
	ErrContactFieldsRequired: {
		"bikeguard contact add \"Alex Doe\" \"+44 7700 900123\"",
	},
	ErrInvalidThreshold: {
		"bikeguard settings threshold 3.5",
	},
	ErrInvalidCountdown: {
		"bikeguard settings countdown 15",
	},
	ErrInvalidTimestamp: {
		"bikeguard incidents --since yesterday",
		"bikeguard incidents --since \"last week\"",
	},
}

// GetExamples returns example commands for an error.
func GetExamples(err error) []string {
	for knownErr, examples := range CommandExamples {
		if errors.Is(err, knownErr) {
			return examples
		}
	}
	return nil
}
