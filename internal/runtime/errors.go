package runtime

import (
	"github.com/manav03panchal/bikeguard/internal/errors"
)

// Exit codes returned by the CLI.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitUsage  = 2
	ExitSystem = 3
)

// FormatError formats an error with its suggestion, if one is known.
func FormatError(err error) string {
	msg := err.Error()
	if suggestion := errors.GetSuggestion(err); suggestion != "" {
		msg += "\n" + suggestion
	}
	return msg
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.Classify(err) {
	case errors.CategoryUser:
		return ExitUsage
	case errors.CategorySystem:
		return ExitSystem
	default:
		return ExitError
	}
}
