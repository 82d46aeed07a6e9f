package errors

import (
	"errors"
	"syscall"
)

// Category represents the type of error for display and handling purposes.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryUser
	CategorySystem
	CategoryRecoverable
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// userSentinels are sentinel errors caused by input the user can correct.
var userSentinels = []error{
	ErrNotActive,
	ErrNoAlert,
	ErrAlertInProgress,
	ErrContactNotFound,
	ErrContactFieldsRequired,
	ErrInvalidPhone,
	ErrInvalidThreshold,
	ErrInvalidCountdown,
	ErrIncidentNotFound,
	ErrWebhookNotFound,
	ErrInvalidURL,
	ErrInvalidTimestamp,
}

// Classify determines the category of an error.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if IsUserError(err) {
		return CategoryUser
	}
	if IsRecoverableError(err) {
		return CategoryRecoverable
	}
	if IsSystemError(err) {
		return CategorySystem
	}

	for _, sentinel := range userSentinels {
		if errors.Is(err, sentinel) {
			return CategoryUser
		}
	}

	if isSystemLevel(err) {
		return CategorySystem
	}
	if isRecoverablePattern(err) {
		return CategoryRecoverable
	}

	return CategoryUnknown
}

func isSystemLevel(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOSPC, syscall.EACCES, syscall.EPERM, syscall.EIO, syscall.EROFS:
			return true
		}
	}

	return errors.Is(err, ErrDiskFull) ||
		errors.Is(err, ErrDatabaseCorrupted) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrSensorUnavailable) ||
		errors.Is(err, ErrOpenerUnavailable)
}

func isRecoverablePattern(err error) bool {
	if errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrLockHeld) ||
		errors.Is(err, ErrLocationUnavailable) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR, syscall.ETIMEDOUT, syscall.ECONNREFUSED, syscall.ECONNRESET:
			return true
		}
	}

	return false
}

// FormatByCategory returns a user-appropriate error message based on category.
func FormatByCategory(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	suggestion := GetSuggestion(err)

	switch Classify(err) {
	case CategoryUser:
		if suggestion != "" {
			return msg + "\n\nTry: " + suggestion
		}
		return msg
	case CategorySystem:
		if suggestion != "" {
			return "System error: " + msg + "\n\n" + suggestion
		}
		return "System error: " + msg
	case CategoryRecoverable:
		return msg + " (will retry automatically)"
	default:
		return msg
	}
}
