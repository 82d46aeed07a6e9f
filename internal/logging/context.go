package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	incidentIDKey
)

// GenerateRequestID returns a 16 character hex string.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithIncidentID returns a context carrying the incident being handled.
func WithIncidentID(ctx context.Context, incidentID string) context.Context {
	return context.WithValue(ctx, incidentIDKey, incidentID)
}

// NewRequestContext creates a background context with a fresh request ID.
func NewRequestContext() context.Context {
	return WithRequestID(context.Background(), GenerateRequestID())
}

// RequestIDFromContext returns "" when no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// IncidentIDFromContext returns "" when no incident ID is set.
func IncidentIDFromContext(ctx context.Context) string {
	return stringValue(ctx, incidentIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// LoggerFromContext returns the global logger annotated with the request
// and incident IDs stored in ctx.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := Logger()
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With(KeyRequestID, id)
	}
	if id := IncidentIDFromContext(ctx); id != "" {
		logger = logger.With(KeyIncidentID, id)
	}
	return logger
}
