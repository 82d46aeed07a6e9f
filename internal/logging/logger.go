// Package logging provides structured logging for BikeGuard on top of slog.
// Attributes that carry phone numbers or webhook URLs are masked before they
// reach the output handler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex

	// Debug reports whether the logger was initialized at debug level.
	Debug bool
)

func init() {
	defaultLogger = slog.New(NewMaskingHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	JSON      bool
	Output    io.Writer // default: stderr
	AddSource bool
	NoMask    bool // disable phone/URL masking (tests only)
}

// DefaultConfig is used by the CLI: warnings and errors only, text format.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelWarn,
		Output: os.Stderr,
	}
}

// DaemonConfig is used by the background monitor; the output is usually the daemon log file.
func DaemonConfig(w io.Writer) Config {
	return Config{
		Level:  slog.LevelInfo,
		JSON:   true,
		Output: w,
	}
}

// DebugConfig returns a configuration suitable for --debug.
func DebugConfig() Config {
	return Config{
		Level:     slog.LevelDebug,
		JSON:      true,
		Output:    os.Stderr,
		AddSource: true,
	}
}

// Init replaces the global logger.
func Init(cfg Config) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	if !cfg.NoMask {
		handler = NewMaskingHandler(handler)
	}

	defaultLogger = slog.New(handler)
	Debug = cfg.Level <= slog.LevelDebug
}

// InitDebug initializes the logger in debug mode with JSON output.
func InitDebug() {
	Init(DebugConfig())
}

// Logger returns the current logger instance.
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// With returns a logger with additional attributes.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Component returns a logger tagged with a component name, e.g. "guard" or "sensor".
func Component(name string) *slog.Logger {
	return Logger().With(KeyComponent, name)
}

// Info logs at INFO level.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// DebugLog logs at DEBUG level.
func DebugLog(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Warn logs at WARN level.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at ERROR level.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// InfoContext logs at INFO level with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).InfoContext(ctx, msg, args...)
}

// WarnContext logs at WARN level with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).WarnContext(ctx, msg, args...)
}

// ErrorContext logs at ERROR level with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).ErrorContext(ctx, msg, args...)
}

// Common structured logging fields.
const (
	KeyComponent  = "component"
	KeyRequestID  = "request_id"
	KeyIncidentID = "incident_id"
	KeyOperation  = "op"
	KeyDuration   = "duration_ms"
	KeyError      = "error"
	KeyGForce     = "g_force"
	KeyJerk       = "jerk"
	KeyThreshold  = "threshold"
	KeyContact    = "contact"
	KeyPhone      = "phone"
	KeyWebhook    = "webhook"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyCount      = "count"
)
