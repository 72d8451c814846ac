package logger

import "context"

// Logger is the structured logging interface used across the service. All
// methods accept a context so implementations can pick up request-scoped
// values, and a field map that may be nil.
type Logger interface {
	// Debug logs a debug-level message with optional fields
	Debug(ctx context.Context, msg string, fields map[string]interface{})

	// Info logs an info-level message with optional fields
	Info(ctx context.Context, msg string, fields map[string]interface{})

	// Warn logs a warning-level message with optional fields
	Warn(ctx context.Context, msg string, fields map[string]interface{})

	// Error logs an error-level message with optional fields
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// WithField returns a logger that adds the field to every entry it writes
	WithField(key string, value interface{}) Logger

	// WithFields returns a logger that adds the fields to every entry it writes
	WithFields(fields map[string]interface{}) Logger
}
