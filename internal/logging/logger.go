// Package logging defines the structured-logging interface used across
// premiumgate. Implementations wrap log/slog or zerolog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "unlock granted", "content_id", id, "access_level", level)
type Logger interface {
	// Debug logs verbose diagnostics.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds a Logger for the given format. "console" selects the zerolog
// console writer, "zerolog" selects zerolog JSON output and anything else
// falls back to slog JSON on stdout.
func New(format string) Logger {
	switch format {
	case "console":
		return NewConsoleZerologLogger()
	case "zerolog":
		return NewStdoutZerologLogger()
	default:
		return NewStdoutSlogLogger()
	}
}
