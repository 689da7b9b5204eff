package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts zerolog to the Logger interface. Key–value args are
// passed to zerolog as a field list.
type ZerologLogger struct {
	l zerolog.Logger
}

func NewZerologLogger(w io.Writer) *ZerologLogger {
	return &ZerologLogger{l: zerolog.New(w).With().Timestamp().Logger()}
}

func NewStdoutZerologLogger() *ZerologLogger {
	return NewZerologLogger(os.Stdout)
}

func NewConsoleZerologLogger() *ZerologLogger {
	return NewZerologLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

func (z *ZerologLogger) Debug(ctx context.Context, msg string, args ...any) {
	z.l.Debug().Ctx(ctx).Fields(args).Msg(msg)
}

func (z *ZerologLogger) Info(ctx context.Context, msg string, args ...any) {
	z.l.Info().Ctx(ctx).Fields(args).Msg(msg)
}

func (z *ZerologLogger) Warn(ctx context.Context, msg string, args ...any) {
	z.l.Warn().Ctx(ctx).Fields(args).Msg(msg)
}

func (z *ZerologLogger) Error(ctx context.Context, msg string, args ...any) {
	z.l.Error().Ctx(ctx).Fields(args).Msg(msg)
}

func (z *ZerologLogger) With(args ...any) Logger {
	return &ZerologLogger{l: z.l.With().Fields(args).Logger()}
}
