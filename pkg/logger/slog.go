package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type SlogLogger struct {
	logger *slog.Logger
}

type SlogEnvironment string

const (
	EnvLocal SlogEnvironment = "local"
	EnvDev   SlogEnvironment = "dev"
	EnvProd  SlogEnvironment = "prod"
)

func NewSlogLogger(env SlogEnvironment) *SlogLogger {
	return NewSlogLoggerWithWriter(env, os.Stdout)
}

func NewSlogLoggerWithWriter(env SlogEnvironment, w io.Writer) *SlogLogger {
	var slogger *slog.Logger

	switch env {
	case EnvDev:
		slogger = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		slogger = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return &SlogLogger{
		logger: slogger,
	}
}

func (s *SlogLogger) Debug(msg string, fields ...any) {
	s.logger.Debug(msg, toSlog(fields)...)
}

func (s *SlogLogger) Info(msg string, fields ...any) {
	s.logger.Info(msg, toSlog(fields)...)
}

func (s *SlogLogger) Warn(msg string, fields ...any) {
	s.logger.Warn(msg, toSlog(fields)...)
}

func (s *SlogLogger) Error(msg string, fields ...any) {
	s.logger.Error(msg, toSlog(fields)...)
}

func (s *SlogLogger) DebugContext(ctx context.Context, msg string, fields ...any) {
	s.logger.DebugContext(ctx, msg, toSlog(fields)...)
}

func (s *SlogLogger) InfoContext(ctx context.Context, msg string, fields ...any) {
	s.logger.InfoContext(ctx, msg, toSlog(fields)...)
}

func (s *SlogLogger) WarnContext(ctx context.Context, msg string, fields ...any) {
	s.logger.WarnContext(ctx, msg, toSlog(fields)...)
}

func (s *SlogLogger) ErrorContext(ctx context.Context, msg string, fields ...any) {
	s.logger.ErrorContext(ctx, msg, toSlog(fields)...)
}

// toSlog turns Attr values into slog.Attr, everything else is passed through as is.
func toSlog(fields []any) []any {
	out := make([]any, 0, len(fields))
	for _, field := range fields {
		if attr, ok := field.(Attr); ok {
			out = append(out, slog.Any(attr.Key, attr.Value))
			continue
		}
		out = append(out, field)
	}

	return out
}
