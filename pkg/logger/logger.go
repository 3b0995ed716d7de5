package logger

import (
	"context"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	DebugContext(ctx context.Context, msg string, fields ...any)
	InfoContext(ctx context.Context, msg string, fields ...any)
	WarnContext(ctx context.Context, msg string, fields ...any)
	ErrorContext(ctx context.Context, msg string, fields ...any)
}

type Attr struct {
	Key   string
	Value any
}

func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

func Any(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Err is a shortcut for String("error", err.Error()) that tolerates a nil error.
func Err(err error) Attr {
	if err == nil {
		return Attr{Key: "error", Value: nil}
	}

	return Attr{Key: "error", Value: err.Error()}
}

// SetupLogger returns a logger for the given environment: slog for local and dev, zap for prod.
func SetupLogger(env string) Logger {
	switch env {
	case string(EnvProd):
		return NewZapLogger()
	case string(EnvDev):
		return NewSlogLogger(EnvDev)
	default:
		return NewSlogLogger(EnvLocal)
	}
}
