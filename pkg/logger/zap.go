package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type ZapLogger struct {
	logger *zap.Logger
}

func NewZapLogger() *ZapLogger {
	zlogger, err := zap.NewProduction()
	if err != nil {
		zlogger = zap.NewNop()
	}

	return &ZapLogger{logger: zlogger}
}

func NewZapLoggerFrom(zlogger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: zlogger}
}

func (z *ZapLogger) Debug(msg string, fields ...any) {
	z.logger.Debug(msg, toZap(fields)...)
}

func (z *ZapLogger) Info(msg string, fields ...any) {
	z.logger.Info(msg, toZap(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields ...any) {
	z.logger.Warn(msg, toZap(fields)...)
}

func (z *ZapLogger) Error(msg string, fields ...any) {
	z.logger.Error(msg, toZap(fields)...)
}

func (z *ZapLogger) DebugContext(_ context.Context, msg string, fields ...any) {
	z.Debug(msg, fields...)
}

func (z *ZapLogger) InfoContext(_ context.Context, msg string, fields ...any) {
	z.Info(msg, fields...)
}

func (z *ZapLogger) WarnContext(_ context.Context, msg string, fields ...any) {
	z.Warn(msg, fields...)
}

func (z *ZapLogger) ErrorContext(_ context.Context, msg string, fields ...any) {
	z.Error(msg, fields...)
}

func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

func toZap(fields []any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for i, field := range fields {
		switch f := field.(type) {
		case Attr:
			out = append(out, zap.Any(f.Key, f.Value))
		case zap.Field:
			out = append(out, f)
		default:
			out = append(out, zap.Any(fmt.Sprintf("field_%d", i), f))
		}
	}

	return out
}
