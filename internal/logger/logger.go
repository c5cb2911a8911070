// Package logger provides structured, leveled logging backed by zap.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a minimum log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LoggerInterface is the logging surface used across the application.
// Key/value pairs follow the message, zap sugared style.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
}

// Logger implements LoggerInterface on top of a zap.SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ LoggerInterface = (*Logger)(nil)

// New creates a Logger writing to w at the given minimum level.
// service is attached to every entry; extra base fields are optional.
func New(w io.Writer, level Level, service string, fields map[string]any) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zapLevel(level),
	)

	base := zap.New(core).With(zap.String("service", service))
	for k, v := range fields {
		base = base.With(zap.Any(k, v))
	}

	return &Logger{sugar: base.Sugar()}
}

// With returns a child logger with additional base key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{sugar: l.sugar.With(kv...)}
}

func (l *Logger) Debug(_ context.Context, msg string, kv ...any) {
	l.sugar.Debugw(msg, kv...)
}

func (l *Logger) Info(_ context.Context, msg string, kv ...any) {
	l.sugar.Infow(msg, kv...)
}

func (l *Logger) Warn(_ context.Context, msg string, kv ...any) {
	l.sugar.Warnw(msg, kv...)
}

func (l *Logger) Error(_ context.Context, msg string, kv ...any) {
	l.sugar.Errorw(msg, kv...)
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
