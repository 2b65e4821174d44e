// Package logging builds the process zap logger and carries request ids
// through contexts.
package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string
	Dev   bool
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init builds the process logger: console output in dev mode, JSON otherwise.
func Init(cfg Config) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	return zap.New(core, opts...), nil
}

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying rid.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id from ctx, or "".
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger is a logger scoped to one request.
type Logger struct {
	z *zap.Logger
}

// New tags base with the request id found in ctx. A nil base logs nowhere.
func New(ctx context.Context, base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	rid := RequestID(ctx)
	if rid == "" {
		rid = "unknown"
	}
	return &Logger{z: base.With(zap.String("request_id", rid))}
}

func (l *Logger) Error(operation string, err error, fields ...zap.Field) {
	l.z.Error(operation+" failed", append(fields, zap.String("operation", operation), zap.Error(err))...)
}

func (l *Logger) Warn(operation, message string, fields ...zap.Field) {
	l.z.Warn(message, append(fields, zap.String("operation", operation))...)
}

func (l *Logger) Info(operation, message string, fields ...zap.Field) {
	l.z.Info(message, append(fields, zap.String("operation", operation))...)
}

func (l *Logger) Debug(operation, message string, fields ...zap.Field) {
	l.z.Debug(message, append(fields, zap.String("operation", operation))...)
}
