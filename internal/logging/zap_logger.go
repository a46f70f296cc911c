// file: internal/logging/zap_logger.go
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ctxKey is an unexported type so context values set by WithContext never collide with
// keys set by other packages.
type ctxKey struct{}

var loggerCtxKey = ctxKey{}

// zapLogger adapts *zap.SugaredLogger to the Logger interface. It's the concrete
// implementation the cmd/ entrypoints install via SetDefaultLogger; every other package
// keeps depending only on the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a Logger backed by zap. format selects "console" (human-readable,
// for a terminal) or anything else for JSON (the default for production/stdio use, since
// stdout is reserved for the JSON-RPC stream and logs must go to stderr).
func NewZapLogger(level string, format string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		zl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zl)

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: logger.Sugar()}, nil
}

func (l *zapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// WithContext returns a logger enriched with any fields previously stashed in ctx via
// ContextWithFields, e.g. a session id set once at connection accept time.
func (l *zapLogger) WithContext(ctx context.Context) Logger {
	fields, ok := ctx.Value(loggerCtxKey).([]interface{})
	if !ok || len(fields) == 0 {
		return l
	}
	return &zapLogger{sugar: l.sugar.With(fields...)}
}

func (l *zapLogger) WithField(key string, value any) Logger {
	return &zapLogger{sugar: l.sugar.With(key, value)}
}

// ContextWithFields returns a context that, when passed to a zap-backed Logger's
// WithContext, adds key/value pairs to every subsequent log line.
func ContextWithFields(ctx context.Context, keyvals ...interface{}) context.Context {
	existing, _ := ctx.Value(loggerCtxKey).([]interface{})
	merged := append(append([]interface{}{}, existing...), keyvals...)
	return context.WithValue(ctx, loggerCtxKey, merged)
}
