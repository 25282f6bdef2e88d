package borgstore

import "go.uber.org/zap"

// Field is a structured logging field, e.g. Field{"bytes", 4096}.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the interface borgstore logs through. Users can supply their
// own implementation via WithLogger; the shipped default is backed by zap.
// Only DEBUG-level records are emitted by the core (spec.md §6 "Logging
// contract": operation name, logical name, byte count where meaningful,
// elapsed seconds) — Info/Warn/Error exist for completeness and for
// backends that want to surface transport-level events.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// zapLogger adapts *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	l *zap.SugaredLogger
}

// NewDefaultLogger builds the default Logger, backed by a zap production
// logger writing structured JSON to stderr.
func NewDefaultLogger() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{l: z.Sugar()}
}

// NewLogger wraps an existing *zap.Logger, for callers that already run
// zap elsewhere in their process and want borgstore to share it.
func NewLogger(z *zap.Logger) Logger {
	return &zapLogger{l: z.Sugar()}
}

// NewNoopLogger returns a Logger that discards everything. Useful in tests.
func NewNoopLogger() Logger {
	return &zapLogger{l: zap.NewNop().Sugar()}
}

func toZapArgs(fields []Field) []interface{} {
	args := make([]interface{}, 0, 2*len(fields))
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debugw(msg, toZapArgs(fields)...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Infow(msg, toZapArgs(fields)...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warnw(msg, toZapArgs(fields)...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Errorw(msg, toZapArgs(fields)...) }
