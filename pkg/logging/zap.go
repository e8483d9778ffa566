package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap logger to the Logger interface
type ZapLogger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

// NewZapLogger builds a production zap logger (JSON) or a development one
// (console) at the given level.
func NewZapLogger(level Level, development bool) (*ZapLogger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{base: base, level: cfg.Level}, nil
}

// WrapZap adapts an existing zap logger. Level changes are not supported for
// wrapped loggers whose core was built elsewhere.
func WrapZap(base *zap.Logger) *ZapLogger {
	return &ZapLogger{base: base, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

func (z *ZapLogger) Debug(msg string, fields ...Field) { z.base.Debug(msg, zapFields(fields)...) }
func (z *ZapLogger) Info(msg string, fields ...Field)  { z.base.Info(msg, zapFields(fields)...) }
func (z *ZapLogger) Warn(msg string, fields ...Field)  { z.base.Warn(msg, zapFields(fields)...) }
func (z *ZapLogger) Error(msg string, fields ...Field) { z.base.Error(msg, zapFields(fields)...) }

func (z *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{base: z.base.With(zapFields(fields)...), level: z.level}
}

func (z *ZapLogger) SetLevel(level Level) {
	z.level.SetLevel(toZapLevel(level))
}

func (z *ZapLogger) GetLevel() Level {
	switch z.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Sync flushes buffered entries
func (z *ZapLogger) Sync() error {
	return z.base.Sync()
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
