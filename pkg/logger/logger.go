package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger - структурированный логгер с парами ключ/значение
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Fatal(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
	Sync() error
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New создает JSON логгер с указанным уровнем (debug, info, warn, error)
func New(level string) Logger {
	return build(level, "json")
}

// NewDevelopment создает логгер с человекочитаемым выводом
func NewDevelopment(level string) Logger {
	return build(level, "console")
}

// Nop возвращает логгер, который ничего не пишет (для тестов)
func Nop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func build(level, encoding string) Logger {
	atomicLevel, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.Encoding = encoding
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Конфиг статический, сюда попадаем только при проблемах с stderr
		base = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stderr),
			atomicLevel,
		))
	}

	return &zapLogger{sugar: base.Sugar()}
}

func (l *zapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *zapLogger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

func (l *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}
