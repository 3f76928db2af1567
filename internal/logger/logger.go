package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLevelNames = map[LogLevel]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

var zapLevels = map[LogLevel]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// New builds a JSON logger writing to stderr at the given level.
func New(level LogLevel) (*Logger, error) {
	atom := zap.NewAtomicLevelAt(zapLevels[level])

	config := zap.NewProductionConfig()
	config.Level = atom
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		MinLevel: level,
		sugar:    zapLogger.Sugar(),
		level:    atom,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return NewWithCore(zapcore.NewNopCore())
}

// NewWithCore logs every level to core, such as a zaptest/observer core.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{
		MinLevel: LevelDebug,
		sugar:    zap.New(core).Sugar(),
		level:    zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// ParseLevel maps debug, info, warn and error to a LogLevel. Anything else is info.
func ParseLevel(s string) LogLevel {
	for level, name := range logLevelNames {
		if strings.EqualFold(s, name) {
			return level
		}
	}
	return LevelInfo
}

// SetLogLevel sets the minimum log level
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.MinLevel = level
	l.level.SetLevel(zapLevels[level])
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) log(level LogLevel, component, message string, args ...interface{}) {
	l.mu.Lock()
	minLevel := l.MinLevel
	l.mu.Unlock()

	if level < minLevel {
		return
	}

	sugar := l.sugar
	if component != "" {
		sugar = sugar.With("component", component)
	}

	switch level {
	case LevelDebug:
		sugar.Debugf(message, args...)
	case LevelInfo:
		sugar.Infof(message, args...)
	case LevelWarn:
		sugar.Warnf(message, args...)
	default:
		sugar.Errorf(message, args...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(component, message string, args ...interface{}) {
	l.log(LevelDebug, component, message, args...)
}

// Info logs an info message
func (l *Logger) Info(component, message string, args ...interface{}) {
	l.log(LevelInfo, component, message, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, message string, args ...interface{}) {
	l.log(LevelWarn, component, message, args...)
}

// Error logs an error message
func (l *Logger) Error(component, message string, args ...interface{}) {
	l.log(LevelError, component, message, args...)
}

// Fatal logs an error message and exits
func (l *Logger) Fatal(component, message string, args ...interface{}) {
	l.sugar.With("component", component).Fatalf(message, args...)
}
