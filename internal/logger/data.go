package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Logger provides structured logging with levels

type Logger struct {
	MinLevel LogLevel
	mu       sync.Mutex
	sugar    *zap.SugaredLogger
	level    zap.AtomicLevel
}

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)
