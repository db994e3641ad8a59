package coro

import (
	"github.com/joeycumines/logiface"
)

// LogLevel mirrors the handful of severities this package actually emits.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LogEntry is the record passed to Logger.Log.
type LogEntry struct {
	Level   LogLevel
	Message string
	Err     error
	Fields  map[string]any
}

// Logger is the ambient logging sink. In this package the Scheduler is the
// component that accepts one (via the WithLogger option). Implementations
// must tolerate a nil map in LogEntry.Fields.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// NoOpLogger discards everything. It's the default for every component
// that accepts a Logger.
type NoOpLogger struct{}

func (NoOpLogger) Log(LogEntry)            {}
func (NoOpLogger) IsEnabled(LogLevel) bool { return false }

func logDebug(l Logger, msg string, fields map[string]any) {
	logAt(l, LevelDebug, msg, nil, fields)
}

func logWarn(l Logger, msg string, fields map[string]any) {
	logAt(l, LevelWarn, msg, nil, fields)
}

func logError(l Logger, msg string, err error, fields map[string]any) {
	logAt(l, LevelError, msg, err, fields)
}

func logAt(l Logger, level LogLevel, msg string, err error, fields map[string]any) {
	if l == nil || !l.IsEnabled(level) {
		return
	}
	l.Log(LogEntry{Level: level, Message: msg, Err: err, Fields: fields})
}

// logifaceLogger adapts a github.com/joeycumines/logiface logger (erased
// to its generic Event interface) to this package's Logger.
type logifaceLogger struct {
	logger *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger adapts l (typically obtained via (*logiface.Logger[E]).
// Logger(), as in github.com/joeycumines/stumpy or a hand-rolled Event
// implementation) to this package's Logger interface.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{logger: l}
}

func (a *logifaceLogger) IsEnabled(level LogLevel) bool {
	if a.logger == nil {
		return false
	}
	lvl := toLogifaceLevel(level)
	return lvl.Enabled() && lvl <= a.logger.Level()
}

func (a *logifaceLogger) Log(entry LogEntry) {
	if a.logger == nil {
		return
	}
	b := a.logger.Build(toLogifaceLevel(entry.Level))
	if b == nil {
		return
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	for k, v := range entry.Fields {
		b = b.Any(k, v)
	}
	b.Log(entry.Message)
}

func toLogifaceLevel(level LogLevel) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
