package coro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	var l NoOpLogger
	assert.False(t, l.IsEnabled(LevelDebug))
	assert.False(t, l.IsEnabled(LevelError))
	assert.NotPanics(t, func() { l.Log(LogEntry{Level: LevelError, Message: "x"}) })
}

type fakeLogger struct {
	enabled bool
	entries []LogEntry
}

func (f *fakeLogger) IsEnabled(LogLevel) bool { return f.enabled }
func (f *fakeLogger) Log(e LogEntry)          { f.entries = append(f.entries, e) }

func TestLogAtSkipsWhenDisabled(t *testing.T) {
	f := &fakeLogger{enabled: false}
	logWarn(f, "should not appear", nil)
	assert.Empty(t, f.entries)
}

func TestLogAtSkipsNilLogger(t *testing.T) {
	assert.NotPanics(t, func() { logDebug(nil, "msg", nil) })
}

func TestLogErrorIncludesErrAndFields(t *testing.T) {
	f := &fakeLogger{enabled: true}
	boom := errors.New("boom")
	logError(f, "failed", boom, map[string]any{"k": "v"})

	require.Len(t, f.entries, 1)
	e := f.entries[0]
	assert.Equal(t, LevelError, e.Level)
	assert.Equal(t, "failed", e.Message)
	assert.Equal(t, boom, e.Err)
	assert.Equal(t, "v", e.Fields["k"])
}

func TestLogDebugSetsDebugLevel(t *testing.T) {
	f := &fakeLogger{enabled: true}
	logDebug(f, "debugging", nil)
	require.Len(t, f.entries, 1)
	assert.Equal(t, LevelDebug, f.entries[0].Level)
}
