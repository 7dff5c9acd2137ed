package log

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// memoryLogger implements DebugLogger, it stores all messages in memory.
type memoryLogger struct {
	*zapLogger
	recorder *recorder
}

type recorder struct {
	lock    sync.Mutex
	entries []zapcore.Entry
	writers []io.Writer
}

// NewDebugLogger returns a logger recording all messages for assertions in tests.
func NewDebugLogger() DebugLogger {
	r := &recorder{}
	return &memoryLogger{zapLogger: loggerFromZapCore(newRecorderCore(r)), recorder: r}
}

type recorderCore struct {
	zapcore.LevelEnabler
	recorder *recorder
}

func newRecorderCore(r *recorder) zapcore.Core {
	return &recorderCore{LevelEnabler: zap.NewAtomicLevelAt(DebugLevel), recorder: r}
}

func (c *recorderCore) With(_ []zapcore.Field) zapcore.Core {
	return c
}

func (c *recorderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *recorderCore) Write(entry zapcore.Entry, _ []zapcore.Field) error {
	c.recorder.add(entry)
	return nil
}

func (c *recorderCore) Sync() error {
	return nil
}

func (r *recorder) add(entry zapcore.Entry) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries = append(r.entries, entry)
	for _, w := range r.writers {
		fmt.Fprintf(w, "%s  %s\n", entry.Level.CapitalString(), entry.Message)
	}
}

func (r *recorder) messages(match func(zapcore.Level) bool) string {
	r.lock.Lock()
	defer r.lock.Unlock()
	var out strings.Builder
	for _, entry := range r.entries {
		if match(entry.Level) {
			out.WriteString(entry.Level.CapitalString())
			out.WriteString("  ")
			out.WriteString(entry.Message)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func (l *memoryLogger) ConnectTo(writer io.Writer) {
	l.recorder.lock.Lock()
	defer l.recorder.lock.Unlock()
	l.recorder.writers = append(l.recorder.writers, writer)
}

func (l *memoryLogger) Truncate() {
	l.recorder.lock.Lock()
	defer l.recorder.lock.Unlock()
	l.recorder.entries = nil
}

func (l *memoryLogger) AllMessages() string {
	return l.recorder.messages(func(zapcore.Level) bool { return true })
}

func (l *memoryLogger) DebugMessages() string {
	return l.recorder.messages(func(lvl zapcore.Level) bool { return lvl == DebugLevel })
}

func (l *memoryLogger) InfoMessages() string {
	return l.recorder.messages(func(lvl zapcore.Level) bool { return lvl == InfoLevel })
}

func (l *memoryLogger) WarnAndErrorMessages() string {
	return l.recorder.messages(func(lvl zapcore.Level) bool { return lvl >= WarnLevel })
}
