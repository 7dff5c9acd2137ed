package log

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// LevelWriter is an io.Writer that logs each written line with the given level.
type LevelWriter struct {
	logger Logger
	level  zapcore.Level
}

func (w *LevelWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.WriteString(line)
	}
	return len(p), nil
}

func (w *LevelWriter) WriteString(s string) {
	switch w.level {
	case DebugLevel:
		w.logger.Debug(s)
	case InfoLevel:
		w.logger.Info(s)
	case WarnLevel:
		w.logger.Warn(s)
	case ErrorLevel:
		w.logger.Error(s)
	default:
		w.logger.Info(s)
	}
}
