package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger is the default implementation of the Logger interface.
// It is a wrapped zap.SugaredLogger with an optional message prefix.
type zapLogger struct {
	sugar  *zap.SugaredLogger
	prefix string
}

func loggerFromZap(l *zap.Logger) *zapLogger {
	return &zapLogger{sugar: l.Sugar()}
}

func loggerFromZapCore(core zapcore.Core) *zapLogger {
	return loggerFromZap(zap.New(core))
}

func (l *zapLogger) AddPrefix(prefix string) Logger {
	clone := *l
	clone.prefix = strings.TrimSpace(l.prefix + prefix)
	return &clone
}

func (l *zapLogger) message(args []any) string {
	msg := fmt.Sprint(args...)
	if l.prefix == "" {
		return msg
	}
	return l.prefix + " " + msg
}

func (l *zapLogger) messagef(template string, args []any) string {
	msg := fmt.Sprintf(template, args...)
	if l.prefix == "" {
		return msg
	}
	return l.prefix + " " + msg
}

func (l *zapLogger) Debug(args ...any) { l.sugar.Debug(l.message(args)) }
func (l *zapLogger) Info(args ...any)  { l.sugar.Info(l.message(args)) }
func (l *zapLogger) Warn(args ...any)  { l.sugar.Warn(l.message(args)) }
func (l *zapLogger) Error(args ...any) { l.sugar.Error(l.message(args)) }

func (l *zapLogger) Debugf(template string, args ...any) { l.sugar.Debug(l.messagef(template, args)) }
func (l *zapLogger) Infof(template string, args ...any)  { l.sugar.Info(l.messagef(template, args)) }
func (l *zapLogger) Warnf(template string, args ...any)  { l.sugar.Warn(l.messagef(template, args)) }
func (l *zapLogger) Errorf(template string, args ...any) { l.sugar.Error(l.messagef(template, args)) }

func (l *zapLogger) DebugWriter() *LevelWriter {
	return &LevelWriter{logger: l, level: DebugLevel}
}

func (l *zapLogger) InfoWriter() *LevelWriter {
	return &LevelWriter{logger: l, level: InfoLevel}
}

func (l *zapLogger) WarnWriter() *LevelWriter {
	return &LevelWriter{logger: l, level: WarnLevel}
}

func (l *zapLogger) ErrorWriter() *LevelWriter {
	return &LevelWriter{logger: l, level: ErrorLevel}
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}
