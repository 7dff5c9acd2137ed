package log

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewServiceLogger creates a logger for a long-running service process.
// All messages are written to the writer, debug messages only in the verbose mode.
func NewServiceLogger(w io.Writer, verbose bool) Logger {
	minLevel := InfoLevel
	if verbose {
		minLevel = DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(minLevel),
	)
	return loggerFromZapCore(core)
}

// NewNopLogger returns a logger that discards all messages.
func NewNopLogger() Logger {
	return loggerFromZap(zap.NewNop())
}
