package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugLogger(t *testing.T) {
	t.Parallel()

	logger := NewDebugLogger()
	logger.Debug("debug message")
	logger.Infof("info %s", "message")
	logger.Warn("warn message")
	logger.Errorf("error %s", "message")

	assert.Equal(t, "DEBUG  debug message\n", logger.DebugMessages())
	assert.Equal(t, "INFO  info message\n", logger.InfoMessages())
	assert.Equal(t, "WARN  warn message\nERROR  error message\n", logger.WarnAndErrorMessages())

	logger.Truncate()
	assert.Equal(t, "", logger.AllMessages())
}

func TestLoggerPrefix(t *testing.T) {
	t.Parallel()

	logger := NewDebugLogger()
	logger.AddPrefix("[my-component]").Info("some message")
	assert.Equal(t, "INFO  [my-component] some message\n", logger.AllMessages())
}

func TestLevelWriter(t *testing.T) {
	t.Parallel()

	logger := NewDebugLogger()
	n, err := logger.InfoWriter().Write([]byte("line1\nline2\n"))
	assert.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "INFO  line1\nINFO  line2\n", logger.InfoMessages())
}
