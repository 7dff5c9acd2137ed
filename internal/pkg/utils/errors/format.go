package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Format converts the error to a string.
func Format(err error, opts ...FormatOption) string {
	cfg := formatConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	if !cfg.withStack {
		return err.Error()
	}

	var out strings.Builder
	out.WriteString(err.Error())
	var v withStack
	if As(err, &v) {
		if trace := v.StackTrace(); len(trace) > 0 {
			frame := trace[0]
			if fn := runtime.FuncForPC(frame); fn != nil {
				file, line := fn.FileLine(frame)
				out.WriteString(fmt.Sprintf(" [%s:%d]", file, line))
			}
		}
	}
	return out.String()
}

type formatConfig struct {
	withStack bool
}

type FormatOption func(*formatConfig)

// FormatWithStack appends the error origin "[file:line]" to the message.
func FormatWithStack() FormatOption {
	return func(c *formatConfig) {
		c.withStack = true
	}
}
