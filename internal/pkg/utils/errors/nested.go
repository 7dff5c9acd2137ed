package errors

import (
	"strings"
)

// nestedError is a main error with a nested cause, formatted as "main: cause".
type nestedError struct {
	main  error
	cause error
	trace StackTrace
}

func PrefixError(err error, prefix string) error {
	return &nestedError{main: New(prefix), cause: err, trace: callers()}
}

func PrefixErrorf(err error, format string, a ...any) error {
	return &nestedError{main: Errorf(format, a...), cause: err, trace: callers()}
}

func (e *nestedError) MainError() error {
	return e.main
}

func (e *nestedError) Error() string {
	prefix := strings.TrimRight(e.main.Error(), ".,:")
	cause := e.cause.Error()
	if strings.Contains(cause, "\n") {
		return prefix + ":\n- " + strings.ReplaceAll(cause, "\n", "\n  ")
	}
	return prefix + ": " + cause
}

func (e *nestedError) Unwrap() error {
	return e.cause
}

func (e *nestedError) StackTrace() StackTrace {
	return e.trace
}
