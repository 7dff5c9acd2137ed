// Package errors provides error constructors with stack traces,
// error prefixing and a multi error, stdlib compatible (Is/As/Unwrap).
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// StackTrace is a stack of program counters, the first frame belongs
// to the place where the error has been created.
type StackTrace []uintptr

type withStack interface {
	error
	StackTrace() StackTrace
}

// baseError is a message with a stack trace, optionally wrapping another error.
type baseError struct {
	err   error
	trace StackTrace
}

func New(msg string) error {
	return &baseError{err: errors.New(msg), trace: callers()}
}

func Errorf(format string, a ...any) error {
	return &baseError{err: fmt.Errorf(format, a...), trace: callers()}
}

// WithStack wraps the error with the current stack trace, if it has none.
func WithStack(err error) error {
	if err == nil {
		panic(New("error cannot be nil"))
	}
	var v withStack
	if errors.As(err, &v) {
		return err
	}
	return &baseError{err: err, trace: callers()}
}

func (e *baseError) Error() string {
	return e.err.Error()
}

func (e *baseError) Unwrap() error {
	return e.err
}

func (e *baseError) StackTrace() StackTrace {
	return e.trace
}

// Is, As, Unwrap and Join are stdlib passthroughs,
// so the package is a drop-in replacement.

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}

func callers() StackTrace {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	return StackTrace(pcs[0:n])
}
