package errors

import (
	"strings"
)

// MultiError is a list of errors, it is also an error itself.
type MultiError interface {
	error
	Len() int
	Append(errs ...error)
	AppendWithPrefix(err error, prefix string)
	AppendWithPrefixf(err error, format string, a ...any)
	WrappedErrors() []error
	// ErrorOrNil returns nil if the list is empty,
	// the only error if it contains exactly one, otherwise the MultiError itself.
	ErrorOrNil() error
}

type multiError struct {
	errs []error
}

func NewMultiError() MultiError {
	return &multiError{}
}

func (e *multiError) Len() int {
	return len(e.errs)
}

func (e *multiError) Append(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if v, ok := err.(*multiError); ok { // nolint: errorlint
			e.errs = append(e.errs, v.errs...)
		} else {
			e.errs = append(e.errs, err)
		}
	}
}

func (e *multiError) AppendWithPrefix(err error, prefix string) {
	e.Append(PrefixError(err, prefix))
}

func (e *multiError) AppendWithPrefixf(err error, format string, a ...any) {
	e.Append(PrefixErrorf(err, format, a...))
}

func (e *multiError) WrappedErrors() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

func (e *multiError) ErrorOrNil() error {
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		return e
	}
}

func (e *multiError) Error() string {
	switch len(e.errs) {
	case 0:
		return ""
	case 1:
		return e.errs[0].Error()
	}
	var out strings.Builder
	for i, err := range e.errs {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString("- ")
		out.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n  "))
	}
	return out.String()
}

func (e *multiError) Unwrap() []error {
	return e.WrappedErrors()
}
