package rendezvous

import (
	"fmt"
)

// StoreUnavailableError means the rendezvous store stopped responding during a wait.
// The wait is not retried internally, the caller may retry the whole phase.
type StoreUnavailableError struct {
	Phase string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf(`rendezvous store unavailable in the "%s" phase: %s`, e.Phase, e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Cause
}

// MismatchError means two participants registered the same task identity
// with different payloads, or more participants than expected appeared.
// It is a configuration error of the caller, not a barrier failure.
type MismatchError struct {
	Phase  string
	Task   TaskKey
	Reason string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(`conflicting registration of task "%s" in the "%s" phase: %s`, e.Task, e.Phase, e.Reason)
}
