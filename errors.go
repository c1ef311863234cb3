package statemachine

import (
	"fmt"

	"github.com/enetx/g"
)

// MachineError reports an invalid state machine configuration: unresolvable
// callback names, switched transitions without a default, duplicate ambiguous
// transitions, unknown states, and so on. It is returned from Build; a
// machine is never handed out together with one.
type MachineError struct {
	Msg string
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("statemachine: %s", e.Msg)
}

func machineErrorf(format string, args ...any) *MachineError {
	return &MachineError{Msg: fmt.Sprintf(format, args...)}
}

// TransitionError reports that a trigger or an explicit state assignment
// could not be resolved from the holder's current state. When it is returned,
// no exit, transfer or entry callback has run and the holder's state is
// unchanged.
type TransitionError struct {
	State   g.String
	Trigger Trigger
	Msg     string
}

func (e *TransitionError) Error() string {
	if e.Trigger != "" {
		return fmt.Sprintf("statemachine: trigger %q from state %q: %s", e.Trigger, e.State, e.Msg)
	}

	return fmt.Sprintf("statemachine: state %q: %s", e.State, e.Msg)
}

// CallbackError wraps an error returned by a user callback, or a panic
// recovered from one. It propagates to the Fire caller after the context
// scope has been closed.
type CallbackError struct {
	// Hook is the protocol phase of the callback (e.g. "on_entry", "on_transfer").
	Hook string
	// State is the path of the state or transition the callback is attached to.
	State g.String
	// Err is the original error, or the error built from a recovered panic.
	Err error
}

func (e *CallbackError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("statemachine: error in %s callback of %q: %v", e.Hook, e.State, e.Err)
	}

	return fmt.Sprintf("statemachine: error in %s callback: %v", e.Hook, e.Err)
}

// Unwrap exposes the original callback error to errors.Is and errors.As.
func (e *CallbackError) Unwrap() error { return e.Err }
