package callback

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is reported when the owner has no collider shape. The
	// registry stays inert.
	ErrConfiguration = errors.New("callback: owner has no collider shape")
	// ErrInvalidArgument rejects malformed registrations.
	ErrInvalidArgument = errors.New("callback: invalid argument")
	// ErrCallbackFailure is wrapped by every CallbackError.
	ErrCallbackFailure = errors.New("callback: callback failed")
	// ErrReentrantOverflow is returned when callbacks keep producing nested
	// contacts beyond the pending limit.
	ErrReentrantOverflow = errors.New("callback: too many nested contacts")
)

// CallbackError describes a callback that panicked during dispatch.
type CallbackError struct {
	Registration string
	Key          string
	Direction    Direction
	Value        any
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback: registration %s (%s, %s) failed: %v", e.Registration, e.Key, e.Direction, e.Value)
}

func (e *CallbackError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrCallbackFailure, err}
	}
	return []error{ErrCallbackFailure}
}
