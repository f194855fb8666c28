package server

import (
	"errors"
	"fmt"
)

// ErrUnconfigured is returned by store-dependent operations when no
// store was configured. Distinct from a store failure.
var ErrUnconfigured = errors.New("server: no event store configured")

// ValidationError reports a missing required input on a submitted event.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// StoreError wraps a failure from the event store, preserving the
// store's message for the caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
