package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning rejects an update when no workload is running
	ErrNotRunning = errors.New("workload is not running")

	// ErrUpdateDeclined reports that the adapter recognized the update but
	// did not apply it
	ErrUpdateDeclined = errors.New("adapter declined update")

	// ErrBusy rejects a mutating request while another is in flight, under
	// the reject policy
	ErrBusy = errors.New("another lifecycle operation is in flight")
)

// ValidationError reports a start payload missing the configured primary key
type ValidationError struct {
	Key string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload missing required key %q", e.Key)
}

// AdapterError wraps a failure raised by the adapter during an operation
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s failed: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
