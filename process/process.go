// Package process holds the process record types shared by the sources,
// the tree builder and the rule engine.
package process

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVadState is returned when a snapshot carries a VAD state this package does not know.
	ErrUnknownVadState = errors.New("unknown vad state")

	// ErrNoSuchProcess is returned by live sources when a pid vanished while it was being read.
	ErrNoSuchProcess = errors.New("no such process")
)

// RecordError points at the offending record of a supplied list
type RecordError struct {
	Index int
	PID   ProcessID
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (pid %d): %v", e.Index, e.PID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
