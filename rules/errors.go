package rules

import (
	"errors"
	"fmt"

	"checkpstree/process"
)

var (
	// ErrMissingMetadata is returned when a path rule matches a process that
	// has no value to compare: no PEB or no module path for peb_fullname, no
	// VAD block for vad_filename.
	ErrMissingMetadata = errors.New("missing process metadata")
)

// RuleError names the rule and the process a check failed on
type RuleError struct {
	Rule RuleKind
	PID  process.ProcessID
	Name string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: pid %d (%s): %v", e.Rule, e.PID, e.Name, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
