package rules

import (
	"checkpstree/process"
)

// Results is the list a single rule kind produced
type Results interface {
	Kind() RuleKind
	Len() int
	// Failed counts the entries that did not pass
	Failed() int
}

// UniqueNameResult is the verdict for one configured unique name
type UniqueNameResult struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Pass  bool   `json:"pass"`
}

type UniqueNameResults []UniqueNameResult

func (UniqueNameResults) Kind() RuleKind { return UniqueNames }
func (r UniqueNameResults) Len() int     { return len(r) }

func (r UniqueNameResults) Failed() int {
	n := 0
	for _, e := range r {
		if !e.Pass {
			n++
		}
	}
	return n
}

// ReferenceParentResult is the verdict for one non-root process whose name has an expected parent
type ReferenceParentResult struct {
	PID      process.ProcessID `json:"pid"`
	PPID     process.ProcessID `json:"ppid"`
	Name     string            `json:"name"`
	Parent   string            `json:"parent"`
	Expected string            `json:"expected"`
	Pass     bool              `json:"pass"`
}

type ReferenceParentResults []ReferenceParentResult

func (ReferenceParentResults) Kind() RuleKind { return ReferenceParents }
func (r ReferenceParentResults) Len() int     { return len(r) }

func (r ReferenceParentResults) Failed() int {
	n := 0
	for _, e := range r {
		if !e.Pass {
			n++
		}
	}
	return n
}

// PathResult is the verdict for one process matched by a path rule.
// VadState is set by the VAD rule only.
type PathResult struct {
	PID      process.ProcessID `json:"pid"`
	PPID     process.ProcessID `json:"ppid"`
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Expected string            `json:"expected"`
	Pass     bool              `json:"pass"`
	VadState process.VadState  `json:"vad_state,omitempty"`
}

// PathResults carries its kind since both path rules share the shape
type PathResults struct {
	kind    RuleKind
	Entries []PathResult
}

func (r PathResults) Kind() RuleKind { return r.kind }
func (r PathResults) Len() int       { return len(r.Entries) }

func (r PathResults) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if !e.Pass {
			n++
		}
	}
	return n
}

func (r PathResults) MarshalJSON() ([]byte, error) {
	entries := r.Entries
	if entries == nil {
		entries = []PathResult{}
	}
	return marshalList(entries)
}

func (r UniqueNameResults) MarshalJSON() ([]byte, error) {
	if r == nil {
		r = UniqueNameResults{}
	}
	return marshalList([]UniqueNameResult(r))
}

func (r ReferenceParentResults) MarshalJSON() ([]byte, error) {
	if r == nil {
		r = ReferenceParentResults{}
	}
	return marshalList([]ReferenceParentResult(r))
}
