package rules

import (
	"encoding/json"
)

// Report maps each configured rule kind to its results. A kind is present
// iff it was configured, even when its list is empty.
type Report map[RuleKind]Results

// Kinds returns the kinds present, in report order
func (r Report) Kinds() []RuleKind {
	var out []RuleKind
	for _, kind := range AllKinds {
		if _, ok := r[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// UniqueNames returns the unique name results, or nil when the rule did not run
func (r Report) UniqueNames() UniqueNameResults {
	res, _ := r[UniqueNames].(UniqueNameResults)
	return res
}

// ReferenceParents returns the reference parent results, or nil when the rule did not run
func (r Report) ReferenceParents() ReferenceParentResults {
	res, _ := r[ReferenceParents].(ReferenceParentResults)
	return res
}

// Paths returns the entries of a path rule, or nil when it did not run
func (r Report) Paths(kind RuleKind) []PathResult {
	res, _ := r[kind].(PathResults)
	return res.Entries
}

// Failed counts failing entries over every kind
func (r Report) Failed() int {
	n := 0
	for _, res := range r {
		n += res.Failed()
	}
	return n
}

func marshalList[T any](v []T) ([]byte, error) {
	return json.Marshal(v)
}
