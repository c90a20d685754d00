// Package rules checks a process forest against a rule set.
//
// Every configured rule runs over the same forest and yields its own result
// list. The first rule that fails with an error aborts the check and no
// report is returned.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"checkpstree/process"
	"checkpstree/pstree"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Engine runs rule sets. It keeps no state between checks.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates an Engine with its own logger
func NewEngine() *Engine {
	return &Engine{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "rules")),
	}
}

// Check runs cfg against forest with a throwaway Engine
func Check(forest *pstree.Forest, cfg *Config) (Report, error) {
	return NewEngine().Check(forest, cfg)
}

// Check runs every configured rule of cfg against forest
func (e *Engine) Check(forest *pstree.Forest, cfg *Config) (Report, error) {
	report := make(Report)

	for _, kind := range cfg.Kinds() {
		var (
			res Results
			err error
		)

		switch kind {
		case UniqueNames:
			res = checkUniqueNames(forest, cfg.UniqueNames)
		case ReferenceParents:
			res = checkReferenceParents(forest, cfg.ReferenceParents)
		case PebFullname:
			res, err = checkPaths(forest, PebFullname, cfg.PebFullname, pebFullname, strings.EqualFold)
		case VadFilename:
			res, err = checkPaths(forest, VadFilename, cfg.VadFilename, vadFilename, exactMatch)
		default:
			err = fmt.Errorf("unknown rule kind %q", kind)
		}

		if err != nil {
			e.log.Warn("Rule failed: ", err)
			return nil, err
		}

		e.log.Debugln("Rule", kind, "checked", res.Len(), "entries,", res.Failed(), "failed")
		report[kind] = res
	}

	return report, nil
}

func checkUniqueNames(forest *pstree.Forest, names []string) UniqueNameResults {
	out := make(UniqueNameResults, 0, len(names))
	for _, name := range names {
		count := forest.CountByName(name)
		out = append(out, UniqueNameResult{
			Name:  name,
			Count: count,
			Pass:  count <= 1,
		})
	}
	return out
}

// checkReferenceParents looks at every non-root process. The parent name is
// the name of the forest parent, not of whatever the ppid field points at.
func checkReferenceParents(forest *pstree.Forest, expected map[string]string) ReferenceParentResults {
	out := make(ReferenceParentResults, 0)
	forest.WalkChildren(func(n *pstree.Node, parent *pstree.Node, _ int) bool {
		want, ok := expected[n.Record.Name]
		if !ok {
			return true
		}
		out = append(out, ReferenceParentResult{
			PID:      n.Record.PID,
			PPID:     n.Record.PPID,
			Name:     n.Record.Name,
			Parent:   parent.Record.Name,
			Expected: want,
			Pass:     parent.Record.Name == want,
		})
		return true
	})
	return out
}

// pathFunc extracts the compared path of a record
type pathFunc func(rec process.ProcessRecord) (path string, state process.VadState, err error)

func pebFullname(rec process.ProcessRecord) (string, process.VadState, error) {
	if rec.PEB == nil {
		return "", "", fmt.Errorf("%w: no PEB", ErrMissingMetadata)
	}
	if rec.PEB.ModuleFullName == nil {
		return "", "", fmt.Errorf("%w: PEB has no module full name", ErrMissingMetadata)
	}
	return *rec.PEB.ModuleFullName, "", nil
}

// vadFilename compares the sentinel of the no-PEB and not-found states, so
// those records fail unless a rule asks for the sentinel itself.
func vadFilename(rec process.ProcessRecord) (string, process.VadState, error) {
	if rec.VAD == nil {
		return "", "", fmt.Errorf("%w: no VAD block", ErrMissingMetadata)
	}
	return rec.VAD.DisplayFilename(), rec.VAD.State, nil
}

func exactMatch(a, b string) bool {
	return a == b
}

// checkPaths evaluates names in sorted order so reports are stable.
func checkPaths(forest *pstree.Forest, kind RuleKind, expected map[string]string, extract pathFunc, equal func(a, b string) bool) (PathResults, error) {
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	res := PathResults{kind: kind, Entries: make([]PathResult, 0)}
	for _, name := range names {
		want := expected[name]
		for _, n := range forest.FindByName(name) {
			path, state, err := extract(n.Record)
			if err != nil {
				return PathResults{}, &RuleError{Rule: kind, PID: n.Record.PID, Name: n.Record.Name, Err: err}
			}
			res.Entries = append(res.Entries, PathResult{
				PID:      n.Record.PID,
				PPID:     n.Record.PPID,
				Name:     n.Record.Name,
				Path:     path,
				Expected: want,
				Pass:     equal(path, want),
				VadState: state,
			})
		}
	}
	return res, nil
}
