package pstree

import (
	"fmt"
	"strings"

	"checkpstree/process"
)

// AnomalyKind names a structural problem in a record list
type AnomalyKind string

const (
	// DuplicatePID: a pid seen before in the list. Build attaches children to the first one.
	DuplicatePID AnomalyKind = "duplicate_pid"
	// SelfParent: ppid equals pid. Build leaves such a record as a root.
	SelfParent AnomalyKind = "self_parent"
	// ParentCycle: following ppids loops back. Build breaks the loop at one of its records, which becomes a root.
	ParentCycle AnomalyKind = "parent_cycle"
	// Orphan: the ppid matches no record. Usual for the first process of a snapshot.
	Orphan AnomalyKind = "orphan"
)

// Anomaly is one diagnostic about the input records. The builder never acts
// on these, they are reported for the reader.
type Anomaly struct {
	Kind   AnomalyKind       `json:"kind"`
	PID    process.ProcessID `json:"pid"`
	PPID   process.ProcessID `json:"ppid"`
	Name   string            `json:"name"`
	Detail string            `json:"detail,omitempty"`
}

func (a Anomaly) String() string {
	s := fmt.Sprintf("%s: pid %d ppid %d %s", a.Kind, a.PID, a.PPID, a.Name)
	if a.Detail != "" {
		s += " (" + a.Detail + ")"
	}
	return s
}

// Diagnose reports duplicate pids, self parents, parent cycles and orphans,
// in that order, each group in input order.
func Diagnose(records []process.ProcessRecord) []Anomaly {
	var out []Anomaly

	first := make(map[process.ProcessID]int, len(records))
	for i, rec := range records {
		if j, seen := first[rec.PID]; seen {
			out = append(out, Anomaly{
				Kind:   DuplicatePID,
				PID:    rec.PID,
				PPID:   rec.PPID,
				Name:   rec.Name,
				Detail: fmt.Sprintf("first seen as %q at record %d", records[j].Name, j),
			})
			continue
		}
		first[rec.PID] = i
	}

	for _, rec := range records {
		if rec.PID == rec.PPID {
			out = append(out, Anomaly{Kind: SelfParent, PID: rec.PID, PPID: rec.PPID, Name: rec.Name})
		}
	}

	out = append(out, findCycles(records, first)...)

	for _, rec := range records {
		if _, ok := first[rec.PPID]; !ok {
			out = append(out, Anomaly{Kind: Orphan, PID: rec.PID, PPID: rec.PPID, Name: rec.Name})
		}
	}

	return out
}

// findCycles follows ppid links through the first record of every pid. Each
// cycle is reported once, on the record where the walk entered it.
func findCycles(records []process.ProcessRecord, first map[process.ProcessID]int) []Anomaly {
	const (
		unvisited = iota
		onPath
		done
	)

	var out []Anomaly
	state := make([]int, len(records))

	for start := range records {
		if state[start] != unvisited {
			continue
		}

		var path []int
		i := start
		for {
			if state[i] == done {
				break
			}
			if state[i] == onPath {
				cycle := cycleFrom(path, i)
				// self parents are reported on their own
				if len(cycle) > 1 {
					rec := records[i]
					out = append(out, Anomaly{
						Kind:   ParentCycle,
						PID:    rec.PID,
						PPID:   rec.PPID,
						Name:   rec.Name,
						Detail: describeCycle(records, cycle),
					})
				}
				break
			}

			state[i] = onPath
			path = append(path, i)

			next, ok := first[records[i].PPID]
			if !ok {
				break
			}
			i = next
		}

		for _, j := range path {
			state[j] = done
		}
	}

	return out
}

func cycleFrom(path []int, at int) []int {
	for k, j := range path {
		if j == at {
			return path[k:]
		}
	}
	return nil
}

func describeCycle(records []process.ProcessRecord, cycle []int) string {
	parts := make([]string, 0, len(cycle)+1)
	for _, j := range cycle {
		parts = append(parts, fmt.Sprintf("%d", records[j].PID))
	}
	parts = append(parts, fmt.Sprintf("%d", records[cycle[0]].PID))
	return strings.Join(parts, " -> ")
}
