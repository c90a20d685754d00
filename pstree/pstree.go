// Package pstree rebuilds a process forest from an unordered list of records.
//
// Records may arrive in any order. A child seen before its parent sits as a
// root until the parent shows up and adopts it. Records whose parent never
// shows up stay roots, so a truncated snapshot still produces a forest.
package pstree

import (
	"encoding/json"

	"checkpstree/process"
)

// Node is one process in the forest. A node is owned by exactly one parent or is a root.
type Node struct {
	Record   process.ProcessRecord
	Children []*Node
}

// Forest is the ordered list of roots. Root order is discovery order.
type Forest struct {
	roots []*Node
}

// Build runs the records through the builder in input order.
func Build(records []process.ProcessRecord) *Forest {
	f := &Forest{}
	for _, rec := range records {
		f.Add(rec)
	}
	return f
}

// Add inserts one record. Current roots whose ppid is the new pid are moved
// under the new node first, then the new node goes under the first node in
// depth-first order whose pid is its ppid, or becomes a root.
func (f *Forest) Add(rec process.ProcessRecord) *Node {
	node := &Node{Record: rec}

	kept := f.roots[:0]
	for _, root := range f.roots {
		if root.Record.PPID == rec.PID {
			node.Children = append(node.Children, root)
			continue
		}
		kept = append(kept, root)
	}
	// drop references held by the tail of the reused backing array
	for i := len(kept); i < len(f.roots); i++ {
		f.roots[i] = nil
	}
	f.roots = kept

	if parent := f.Find(rec.PPID); parent != nil {
		parent.Children = append(parent.Children, node)
	} else {
		f.roots = append(f.roots, node)
	}

	return node
}

// Roots returns the forest roots. The slice must not be modified.
func (f *Forest) Roots() []*Node {
	return f.roots
}

// VisitFunc is called for each node of a walk. parent is nil for roots.
// Returning false stops the walk.
type VisitFunc func(n *Node, parent *Node, depth int) bool

type frame struct {
	node   *Node
	parent *Node
	depth  int
}

// Walk visits the forest depth first: roots in order, a node before its
// children, a child's whole subtree before its next sibling.
func (f *Forest) Walk(fn VisitFunc) {
	walk(f.roots, nil, 0, fn)
}

// WalkChildren is Walk minus the roots themselves: each root's descendants
// are visited with the root as the parent of its direct children.
func (f *Forest) WalkChildren(fn VisitFunc) {
	for _, root := range f.roots {
		if !walk(root.Children, root, 1, fn) {
			return
		}
	}
}

func walk(start []*Node, parent *Node, depth int, fn VisitFunc) bool {
	stack := make([]frame, 0, len(start))
	for i := len(start) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: start[i], parent: parent, depth: depth})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(top.node, top.parent, top.depth) {
			return false
		}

		children := top.node.Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], parent: top.node, depth: top.depth + 1})
		}
	}
	return true
}

// Find returns the first node in walk order with the given pid, or nil
func (f *Forest) Find(pid process.ProcessID) *Node {
	var found *Node
	f.Walk(func(n *Node, _ *Node, _ int) bool {
		if n.Record.PID == pid {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindByName returns every node with the given name, in walk order
func (f *Forest) FindByName(name string) []*Node {
	var out []*Node
	f.Walk(func(n *Node, _ *Node, _ int) bool {
		if n.Record.Name == name {
			out = append(out, n)
		}
		return true
	})
	return out
}

// CountByName counts the nodes with the given name
func (f *Forest) CountByName(name string) int {
	count := 0
	f.Walk(func(n *Node, _ *Node, _ int) bool {
		if n.Record.Name == name {
			count++
		}
		return true
	})
	return count
}

// Len returns the number of nodes in the forest
func (f *Forest) Len() int {
	count := 0
	f.Walk(func(*Node, *Node, int) bool {
		count++
		return true
	})
	return count
}

type nodeJSON struct {
	process.ProcessRecord
	Children []*Node `json:"children"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	return json.Marshal(nodeJSON{ProcessRecord: n.Record, Children: children})
}

func (f *Forest) MarshalJSON() ([]byte, error) {
	roots := f.roots
	if roots == nil {
		roots = []*Node{}
	}
	return json.Marshal(roots)
}
