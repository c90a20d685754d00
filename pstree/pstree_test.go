package pstree

import (
	"encoding/json"
	"testing"

	"checkpstree/process"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(pid, ppid int, name string) process.ProcessRecord {
	return process.ProcessRecord{PID: process.ProcessID(pid), PPID: process.ProcessID(ppid), Name: name}
}

// shape renders the forest as nested pid lists for easy comparison
type shapeNode struct {
	PID      process.ProcessID
	Children []shapeNode
}

func shapeOf(nodes []*Node) []shapeNode {
	out := make([]shapeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, shapeNode{PID: n.Record.PID, Children: shapeOf(n.Children)})
	}
	return out
}

// parentsOf maps every pid to the pid of its forest parent, -1 for roots
func parentsOf(f *Forest) map[process.ProcessID]process.ProcessID {
	out := make(map[process.ProcessID]process.ProcessID)
	f.Walk(func(n *Node, parent *Node, _ int) bool {
		if parent == nil {
			out[n.Record.PID] = -1
		} else {
			out[n.Record.PID] = parent.Record.PID
		}
		return true
	})
	return out
}

func permutations(records []process.ProcessRecord) [][]process.ProcessRecord {
	if len(records) <= 1 {
		return [][]process.ProcessRecord{append([]process.ProcessRecord(nil), records...)}
	}
	var out [][]process.ProcessRecord
	for i := range records {
		rest := make([]process.ProcessRecord, 0, len(records)-1)
		rest = append(rest, records[:i]...)
		rest = append(rest, records[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]process.ProcessRecord{records[i]}, p...))
		}
	}
	return out
}

func windowsBoot() []process.ProcessRecord {
	return []process.ProcessRecord{
		rec(4, 0, "System"),
		rec(100, 4, "smss.exe"),
		rec(300, 100, "wininit.exe"),
		rec(400, 300, "services.exe"),
		rec(500, 400, "svchost.exe"),
		rec(600, 400, "svchost.exe"),
	}
}

func TestBuild_OrphanFallback(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(4, 0, "System"),
		rec(100, 4, "svchost"),
	})

	require.Len(t, f.Roots(), 1)
	root := f.Roots()[0]
	assert.Equal(t, "System", root.Record.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "svchost", root.Children[0].Record.Name)
}

func TestBuild_LateParentReattachment(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(200, 100, "child"),
		rec(100, 4, "parent"),
		rec(4, 0, "root"),
	})

	want := []shapeNode{{PID: 4, Children: []shapeNode{{PID: 100, Children: []shapeNode{{PID: 200, Children: []shapeNode{}}}}}}}
	if diff := cmp.Diff(want, shapeOf(f.Roots())); diff != "" {
		t.Fatalf("forest shape mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_AdoptsEveryMatchingRootInScanOrder(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(11, 10, "a"),
		rec(50, 49, "unrelated"),
		rec(12, 10, "b"),
		rec(13, 10, "c"),
		rec(10, 1, "parent"),
	})

	roots := f.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, process.ProcessID(50), roots[0].Record.PID)
	assert.Equal(t, process.ProcessID(10), roots[1].Record.PID)

	var kids []process.ProcessID
	for _, c := range roots[1].Children {
		kids = append(kids, c.Record.PID)
	}
	assert.Equal(t, []process.ProcessID{11, 12, 13}, kids)
}

func TestBuild_AttachesToDeepParent(t *testing.T) {
	f := Build(windowsBoot())

	require.Len(t, f.Roots(), 1)
	services := f.Find(400)
	require.NotNil(t, services)
	require.Len(t, services.Children, 2)
	assert.Equal(t, process.ProcessID(500), services.Children[0].Record.PID)
	assert.Equal(t, process.ProcessID(600), services.Children[1].Record.PID)
}

func TestBuild_CompletenessAndOrderIndependence(t *testing.T) {
	records := windowsBoot()
	want := parentsOf(Build(records))

	for _, perm := range permutations(records) {
		f := Build(perm)
		require.Equal(t, len(records), f.Len())

		seen := make(map[process.ProcessID]int)
		f.Walk(func(n *Node, _ *Node, _ int) bool {
			seen[n.Record.PID]++
			return true
		})
		for _, r := range records {
			assert.Equal(t, 1, seen[r.PID], "pid %d", r.PID)
		}

		if diff := cmp.Diff(want, parentsOf(f)); diff != "" {
			t.Fatalf("relationships differ for permutation %v (-want +got):\n%s", perm, diff)
		}
	}
}

func TestBuild_DuplicatePIDFirstWins(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(4, 0, "System"),
		rec(100, 4, "first"),
		rec(100, 4, "second"),
		rec(200, 100, "child"),
	})

	assert.Equal(t, 4, f.Len())
	first := f.Roots()[0].Children[0]
	assert.Equal(t, "first", first.Record.Name)
	require.Len(t, first.Children, 1)
	assert.Equal(t, "child", first.Children[0].Record.Name)
}

func TestBuild_SelfParentBecomesRoot(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(4, 0, "System"),
		rec(7, 7, "loop"),
		rec(8, 7, "kid"),
	})

	require.Len(t, f.Roots(), 2)
	assert.Equal(t, "loop", f.Roots()[1].Record.Name)
	require.Len(t, f.Roots()[1].Children, 1)
	assert.Equal(t, 3, f.Len())
}

func TestBuild_CycleKeepsEveryRecord(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(1, 2, "a"),
		rec(2, 3, "b"),
		rec(3, 1, "c"),
	})

	assert.Equal(t, 3, f.Len())
	require.Len(t, f.Roots(), 1)
	assert.Equal(t, process.ProcessID(3), f.Roots()[0].Record.PID)
}

func TestBuild_Empty(t *testing.T) {
	f := Build(nil)
	assert.Empty(t, f.Roots())
	assert.Equal(t, 0, f.Len())
	assert.Nil(t, f.Find(4))

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestWalk_Order(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(1, 0, "r1"),
		rec(2, 1, "a"),
		rec(3, 2, "a1"),
		rec(4, 1, "b"),
		rec(5, 0, "r2"),
		rec(6, 5, "c"),
	})

	var order []process.ProcessID
	var depths []int
	f.Walk(func(n *Node, _ *Node, depth int) bool {
		order = append(order, n.Record.PID)
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []process.ProcessID{1, 2, 3, 4, 5, 6}, order)
	assert.Equal(t, []int{0, 1, 2, 1, 0, 1}, depths)

	order = nil
	f.WalkChildren(func(n *Node, parent *Node, _ int) bool {
		require.NotNil(t, parent)
		order = append(order, n.Record.PID)
		return true
	})
	assert.Equal(t, []process.ProcessID{2, 3, 4, 6}, order)

	order = nil
	f.Walk(func(n *Node, _ *Node, _ int) bool {
		order = append(order, n.Record.PID)
		return n.Record.PID != 3
	})
	assert.Equal(t, []process.ProcessID{1, 2, 3}, order)
}

func TestLookups(t *testing.T) {
	f := Build(windowsBoot())

	assert.Equal(t, 2, f.CountByName("svchost.exe"))
	assert.Equal(t, 0, f.CountByName("lsass.exe"))

	nodes := f.FindByName("svchost.exe")
	require.Len(t, nodes, 2)
	assert.Equal(t, process.ProcessID(500), nodes[0].Record.PID)
	assert.Equal(t, process.ProcessID(600), nodes[1].Record.PID)

	assert.Nil(t, f.Find(9999))
}

func TestNode_MarshalJSON(t *testing.T) {
	f := Build([]process.ProcessRecord{
		rec(4, 0, "System"),
		rec(100, 4, "smss.exe"),
	})

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"pid":4,"ppid":0,"name":"System","children":[
			{"pid":100,"ppid":4,"name":"smss.exe","children":[]}
		]}
	]`, string(data))
}
