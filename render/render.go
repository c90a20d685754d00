// Package render prints process forests, check reports and tree diagnostics
// as text tables.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"checkpstree/process"
	"checkpstree/pstree"
	"checkpstree/rules"

	"github.com/charmbracelet/lipgloss"
)

// NoneValue is printed for paths a process does not have
const NoneValue = "<None>"

const (
	nameWidth = 50
	numWidth  = 6
)

var titles = map[rules.RuleKind]string{
	rules.UniqueNames:      "Unique Names Check",
	rules.ReferenceParents: "Reference Parents Check",
	rules.PebFullname:      "PEB Fullname Check",
	rules.VadFilename:      "VAD Filename Check",
}

// Options control styling
type Options struct {
	// Plain disables colour even when w is a terminal
	Plain bool
}

type styles struct {
	pass    FormatFunc
	fail    FormatFunc
	heading FormatFunc
}

func newStyles(w io.Writer, opts Options) styles {
	if opts.Plain {
		return styles{}
	}

	// the renderer drops colour by itself when w is not a terminal
	r := lipgloss.NewRenderer(w)
	pass := r.NewStyle().Foreground(lipgloss.Color("2"))
	fail := r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	heading := r.NewStyle().Bold(true)

	return styles{
		pass:    func(s string) string { return pass.Render(s) },
		fail:    func(s string) string { return fail.Render(s) },
		heading: func(s string) string { return heading.Render(s) },
	}
}

func (s styles) verdict(v string) string {
	switch {
	case v == "True" && s.pass != nil:
		return s.pass(v)
	case v == "False" && s.fail != nil:
		return s.fail(v)
	}
	return v
}

func (s styles) title(v string) string {
	if s.heading == nil {
		return v
	}
	return s.heading(v)
}

// Tree writes one line per process in walk order: dots for depth, then pid,
// name, PEB full name and VAD filename.
func Tree(w io.Writer, forest *pstree.Forest) error {
	var err error
	forest.Walk(func(n *pstree.Node, _ *pstree.Node, depth int) bool {
		rec := n.Record
		_, err = fmt.Fprintf(w, "%s%d %s %s %s\n",
			strings.Repeat(".", depth), rec.PID, rec.Name, fullName(rec), vadFilename(rec))
		return err == nil
	})
	return err
}

func fullName(rec process.ProcessRecord) string {
	if p := rec.FullName(); p != nil {
		return *p
	}
	return NoneValue
}

func vadFilename(rec process.ProcessRecord) string {
	if rec.VAD == nil {
		return NoneValue
	}
	return rec.VAD.DisplayFilename()
}

// Analysis writes the full text report: the tree listing followed by every
// check section present in report.
func Analysis(w io.Writer, forest *pstree.Forest, report rules.Report, opts Options) error {
	st := newStyles(w, opts)
	if _, err := fmt.Fprintf(w, "%s\n%s\n", strings.Repeat("=", 79), st.title("Analysis report")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, st.title("PSTree")); err != nil {
		return err
	}
	if err := Tree(w, forest); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return Report(w, report, opts)
}

// Report writes one table per rule kind present in report, in report order
func Report(w io.Writer, report rules.Report, opts Options) error {
	st := newStyles(w, opts)

	for _, kind := range report.Kinds() {
		var t *Table
		switch kind {
		case rules.UniqueNames:
			t = uniqueNamesTable(report.UniqueNames(), st)
		case rules.ReferenceParents:
			t = referenceParentsTable(report.ReferenceParents(), st)
		default:
			t = pathTable(report.Paths(kind), st)
		}

		if _, err := fmt.Fprintln(w, st.title(titles[kind])); err != nil {
			return err
		}
		if err := t.Render(w); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func verdictColumn(st styles) ColumnSpec {
	return ColumnSpec{Header: "Pass", MinWidth: numWidth, AlignRight: true, FormatFunc: st.verdict}
}

func uniqueNamesTable(entries rules.UniqueNameResults, st styles) *Table {
	t := NewTable(
		ColumnSpec{Header: "Name", MinWidth: nameWidth},
		ColumnSpec{Header: "Count", MinWidth: numWidth, AlignRight: true},
		verdictColumn(st),
	)
	for _, e := range entries {
		t.AddRow(e.Name, strconv.Itoa(e.Count), boolString(e.Pass))
	}
	return t
}

func referenceParentsTable(entries rules.ReferenceParentResults, st styles) *Table {
	t := NewTable(
		ColumnSpec{Header: "Name", MinWidth: nameWidth},
		ColumnSpec{Header: "pid", MinWidth: numWidth, AlignRight: true},
		ColumnSpec{Header: "Parent", MinWidth: nameWidth},
		ColumnSpec{Header: "ppid", MinWidth: numWidth, AlignRight: true},
		verdictColumn(st),
		ColumnSpec{Header: "Expected Parent", MinWidth: nameWidth},
	)
	for _, e := range entries {
		t.AddRow(e.Name, pidString(e.PID), e.Parent, pidString(e.PPID), boolString(e.Pass), e.Expected)
	}
	return t
}

func pathTable(entries []rules.PathResult, st styles) *Table {
	t := NewTable(
		ColumnSpec{Header: "Name", MinWidth: nameWidth},
		ColumnSpec{Header: "pid", MinWidth: numWidth, AlignRight: true},
		ColumnSpec{Header: "ppid", MinWidth: numWidth, AlignRight: true},
		ColumnSpec{Header: "Path", MinWidth: nameWidth},
		verdictColumn(st),
		ColumnSpec{Header: "Expected", MinWidth: nameWidth},
	)
	for _, e := range entries {
		t.AddRow(e.Name, pidString(e.PID), pidString(e.PPID), e.Path, boolString(e.Pass), e.Expected)
	}
	return t
}

// Diagnostics writes a table of tree anomalies, or nothing when there are none
func Diagnostics(w io.Writer, anomalies []pstree.Anomaly, opts Options) error {
	if len(anomalies) == 0 {
		return nil
	}
	st := newStyles(w, opts)

	t := NewTable(
		ColumnSpec{Header: "Kind", FormatFunc: st.fail},
		ColumnSpec{Header: "pid", MinWidth: numWidth, AlignRight: true},
		ColumnSpec{Header: "ppid", MinWidth: numWidth, AlignRight: true},
		ColumnSpec{Header: "Name"},
		ColumnSpec{Header: "Detail"},
	)
	for _, a := range anomalies {
		t.AddRow(string(a.Kind), pidString(a.PID), pidString(a.PPID), a.Name, a.Detail)
	}

	if _, err := fmt.Fprintln(w, st.title("Tree Diagnostics")); err != nil {
		return err
	}
	if err := t.Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func pidString(pid process.ProcessID) string {
	return strconv.Itoa(int(pid))
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
