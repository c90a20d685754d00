package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FormatFunc is a callback to style cell values
type FormatFunc func(value string) string

// ColumnSpec defines a column's properties
type ColumnSpec struct {
	Header     string
	BlankValue string     // Value to show for empty cells (default: "-")
	FormatFunc FormatFunc // Optional styling, applied after the width is measured
	MinWidth   int        // Minimum column width
	AlignRight bool
}

// Table is a fixed column text table
type Table struct {
	columns []ColumnSpec
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with the given column specifications
func NewTable(cols ...ColumnSpec) *Table {
	t := &Table{
		columns: cols,
		rows:    make([][]string, 0),
		widths:  make([]int, len(cols)),
	}

	for i, col := range cols {
		t.widths[i] = max(col.MinWidth, lipgloss.Width(col.Header))
		if t.columns[i].BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
	}

	return t
}

// AddRow adds a row of data to the table. Missing and empty cells get the
// column's blank value.
func (t *Table) AddRow(data ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(data) && data[i] != "" {
			row[i] = data[i]
		} else {
			row[i] = t.columns[i].BlankValue
		}

		if w := lipgloss.Width(row[i]); w > t.widths[i] {
			t.widths[i] = w
		}
	}

	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a dash rule and every row to w
func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	sep := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.pad(col.Header, i)
		sep[i] = strings.Repeat("-", t.widths[i])
	}
	if err := t.writeLine(w, headers); err != nil {
		return err
	}
	if err := t.writeLine(w, sep); err != nil {
		return err
	}

	for _, row := range t.rows {
		formatted := make([]string, len(row))
		for i, val := range row {
			padded := t.pad(val, i)
			if f := t.columns[i].FormatFunc; f != nil && val != t.columns[i].BlankValue {
				// style the value only, padding stays plain
				padded = strings.Replace(padded, val, f(val), 1)
			}
			formatted[i] = padded
		}
		if err := t.writeLine(w, formatted); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) writeLine(w io.Writer, cells []string) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	return err
}

// pad pads a string to the width of column i
func (t *Table) pad(s string, i int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= t.widths[i] {
		return s
	}
	fill := strings.Repeat(" ", t.widths[i]-visibleLen)
	if t.columns[i].AlignRight {
		return fill + s
	}
	return s + fill
}
