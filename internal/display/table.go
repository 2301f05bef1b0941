package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// Table renders an aligned text table with optional color support.
// Widths are measured in terminal cells, so Arabic names line up.
type Table struct {
	headers []string
	rows    [][]string
	// highlightRow is the 0-based row index to highlight. -1 = none.
	highlightRow int
	highlight    prayer.Name
}

// NewTable creates a new table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers:      headers,
		highlightRow: -1,
	}
}

// AddRow appends a row of values. The number of values should match the number of headers.
func (t *Table) AddRow(values []string) {
	t.rows = append(t.rows, values)
}

// SetHighlightRow marks row idx (0-based) to be drawn in the colors of period n.
func (t *Table) SetHighlightRow(idx int, n prayer.Name) {
	t.highlightRow = idx
	t.highlight = n
}

// Render produces the formatted table string with leading indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder

	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sepParts := make([]string, len(widths))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sepParts, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths)
		if i == t.highlightRow {
			line = Themed(t.highlight, line)
		}
		sb.WriteString("  " + line + "\n")
	}

	return sb.String()
}

// formatRow pads each cell to its column width.
func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = cell + strings.Repeat(" ", max(w-lipgloss.Width(cell), 0))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
