package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable renders static rows with aligned columns.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewSimpleTable creates a new SimpleTable with the given title and headers.
func NewSimpleTable(title string, headers []string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table. Cells use cellStyle; headers are bold.
func (t *SimpleTable) View(styles Styles, cellStyle lipgloss.Style) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Bold.Render(t.Title))
		sb.WriteString("\n")
	}

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}

	// Width includes the padding on both sides.
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := cellStyle.Padding(0, 1)
	sepStyle := styles.Muted

	writeRow := func(style lipgloss.Style, row []string) {
		for i := range colWidths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(style.Width(colWidths[i]).Render(cell))
			if i < len(colWidths)-1 {
				sb.WriteString(sepStyle.Render("|"))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headerStyle, t.Headers)

	totalWidth := len(colWidths) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", totalWidth)) + "\n")

	for _, row := range t.Rows {
		writeRow(rowStyle, row)
	}

	return sb.String()
}
