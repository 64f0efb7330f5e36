package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/registryctl/pkg/tui/styles"
)

type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow is one table line. Detail lines, if any, render indented under
// the cells.
type TableRow struct {
	Icon   string
	Cells  []string
	Detail []string
}

// Table renders rows with a cursor and an optional header line.
type Table struct {
	Columns   []TableColumn
	Rows      []TableRow
	Cursor    int
	Width     int
	Height    int
	EmptyText string
	theme     styles.Theme
}

func NewTable(cols []TableColumn) Table {
	return Table{
		Columns:   cols,
		EmptyText: "(no data)",
		theme:     styles.DefaultTheme(),
	}
}

func (t Table) WithRows(rows []TableRow) Table {
	t.Rows = rows
	return t
}

func (t Table) WithCursor(idx int) Table {
	t.Cursor = idx
	return t
}

func (t Table) WithSize(width, height int) Table {
	t.Width = width
	t.Height = height
	return t
}

func (t Table) WithEmptyText(s string) Table {
	t.EmptyText = s
	return t
}

// Truncate shortens s to width runes, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func (t Table) columnWidth(j int) int {
	if j < len(t.Columns) && t.Columns[j].Width > 0 {
		return t.Columns[j].Width
	}
	return 20
}

func (t Table) renderHeader() string {
	hasHeader := false
	for _, c := range t.Columns {
		if c.Header != "" {
			hasHeader = true
			break
		}
	}
	if !hasHeader {
		return ""
	}
	parts := []string{"  "}
	if t.hasIcons() {
		parts = append(parts, "  ")
	}
	for j, c := range t.Columns {
		parts = append(parts, t.theme.TitleMuted.Width(t.columnWidth(j)).Align(c.Align).Render(Truncate(c.Header, t.columnWidth(j))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (t Table) hasIcons() bool {
	for _, r := range t.Rows {
		if r.Icon != "" {
			return true
		}
	}
	return false
}

func (t Table) Render() string {
	if len(t.Rows) == 0 {
		return t.theme.TitleMuted.Render(t.EmptyText)
	}

	theme := t.theme
	var lines []string
	if h := t.renderHeader(); h != "" {
		lines = append(lines, h)
	}

	icons := t.hasIcons()
	for i, row := range t.Rows {
		isSelected := i == t.Cursor

		var parts []string
		cursor := "  "
		if isSelected {
			cursor = theme.KeybindKey.Render("> ")
		}
		parts = append(parts, cursor)

		if icons {
			icon := row.Icon
			if icon == "" {
				icon = " "
			}
			parts = append(parts, theme.IconStyle(icon).Render(icon)+" ")
		}

		for j, cell := range row.Cells {
			width := t.columnWidth(j)
			cellStyle := lipgloss.NewStyle().Width(width)
			if j < len(t.Columns) {
				cellStyle = cellStyle.Align(t.Columns[j].Align)
			}
			if isSelected {
				cellStyle = cellStyle.Bold(true).Foreground(theme.Text)
			} else {
				cellStyle = cellStyle.Foreground(theme.TextDim)
			}
			parts = append(parts, cellStyle.Render(Truncate(cell, width)))
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		if isSelected && t.Width > 0 {
			line = theme.Selected.Width(t.Width).Render(line)
		}
		lines = append(lines, line)

		for _, d := range row.Detail {
			lines = append(lines, theme.TitleMuted.Render("      "+d))
		}
	}

	return strings.Join(lines, "\n")
}
