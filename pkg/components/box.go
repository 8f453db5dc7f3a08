package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BoxStyle controls how RenderBox draws a panel.
type BoxStyle struct {
	Title       string
	TitleColor  lipgloss.Color
	BorderColor lipgloss.Color
}

// RenderBox draws content inside a rounded border with one column of
// horizontal padding. width and height are the outer dimensions. Content
// lines are cut or padded to fit; a title, when set, takes the first row.
// Returns "" when the box has no interior.
func RenderBox(content string, width, height int, style BoxStyle) string {
	if width < 5 || height < 3 {
		return ""
	}
	inner := width - 4
	rows := height - 2

	var lines []string
	if style.Title != "" {
		title := lipgloss.NewStyle().Bold(true).Foreground(style.TitleColor).Render(Truncate(style.Title, inner))
		lines = append(lines, title)
	}
	if content != "" {
		lines = append(lines, strings.Split(content, "\n")...)
	}
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for i := range lines {
		lines[i] = FitLine(lines[i], inner)
	}
	for len(lines) < rows {
		lines = append(lines, strings.Repeat(" ", inner))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.BorderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
