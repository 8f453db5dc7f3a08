// Package components provides the ANSI-aware text helpers and the bordered
// panel the wifi-pulse status screen is drawn with.
package components

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// VisibleLen returns the width of s in terminal cells, ignoring escape
// sequences.
func VisibleLen(s string) int {
	return ansi.StringWidth(s)
}

// Truncate cuts s to maxWidth cells, ending with an ellipsis when it had to
// cut. Escape sequences before the cut point are kept.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// PadRight pads s with spaces to width cells. Wider strings are returned
// unchanged.
func PadRight(s string, width int) string {
	vis := VisibleLen(s)
	if vis >= width {
		return s
	}
	return s + strings.Repeat(" ", width-vis)
}

// FitLine truncates or pads s to exactly width cells.
func FitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if VisibleLen(s) > width {
		return Truncate(s, width)
	}
	return PadRight(s, width)
}
