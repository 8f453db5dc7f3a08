// Package terminal writes wifi-pulse's plain line output and answers
// terminal size queries for it.
package terminal

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
)

// DefaultWidth is used when no size can be determined.
const DefaultWidth = 80

// Width returns the column count of the terminal on fd. It falls back to
// $COLUMNS, then DefaultWidth.
func Width(fd uintptr) int {
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	return envInt("COLUMNS", DefaultWidth)
}

// envInt reads a positive integer from the named environment variable.
func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
