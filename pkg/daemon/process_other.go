//go:build !unix

package daemon

import "os"

// IsProcessAlive reports whether pid can be found.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
