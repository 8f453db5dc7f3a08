//go:build unix

package daemon

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsProcessAlive sends signal 0 to pid. EPERM still means the process
// exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
