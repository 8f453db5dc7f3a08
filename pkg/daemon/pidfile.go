package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAlreadyRunning means a live process holds the PID file.
var ErrAlreadyRunning = errors.New("daemon already running")

// AcquirePID writes the current PID to path. A PID file left by a dead
// process is replaced. The file is written to a temporary name and renamed
// into place.
func AcquirePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}

	if existing, err := ReadPID(path); err == nil {
		if existing != os.Getpid() && IsProcessAlive(existing) {
			return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, existing)
		}
		os.Remove(path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write temp PID file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename PID file: %w", err)
	}
	return nil
}

// ReleasePID removes the PID file at the given path.
func ReleasePID(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file: %w", err)
	}
	return nil
}

// ReadPID reads and parses the PID from the given file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	return pid, nil
}
