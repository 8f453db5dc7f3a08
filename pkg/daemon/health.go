package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/watcher"
)

// HealthStatus is the daemon's self-report, served over IPC and mirrored to
// the health file.
type HealthStatus struct {
	PID              int                   `json:"pid"`
	StartedAt        time.Time             `json:"started_at"`
	Uptime           string                `json:"uptime"`
	Running          bool                  `json:"running"`
	Wifi             string                `json:"wifi"`
	Status           string                `json:"status"`
	Observation      *netstate.Observation `json:"observation,omitempty"`
	Transitions      int64                 `json:"transitions"`
	LastNotification *watcher.Note         `json:"last_notification,omitempty"`
	Delivery         notify.DispatchStats  `json:"delivery"`
}

// WriteHealthFile writes status as indented JSON to path through a
// temporary file and rename, so readers never see a partial write.
func WriteHealthFile(path string, status *HealthStatus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}
	return nil
}

// ReadHealthFile reads and parses the health status JSON from path.
func ReadHealthFile(path string) (*HealthStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}
	return &status, nil
}
