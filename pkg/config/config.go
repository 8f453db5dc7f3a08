// Package config loads wifi-pulse configuration from TOML or YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full wifi-pulse configuration.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Source  SourceConfig  `toml:"source" yaml:"source"`
	Notify  NotifyConfig  `toml:"notify" yaml:"notify"`
	Daemon  DaemonConfig  `toml:"daemon" yaml:"daemon"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// LogFile receives logs in TUI and daemon mode.
	LogFile string `toml:"log_file" yaml:"log_file"`
}

// SourceConfig controls how network state is observed.
type SourceConfig struct {
	// PollInterval is how often the interface table is re-read.
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval"`

	// Netlink enables kernel link events on Linux.
	Netlink bool `toml:"netlink" yaml:"netlink"`

	// Tailnet enables Tailscale exit node detection.
	Tailnet bool `toml:"tailnet" yaml:"tailnet"`

	// TailscaleSocket overrides the tailscaled LocalAPI socket.
	TailscaleSocket string `toml:"tailscale_socket" yaml:"tailscale_socket"`

	// TailnetTimeout bounds each LocalAPI status call.
	TailnetTimeout Duration `toml:"tailnet_timeout" yaml:"tailnet_timeout"`
}

// NotifyConfig controls notification delivery.
type NotifyConfig struct {
	// Sink is desktop, log or none.
	Sink string `toml:"sink" yaml:"sink"`

	// AppName is shown as the notification's source application.
	AppName string `toml:"app_name" yaml:"app_name"`

	// Timeout bounds a single delivery.
	Timeout Duration `toml:"timeout" yaml:"timeout"`

	// QueueSize is how many notifications may wait for delivery.
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// DaemonConfig holds background-mode paths.
type DaemonConfig struct {
	SocketPath string `toml:"socket_path" yaml:"socket_path"`
	PIDFile    string `toml:"pid_file" yaml:"pid_file"`
	HealthFile string `toml:"health_file" yaml:"health_file"`
}

// Accepted values for validation.
var (
	logLevels = []string{"debug", "info", "warn", "error"}
	sinks     = []string{"desktop", "log", "none", "off"}
)

// MinPollInterval is the shortest poll interval accepted.
const MinPollInterval = 100 * time.Millisecond

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if !contains(logLevels, c.General.LogLevel) {
		errs = append(errs, fmt.Errorf("general.log_level %q must be one of %s", c.General.LogLevel, strings.Join(logLevels, ", ")))
	}
	if c.Source.PollInterval.Duration < MinPollInterval {
		errs = append(errs, fmt.Errorf("source.poll_interval %s is below %s", c.Source.PollInterval.Duration, MinPollInterval))
	}
	if !contains(sinks, c.Notify.Sink) {
		errs = append(errs, fmt.Errorf("notify.sink %q must be one of %s", c.Notify.Sink, strings.Join(sinks, ", ")))
	}
	if c.Notify.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("notify.queue_size must be positive, got %d", c.Notify.QueueSize))
	}
	if c.Notify.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("notify.timeout must be positive"))
	}
	if c.Daemon.SocketPath == "" {
		errs = append(errs, errors.New("daemon.socket_path is required"))
	}

	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
