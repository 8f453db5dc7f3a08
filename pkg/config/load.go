package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// appDir is the directory name used under the XDG base directories.
const appDir = "wifi-pulse"

// Format selects the decoder for a config file.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFor picks a format from a file name. Anything that is not .yaml
// or .yml is TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Loader reads configuration through an afero filesystem so tests can use
// an in-memory one.
type Loader struct {
	fs     afero.Fs
	getenv func(string) string
	home   string
}

// NewLoader creates a loader over fs using the process environment.
func NewLoader(fs afero.Fs) *Loader {
	home, _ := os.UserHomeDir()
	return &Loader{fs: fs, getenv: os.Getenv, home: home}
}

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/wifi-pulse/config.toml (then config.yaml)
//  2. ~/.config/wifi-pulse/config.toml (then config.yaml)
//
// If no file exists, returns DefaultConfig() with env overrides applied.
func Load() (*Config, error) {
	return NewLoader(afero.NewOsFs()).Load()
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(afero.NewOsFs()).LoadFile(path)
}

// Load searches the standard paths.
func (l *Loader) Load() (*Config, error) {
	for _, p := range l.searchPaths() {
		if ok, _ := afero.Exists(l.fs, p); ok {
			return l.LoadFile(p)
		}
	}
	cfg := l.defaults()
	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one file. A missing file yields the defaults.
func (l *Loader) LoadFile(path string) (*Config, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := l.defaults()
			if err := l.applyEnvOverrides(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := l.decode(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads TOML configuration from r.
func LoadFromReader(r io.Reader) (*Config, error) {
	return NewLoader(afero.NewMemMapFs()).decode(r, FormatTOML)
}

func (l *Loader) decode(r io.Reader, format Format) (*Config, error) {
	cfg := l.defaults()
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
			return nil, err
		}
	}
	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration with sensible defaults.
func DefaultConfig() *Config {
	return NewLoader(afero.NewMemMapFs()).defaults()
}

func (l *Loader) defaults() *Config {
	stateDir := filepath.Join(l.xdgCacheHome(), appDir)

	socketDir := stateDir
	if v := l.getenv("XDG_RUNTIME_DIR"); v != "" {
		socketDir = filepath.Join(v, appDir)
	}

	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			LogFile:  filepath.Join(stateDir, "wifi-pulse.log"),
		},
		Source: SourceConfig{
			PollInterval:   Duration{2 * time.Second},
			Netlink:        true,
			Tailnet:        false,
			TailnetTimeout: Duration{500 * time.Millisecond},
		},
		Notify: NotifyConfig{
			Sink:      "desktop",
			AppName:   "wifi-pulse",
			Timeout:   Duration{5 * time.Second},
			QueueSize: 16,
		},
		Daemon: DaemonConfig{
			SocketPath: filepath.Join(socketDir, "wifi-pulse.sock"),
			PIDFile:    filepath.Join(stateDir, "wifi-pulse.pid"),
			HealthFile: filepath.Join(stateDir, "health.json"),
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	if v := l.getenv("WIFI_PULSE_SINK"); v != "" {
		cfg.Notify.Sink = v
	}
	if v := l.getenv("WIFI_PULSE_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = strings.ToLower(v)
	}
	if v := l.getenv("WIFI_PULSE_POLL_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("WIFI_PULSE_POLL_INTERVAL: %w", err)
		}
		cfg.Source.PollInterval = Duration{d}
	}
	if v := l.getenv("TAILSCALE_SOCKET"); v != "" {
		cfg.Source.TailscaleSocket = v
		cfg.Source.Tailnet = true
	}
	return nil
}

// searchPaths returns the ordered list of config file paths to try.
func (l *Loader) searchPaths() []string {
	dirs := []string{filepath.Join(l.xdgConfigHome(), appDir)}

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	fallback := filepath.Join(l.home, ".config", appDir)
	if dirs[0] != fallback {
		dirs = append(dirs, fallback)
	}

	var paths []string
	for _, d := range dirs {
		paths = append(paths, filepath.Join(d, "config.toml"), filepath.Join(d, "config.yaml"))
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func (l *Loader) xdgConfigHome() string {
	if v := l.getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(l.home, ".config")
}

// xdgCacheHome returns XDG_CACHE_HOME or ~/.cache as fallback.
func (l *Loader) xdgCacheHome() string {
	if v := l.getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	return filepath.Join(l.home, ".cache")
}
