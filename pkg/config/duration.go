package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so config files can say "2s" or "500ms".
// It decodes from TOML and YAML alike through encoding.TextUnmarshaler.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// parseDuration accepts Go duration strings. Empty means zero; negative
// values are rejected.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("negative duration %q not allowed", s)
	}
	return parsed, nil
}
