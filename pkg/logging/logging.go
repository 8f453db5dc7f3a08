// Package logging builds the process slog.Logger: colored tint output on a
// terminal, plain text elsewhere, and an optional append-only log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Mode selects where logs go.
type Mode int

const (
	// ModeConsole logs to the console writer only.
	ModeConsole Mode = iota
	// ModeFile logs to the log file only. The TUI owns the terminal.
	ModeFile
	// ModeBoth logs to the console and the file.
	ModeBoth
)

// Options configures New.
type Options struct {
	Level   slog.Level
	Mode    Mode
	Console io.Writer // defaults to os.Stderr
	File    string
}

// ParseLevel maps debug, info, warn or error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// New builds a logger. The returned closer releases the log file and is
// never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var file *os.File
	if opts.Mode != ModeConsole {
		if opts.File == "" {
			return nil, nil, fmt.Errorf("log file required for mode %d", opts.Mode)
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var h slog.Handler
	switch opts.Mode {
	case ModeFile:
		h = slog.NewTextHandler(file, handlerOpts)
	case ModeBoth:
		h = slog.NewTextHandler(io.MultiWriter(console, file), handlerOpts)
	default:
		if IsTerminal(console) {
			h = tint.NewHandler(console, &tint.Options{
				Level:      opts.Level,
				TimeFormat: time.Kitchen,
			})
		} else {
			h = slog.NewTextHandler(console, handlerOpts)
		}
	}

	var closer io.Closer = nopCloser{}
	if file != nil {
		closer = file
	}
	return slog.New(h), closer, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
