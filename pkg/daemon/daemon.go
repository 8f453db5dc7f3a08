// Package daemon runs wifi-pulse in the background: it holds a PID file,
// answers STATUS, HEALTH, REFRESH and QUIT over a Unix socket, and keeps a
// health file current.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/watcher"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/widgets"
)

// Watcher is the part of *watcher.Watcher the daemon needs.
type Watcher interface {
	Snapshot() watcher.Status
	Refresh(ctx context.Context) error
}

// StatsSource reports notification delivery counters.
// *notify.Dispatcher satisfies it.
type StatsSource interface {
	Stats() notify.DispatchStats
}

// Config holds the daemon's paths.
type Config struct {
	SocketPath     string
	PIDFile        string
	HealthFile     string
	RefreshTimeout time.Duration
}

// Daemon serves IPC for a running watcher.
type Daemon struct {
	cfg     Config
	watcher Watcher
	stats   StatsSource
	logger  *slog.Logger
	now     func() time.Time

	startedAt time.Time
	dirty     chan struct{}
	quit      chan struct{}
	quitOnce  sync.Once
}

// New creates a daemon. stats may be nil.
func New(cfg Config, w Watcher, stats StatsSource, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 5 * time.Second
	}
	return &Daemon{
		cfg:       cfg,
		watcher:   w,
		stats:     stats,
		logger:    logger,
		now:       time.Now,
		startedAt: time.Now(),
		dirty:     make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
}

// Publish marks the health file stale. It never blocks, so it can be called
// from the watcher's publisher.
func (d *Daemon) Publish(watcher.Update) {
	d.markDirty()
}

func (d *Daemon) markDirty() {
	select {
	case d.dirty <- struct{}{}:
	default:
	}
}

// Run acquires the PID file, serves IPC, and keeps the health file current
// until ctx is cancelled or a QUIT command arrives.
func (d *Daemon) Run(ctx context.Context) error {
	if d.cfg.PIDFile != "" {
		if err := AcquirePID(d.cfg.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := ReleasePID(d.cfg.PIDFile); err != nil {
				d.logger.Warn("release PID file", "error", err)
			}
		}()
	}

	srv := NewIPCServer(d.cfg.SocketPath, d, d.logger)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	d.logger.Info("daemon listening", "socket", d.cfg.SocketPath)

	d.writeHealth()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.writeHealth()
			return ctx.Err()
		case <-d.quit:
			d.logger.Info("quit requested over IPC")
			d.writeHealth()
			return nil
		case <-d.dirty:
			d.writeHealth()
		case <-ticker.C:
			d.writeHealth()
		}
	}
}

// HandleCommand implements IPCHandler.
func (d *Daemon) HandleCommand(ctx context.Context, cmd string, args map[string]string) (string, error) {
	switch cmd {
	case CmdStatus:
		if args["format"] == "text" {
			return d.statusText()
		}
		return marshal(d.watcher.Snapshot())

	case CmdHealth:
		return marshal(d.Health())

	case CmdRefresh:
		rctx, cancel := context.WithTimeout(ctx, d.cfg.RefreshTimeout)
		defer cancel()
		if err := d.watcher.Refresh(rctx); err != nil {
			return "", fmt.Errorf("refresh: %w", err)
		}
		d.markDirty()
		return marshal(d.watcher.Snapshot())

	case CmdQuit:
		d.quitOnce.Do(func() { close(d.quit) })
		return `{"ok":true}`, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}

// Health assembles the current health report.
func (d *Daemon) Health() *HealthStatus {
	snap := d.watcher.Snapshot()
	h := &HealthStatus{
		PID:              os.Getpid(),
		StartedAt:        d.startedAt,
		Uptime:           d.now().Sub(d.startedAt).Round(time.Second).String(),
		Running:          snap.Running,
		Wifi:             snap.Wifi.String(),
		Status:           widgets.StatusText(snap.Observation),
		Observation:      snap.Observation,
		Transitions:      snap.Transitions,
		LastNotification: snap.LastNotification,
	}
	if d.stats != nil {
		h.Delivery = d.stats.Stats()
	}
	return h
}

// Done is closed when a QUIT command has been received.
func (d *Daemon) Done() <-chan struct{} { return d.quit }

func (d *Daemon) statusText() (string, error) {
	snap := d.watcher.Snapshot()
	return marshal(map[string]string{"status": widgets.StatusText(snap.Observation)})
}

func (d *Daemon) writeHealth() {
	if d.cfg.HealthFile == "" {
		return
	}
	if err := WriteHealthFile(d.cfg.HealthFile, d.Health()); err != nil {
		d.logger.Warn("write health file", "error", err)
	}
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(data), nil
}

// ResponseError extracts the error field from an IPC response, if any.
func ResponseError(resp string) error {
	var r struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(resp), &r) == nil && r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}
