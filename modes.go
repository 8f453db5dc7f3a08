package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/app"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/config"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/daemon"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate/tailnet"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/terminal"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/watcher"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/widgets"
)

// newProbe builds the interface probe, with exit node detection when
// enabled.
func newProbe(cfg *config.Config, logger *slog.Logger) *netstate.InterfaceProbe {
	opts := []netstate.ProbeOption{netstate.WithProbeLogger(logger)}
	if cfg.Source.Tailnet {
		tp := tailnet.New(tailnet.Config{
			Timeout:    cfg.Source.TailnetTimeout.Duration,
			SocketPath: cfg.Source.TailscaleSocket,
		}, nil)
		opts = append(opts, netstate.WithTunnelProbe(tp))
	}
	return netstate.NewInterfaceProbe(opts...)
}

// newMonitor builds the production network-state source.
func newMonitor(cfg *config.Config, logger *slog.Logger) *netstate.Monitor {
	return netstate.NewMonitor(newProbe(cfg, logger), netstate.MonitorConfig{
		Interval:   cfg.Source.PollInterval.Duration,
		LinkEvents: cfg.Source.Netlink,
	}, netstate.WithMonitorLogger(logger))
}

// pipeline is the running watcher with its collaborators.
type pipeline struct {
	monitor    *netstate.Monitor
	sink       notify.Sink
	dispatcher *notify.Dispatcher
	watcher    *watcher.Watcher
	logger     *slog.Logger
}

// newPipeline wires source, sink, dispatcher and watcher and asks for
// notification permission. publish and onResult may be nil.
func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	publish func(watcher.Update), onResult func(notify.Notification, error)) (*pipeline, error) {

	sink, err := notify.New(cfg.Notify.Sink, notify.SinkOptions{
		AppName: cfg.Notify.AppName,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	if perm, err := notify.EnsurePermission(ctx, sink); err != nil {
		logger.Warn("notification permission check failed", "sink", sink.Name(), "error", err)
	} else if perm != notify.PermissionGranted {
		logger.Warn("notifications not permitted", "sink", sink.Name(), "permission", perm)
	}

	dopts := []notify.DispatcherOption{notify.WithDispatchLogger(logger)}
	if onResult != nil {
		dopts = append(dopts, notify.WithResultHook(onResult))
	}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout.Duration,
	}, dopts...)

	mon := newMonitor(cfg, logger)

	wopts := []watcher.Option{watcher.WithLogger(logger)}
	if publish != nil {
		wopts = append(wopts, watcher.WithPublisher(publish))
	}
	w := watcher.New(mon, d, wopts...)

	return &pipeline{monitor: mon, sink: sink, dispatcher: d, watcher: w, logger: logger}, nil
}

// start begins watching. The pipeline is torn down if the watcher fails.
func (p *pipeline) start(ctx context.Context) error {
	if err := p.watcher.Start(ctx); err != nil {
		p.close()
		return err
	}
	return nil
}

// close tears the pipeline down in dependency order.
func (p *pipeline) close() {
	p.watcher.Stop()
	if err := p.monitor.Close(); err != nil {
		p.logger.Debug("close monitor", "error", err)
	}
	p.dispatcher.Close()
	if c, ok := p.sink.(io.Closer); ok {
		c.Close()
	}
}

// runPlain prints a line per observation and notification until ctx ends.
func runPlain(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	printer := terminal.NewPrinter(os.Stdout, terminal.WithWidth(func() int {
		return terminal.Width(os.Stdout.Fd())
	}))

	p, err := newPipeline(ctx, cfg, logger, func(u watcher.Update) {
		printer.Observation(u.Observation)
		if u.Notification != nil {
			printer.Notification(*u.Notification)
		}
	}, nil)
	if err != nil {
		return err
	}
	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.close()

	<-ctx.Done()
	return ctx.Err()
}

// runOnce prints the current status and exits.
func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	obs, err := newProbe(cfg, logger).Probe(qctx)
	if err != nil {
		return fmt.Errorf("query network state: %w", err)
	}
	terminal.NewPrinter(os.Stdout).Observation(obs)
	return nil
}

// runInteractive runs the bubbletea status screen.
func runInteractive(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var current atomic.Pointer[watcher.Watcher]
	refresh := func(ctx context.Context) error {
		w := current.Load()
		if w == nil {
			return watcher.ErrNotStarted
		}
		return w.Refresh(ctx)
	}

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := app.NewModel(app.DefaultConfig(), widgets.NewConnectivityWidget(), refresh)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(pctx))

	// Updates arrive under the watcher lock, possibly before the program
	// runs, so they are forwarded in order from a separate goroutine.
	events := make(chan tea.Msg, 16)
	fwdDone := make(chan struct{})
	go func() {
		defer close(fwdDone)
		for msg := range events {
			prog.Send(msg)
		}
	}()
	forward := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-pctx.Done():
		}
	}

	p, err := newPipeline(ctx, cfg, logger,
		func(u watcher.Update) {
			forward(app.ObservationEvent{Observation: u.Observation, Initial: u.Initial})
		},
		func(n notify.Notification, err error) {
			forward(app.NotificationEvent{Notification: n, Err: err, At: time.Now()})
		})
	if err == nil {
		err = p.start(ctx)
	}
	if err != nil {
		// Unblocks a Send still waiting for the program to start.
		cancel()
		close(events)
		<-fwdDone
		return err
	}
	current.Store(p.watcher)

	_, runErr := prog.Run()
	p.close()
	close(events)
	<-fwdDone

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	return nil
}

// runBackground runs the daemon until ctx ends or QUIT arrives.
func runBackground(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var d *daemon.Daemon
	p, err := newPipeline(ctx, cfg, logger, func(u watcher.Update) { d.Publish(u) }, nil)
	if err != nil {
		return err
	}

	d = daemon.New(daemon.Config{
		SocketPath: cfg.Daemon.SocketPath,
		PIDFile:    cfg.Daemon.PIDFile,
		HealthFile: cfg.Daemon.HealthFile,
	}, p.watcher, p.dispatcher, logger)

	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.close()

	return d.Run(ctx)
}

// runClient sends one IPC command to a running daemon and prints the reply.
func runClient(ctx context.Context, cfg *config.Config, cmd string) error {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := daemon.NewIPCClient(cfg.Daemon.SocketPath).SendCommand(cctx, cmd)
	if err != nil {
		return err
	}
	if err := daemon.ResponseError(resp); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	fmt.Println(resp)
	return nil
}
