// wifi-pulse watches the host's network connectivity and raises a desktop
// notification whenever the machine moves onto or off of Wi-Fi.
//
// Usage:
//
//	wifi-pulse [flags]
//
// Flags:
//
//	-config string  Path to configuration file (default: ~/.config/wifi-pulse/config.toml)
//	-tui            Launch the interactive status screen
//	-daemon         Run in the background and serve IPC
//	-status         Ask a running daemon for the current status
//	-refresh        Ask a running daemon to re-query the network
//	-once           Print the current status and exit
//	-sink string    Override the notification sink (desktop|log|none)
//	-verbose        Enable debug logging
//	-version        Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/config"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/logging"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		runTUI      = flag.Bool("tui", false, "Launch the interactive status screen")
		runDaemon   = flag.Bool("daemon", false, "Run in the background and serve IPC")
		showStatus  = flag.Bool("status", false, "Ask a running daemon for the current status")
		doRefresh   = flag.Bool("refresh", false, "Ask a running daemon to re-query the network")
		once        = flag.Bool("once", false, "Print the current status and exit")
		sinkName    = flag.String("sink", "", "Override the notification sink (desktop|log|none)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("wifi-pulse %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *sinkName != "" {
		cfg.Notify.Sink = *sinkName
	}
	if *verbose {
		cfg.General.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.General.LogLevel)
	mode := logging.ModeConsole
	switch {
	case *runTUI:
		mode = logging.ModeFile
	case *runDaemon:
		mode = logging.ModeBoth
	}
	logger, closer, err := logging.New(logging.Options{Level: level, Mode: mode, File: cfg.General.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *showStatus:
		err = runClient(ctx, cfg, "STATUS text")
	case *doRefresh:
		err = runClient(ctx, cfg, "REFRESH")
	case *once:
		err = runOnce(ctx, cfg, logger)
	case *runTUI:
		err = runInteractive(ctx, cfg, logger)
	case *runDaemon:
		logger.Info("starting wifi-pulse daemon",
			"poll_interval", cfg.Source.PollInterval.Duration,
			"sink", cfg.Notify.Sink,
		)
		err = runBackground(ctx, cfg, logger)
	default:
		err = runPlain(ctx, cfg, logger)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("wifi-pulse failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}
