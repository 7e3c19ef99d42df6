package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drake/hostbridge/config"
	"github.com/drake/hostbridge/debug"
	"github.com/drake/hostbridge/internal/logging"
	"github.com/drake/hostbridge/session"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	st := defaultStyles()

	// Parse flags
	configPath := flag.String("config", config.File(), "Path to config.toml")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	stay := flag.Bool("stay", false, "Keep running after all timers and reads finish")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, st.fatalLine(err, "check "+*configPath))
		return 2
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *stay {
		cfg.ExitWhenIdle = false
	}

	logger, err := logging.New(logging.Config{
		Level:        cfg.LogLevel,
		Development:  cfg.Development,
		EnableCaller: cfg.Development,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, st.fatalLine(err, ""))
		return 2
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := session.New(session.Config{
		ConfigDir:       config.Dir(),
		UserScripts:     flag.Args(),
		EventQueueLimit: cfg.EventQueueLimit,
		ChunkCacheSize:  cfg.ChunkCacheSize,
		ExitWhenIdle:    cfg.ExitWhenIdle,
	}, logger)

	debug.NewMonitor(s, cfg.DebugInterval.Duration, config.DebugEnabled(), logger).Start(ctx)

	if err := s.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("interrupted")
			return 130
		}
		logger.Debug("session failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, st.fatalLine(err, ""))
		return 1
	}
	return 0
}
