// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// livecanvas is the terminal client for a shared canvas. It joins a
// room on a livecanvas-relay and shows every participant's cursor,
// inline chat and reactions.
//
// Move the mouse to show your cursor. Press / to type a message that
// follows the cursor, e to pick a reaction and hold the left button to
// send it, and esc to hide. Leaving the canvas hides your cursor for
// everyone.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/livecanvas/comments"
	"github.com/bureau-foundation/livecanvas/lib/canvasui"
	"github.com/bureau-foundation/livecanvas/lib/clock"
	"github.com/bureau-foundation/livecanvas/lib/config"
	"github.com/bureau-foundation/livecanvas/lib/logging"
	"github.com/bureau-foundation/livecanvas/lib/version"
	"github.com/bureau-foundation/livecanvas/presence"
	"github.com/bureau-foundation/livecanvas/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		relayNetwork string
		relayAddress string
		room         string
		name         string
		logOutput    string
		threadsFile  string
		logLevel     string
		showVersion  bool
	)

	flagSet := pflag.NewFlagSet("livecanvas", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&relayNetwork, "relay-network", "", "relay network, unix or tcp (overrides config)")
	flagSet.StringVar(&relayAddress, "relay-address", "", "relay socket path or host:port (overrides config)")
	flagSet.StringVarP(&room, "room", "r", "", "room to join (overrides config)")
	flagSet.StringVarP(&name, "name", "n", "", "name shown next to your cursor (overrides config)")
	flagSet.StringVar(&threadsFile, "threads", "", "YAML file of comment threads to pin on the canvas (overrides config)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("livecanvas")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if relayNetwork != "" {
		cfg.Client.RelayNetwork = relayNetwork
	}
	if relayAddress != "" {
		cfg.Client.RelayAddress = relayAddress
	}
	if room != "" {
		cfg.Client.Room = room
	}
	if name != "" {
		cfg.Client.Name = name
	}
	if threadsFile != "" {
		cfg.Client.ThreadsFile = threadsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Anything written to stderr would corrupt the alt-screen, so the
	// client only logs to a file.
	logger := logging.Discard()
	if logOutput != "" {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		fileLogger, closeLog, err := logging.NewFile(logOutput, level)
		if err != nil {
			return err
		}
		defer closeLog()
		logger = fileLogger
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runCanvas(ctx, cfg, logger)
}

func runCanvas(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// The thread list is local and read-only on disk; raises live for
	// this run only.
	var threads comments.ThreadStore
	if cfg.Client.ThreadsFile != "" {
		store, err := comments.LoadFile(cfg.Client.ThreadsFile)
		if err != nil {
			return err
		}
		threads = store
	}

	client, err := transport.Dial(ctx, transport.DialConfig{
		Network:       cfg.Client.RelayNetwork,
		Address:       cfg.Client.RelayAddress,
		Room:          cfg.Client.Room,
		Name:          cfg.Client.Name,
		Logger:        logger.With("component", "transport"),
		MaxFrameBytes: cfg.Relay.MaxFrameBytes,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("joined room", "room", cfg.Client.Room, "participant", client.ID())

	latest := &canvasui.Latest{}
	session, err := presence.Start(ctx, presence.Config{
		Room:     client,
		Clock:    clock.Real(),
		Logger:   logger.With("component", "presence"),
		OnChange: latest.Store,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	model := canvasui.NewModel(canvasui.Config{
		Engine:   session,
		Latest:   latest,
		Renderer: canvasui.NewRenderer(os.Stdout),
		Palette:  cfg.Client.Reactions,
		Threads:  threads,
		Room:     cfg.Client.Room,
		Name:     cfg.Client.Name,
		Logger:   logger.With("component", "ui"),
	})
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
	)

	// A lost relay ends the program rather than leaving a canvas that
	// silently stopped updating.
	go func() {
		select {
		case <-client.Done():
			program.Quit()
		case <-session.Done():
			program.Quit()
		case <-ctx.Done():
		}
	}()

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		return err
	}
	// The client is only closed by the deferred Close, so a closed
	// client here means the relay went away.
	select {
	case <-client.Done():
		if cause := client.Err(); cause != nil {
			return fmt.Errorf("relay connection lost: %w", cause)
		}
		return errors.New("relay closed the connection")
	default:
		return nil
	}
}

// loadConfig reads path, or LIVECANVAS_CONFIG when path is empty. With
// neither, it returns the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		return config.Default().ExpandDefaults(), nil
	}
	return cfg, err
}
