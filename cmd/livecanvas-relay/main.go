// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// livecanvas-relay is the room server for livecanvas. Participants
// connect over a unix or TCP socket, join a room by name, and the relay
// keeps the room's merged presence and fans broadcasts out to the
// other members.
//
// Configuration comes from the file named by --config or
// LIVECANVAS_CONFIG; without either, built-in defaults are used.
// Flags override the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/livecanvas/lib/clock"
	"github.com/bureau-foundation/livecanvas/lib/config"
	"github.com/bureau-foundation/livecanvas/lib/logging"
	"github.com/bureau-foundation/livecanvas/lib/version"
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
		configPath     string
		network        string
		address        string
		metricsAddress string
		logLevel       string
		showVersion    bool
	)

	flagSet := pflag.NewFlagSet("livecanvas-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&network, "network", "", "listen network, unix or tcp (overrides config)")
	flagSet.StringVar(&address, "address", "", "listen address: socket path or host:port (overrides config)")
	flagSet.StringVar(&metricsAddress, "metrics-address", "", "serve Prometheus metrics on this host:port (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("livecanvas-relay")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level).With("component", "relay")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if network != "" {
		cfg.Relay.Network = network
	}
	if address != "" {
		cfg.Relay.Address = address
	}
	if metricsAddress != "" {
		cfg.Relay.MetricsAddress = metricsAddress
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	handshakeTimeout, err := cfg.HandshakeTimeout()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := transport.NewServer(transport.ServerConfig{
		Logger:           logger,
		Clock:            clock.Real(),
		Metrics:          transport.NewMetrics(registry),
		OutboxSize:       cfg.Relay.OutboxSize,
		BroadcastRate:    rate.Limit(cfg.Relay.BroadcastRate),
		BroadcastBurst:   cfg.Relay.BroadcastBurst,
		MaxFrameBytes:    cfg.Relay.MaxFrameBytes,
		HandshakeTimeout: handshakeTimeout,
	})

	listener, err := transport.Listen(cfg.Relay.Network, cfg.Relay.Address)
	if err != nil {
		return err
	}

	if cfg.Relay.MetricsAddress != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Relay.MetricsAddress,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownContext)
		}()
	}

	logger.Info("relay running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"network", cfg.Relay.Network,
		"address", cfg.Relay.Address,
		"metrics_address", cfg.Relay.MetricsAddress,
		"broadcast_rate", cfg.Relay.BroadcastRate,
		"broadcast_burst", cfg.Relay.BroadcastBurst,
	)

	if err := server.Serve(ctx, listener); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
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

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}
