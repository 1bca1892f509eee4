// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file for [Load].
const EnvironmentVariable = "LIVECANVAS_CONFIG"

// ErrNoConfig is returned by [Load] when LIVECANVAS_CONFIG is unset.
var ErrNoConfig = errors.New(EnvironmentVariable + " environment variable not set")

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the configuration shared by both binaries. Each binary
// reads its own section.
type Config struct {
	Environment Environment `yaml:"environment"`

	Relay  RelayConfig  `yaml:"relay"`
	Client ClientConfig `yaml:"client"`

	// Per-environment overrides, applied after the base values.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections that can be overridden per
// environment. Zero-valued fields leave the base value in place.
type ConfigOverrides struct {
	Relay  *RelayConfig  `yaml:"relay,omitempty"`
	Client *ClientConfig `yaml:"client,omitempty"`
}

// RelayConfig configures livecanvas-relay.
type RelayConfig struct {
	// Network is "unix" or "tcp".
	Network string `yaml:"network"`

	// Address is a socket path for unix, host:port for tcp.
	Address string `yaml:"address"`

	// MetricsAddress serves /metrics over HTTP. Empty disables it.
	MetricsAddress string `yaml:"metrics_address"`

	// OutboxSize is the number of frames queued per participant
	// before further frames to that participant are dropped.
	OutboxSize int `yaml:"outbox_size"`

	// BroadcastRate is the sustained inbound broadcasts per second
	// accepted from one participant. BroadcastBurst is the bucket size.
	BroadcastRate  float64 `yaml:"broadcast_rate"`
	BroadcastBurst int     `yaml:"broadcast_burst"`

	// MaxFrameBytes bounds a single frame payload.
	MaxFrameBytes int `yaml:"max_frame_bytes"`

	// HandshakeTimeout bounds the wait for a client's Hello.
	HandshakeTimeout string `yaml:"handshake_timeout"`
}

// ClientConfig configures the livecanvas terminal client.
type ClientConfig struct {
	RelayNetwork string `yaml:"relay_network"`
	RelayAddress string `yaml:"relay_address"`

	// Room is the canvas session to join.
	Room string `yaml:"room"`

	// Name is shown next to this participant's cursor. Defaults to
	// $USER at load time.
	Name string `yaml:"name"`

	// Reactions is the selector palette, in order.
	Reactions []string `yaml:"reactions"`

	// ThreadsFile, if set, names a YAML file of comment threads to pin
	// over the canvas.
	ThreadsFile string `yaml:"threads_file"`
}

// DefaultReactions is the selector palette used when none is
// configured.
var DefaultReactions = []string{"👍", "🔥", "😍", "👀", "😱", "🙁"}

const defaultSocket = "${XDG_RUNTIME_DIR:-/tmp}/livecanvas/relay.sock"

// Default returns the base configuration the file is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Relay: RelayConfig{
			Network:          "unix",
			Address:          defaultSocket,
			OutboxSize:       256,
			BroadcastRate:    20,
			BroadcastBurst:   40,
			MaxFrameBytes:    64 * 1024,
			HandshakeTimeout: "5s",
		},
		Client: ClientConfig{
			RelayNetwork: "unix",
			RelayAddress: defaultSocket,
			Room:         "lobby",
			Name:         "${USER:-anonymous}",
			Reactions:    append([]string(nil), DefaultReactions...),
		},
	}
}

// Load loads the file named by LIVECANVAS_CONFIG. It returns an error
// wrapping ErrNoConfig when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%w; set it to the path of your livecanvas config file, or use --config", ErrNoConfig)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over [Default], applies the
// environment section, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges one file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder serves both.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Relay: &RelayConfig{BroadcastRate: 12, BroadcastBurst: 12},
			}
		}
	}

	if overrides == nil {
		return
	}

	if relay := overrides.Relay; relay != nil {
		overrideString(&c.Relay.Network, relay.Network)
		overrideString(&c.Relay.Address, relay.Address)
		overrideString(&c.Relay.MetricsAddress, relay.MetricsAddress)
		overrideString(&c.Relay.HandshakeTimeout, relay.HandshakeTimeout)
		if relay.OutboxSize != 0 {
			c.Relay.OutboxSize = relay.OutboxSize
		}
		if relay.BroadcastRate != 0 {
			c.Relay.BroadcastRate = relay.BroadcastRate
		}
		if relay.BroadcastBurst != 0 {
			c.Relay.BroadcastBurst = relay.BroadcastBurst
		}
		if relay.MaxFrameBytes != 0 {
			c.Relay.MaxFrameBytes = relay.MaxFrameBytes
		}
	}

	if client := overrides.Client; client != nil {
		overrideString(&c.Client.RelayNetwork, client.RelayNetwork)
		overrideString(&c.Client.RelayAddress, client.RelayAddress)
		overrideString(&c.Client.Room, client.Room)
		overrideString(&c.Client.Name, client.Name)
		overrideString(&c.Client.ThreadsFile, client.ThreadsFile)
		if len(client.Reactions) > 0 {
			c.Client.Reactions = client.Reactions
		}
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	c.Relay.Address = expandVars(c.Relay.Address)
	c.Client.RelayAddress = expandVars(c.Client.RelayAddress)
	c.Client.Name = expandVars(c.Client.Name)
	c.Client.ThreadsFile = expandVars(c.Client.ThreadsFile)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the process
// environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// ExpandDefaults expands variables in a configuration built from
// [Default] without a file.
func (c *Config) ExpandDefaults() *Config {
	c.expandVariables()
	return c
}

// HandshakeTimeout parses Relay.HandshakeTimeout.
func (c *Config) HandshakeTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Relay.HandshakeTimeout)
	if err != nil {
		return 0, fmt.Errorf("relay.handshake_timeout: %w", err)
	}
	return timeout, nil
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	networks := []string{"unix", "tcp"}
	if !contains(networks, c.Relay.Network) {
		errs = append(errs, fmt.Errorf("relay.network must be one of: %v", networks))
	}
	if c.Relay.Address == "" {
		errs = append(errs, errors.New("relay.address is required"))
	}
	if c.Relay.OutboxSize <= 0 {
		errs = append(errs, errors.New("relay.outbox_size must be positive"))
	}
	if c.Relay.BroadcastRate <= 0 || c.Relay.BroadcastBurst <= 0 {
		errs = append(errs, errors.New("relay.broadcast_rate and relay.broadcast_burst must be positive"))
	}
	if c.Relay.MaxFrameBytes <= 0 {
		errs = append(errs, errors.New("relay.max_frame_bytes must be positive"))
	}
	if timeout, err := c.HandshakeTimeout(); err != nil {
		errs = append(errs, err)
	} else if timeout <= 0 {
		errs = append(errs, errors.New("relay.handshake_timeout must be positive"))
	}

	if !contains(networks, c.Client.RelayNetwork) {
		errs = append(errs, fmt.Errorf("client.relay_network must be one of: %v", networks))
	}
	if c.Client.Room == "" {
		errs = append(errs, errors.New("client.room is required"))
	}
	if len(c.Client.Reactions) == 0 || len(c.Client.Reactions) > 9 {
		errs = append(errs, errors.New("client.reactions must list between 1 and 9 symbols"))
	}
	for index, reaction := range c.Client.Reactions {
		if reaction == "" {
			errs = append(errs, fmt.Errorf("client.reactions[%d] is empty", index))
		}
	}

	return errors.Join(errs...)
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
