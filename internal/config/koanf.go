// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/showrunner/config.yaml",
	"/etc/showrunner/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8420,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Transport: TransportConfig{
			SendQueueSize:      256,
			MaxDroppedMessages: 64,
			MaxMessageSize:     512 * 1024,
			AllowedOrigins:     []string{"*"},
			AllowNoOrigin:      true, // browser sources and Stream Deck bridges often omit Origin
			CommandsEnabled:    true,
			CommandRate:        10,
			CommandBurst:       20,
		},
		Countdown: CountdownConfig{
			TickInterval:    time.Second,
			DefaultStyle:    "default",
			DefaultFormat:   "mm:ss",
			DefaultPosition: "center",
			DefaultSize:     "large",
		},
		Device: DeviceConfig{
			URL:                      "ws://127.0.0.1:4455",
			Password:                 "",
			ConnectOnStartup:         false,
			AutoReconnect:            true,
			HandshakeTimeout:         10 * time.Second,
			RequestTimeout:           5 * time.Second,
			RefreshTimeout:           5 * time.Second,
			SettleInterval:           500 * time.Millisecond,
			ReconnectInitialInterval: time.Second,
			ReconnectMaxInterval:     30 * time.Second,
			ReconnectMaxElapsed:      0, // retry forever
			BreakerFailures:          5,
			BreakerTimeout:           time.Minute,
		},
		Relay: RelayConfig{
			Enabled:         false,
			URL:             "nats://127.0.0.1:4222",
			SubjectPrefix:   "showrunner.overlay",
			QueueSize:       1024,
			SkipTicks:       true,
			JetStream:       false,
			MaxReconnects:   -1,
			ReconnectWait:   2 * time.Second,
			ReconnectBuffer: 8 * 1024 * 1024,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			MaxEntries: 10000,
			BufferSize: 256,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Environment variables (highest priority)
	// OBS_URL -> device.url, NATS_URL -> relay.url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"transport.allowed_origins",
	"relay.channels",
}

// processSliceFields converts comma-separated string values from environment
// variables into string slices. YAML lists are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Transport gateway
	"ws_send_queue_size":      "transport.send_queue_size",
	"ws_max_dropped_messages": "transport.max_dropped_messages",
	"ws_max_message_size":     "transport.max_message_size",
	"ws_allowed_origins":      "transport.allowed_origins",
	"ws_allow_no_origin":      "transport.allow_no_origin",
	"ws_commands_enabled":     "transport.commands_enabled",
	"ws_command_rate":         "transport.command_rate",
	"ws_command_burst":        "transport.command_burst",

	// Countdown
	"countdown_tick_interval":    "countdown.tick_interval",
	"countdown_default_style":    "countdown.default_style",
	"countdown_default_format":   "countdown.default_format",
	"countdown_default_position": "countdown.default_position",
	"countdown_default_size":     "countdown.default_size",

	// OBS device
	"obs_url":                        "device.url",
	"obs_password":                   "device.password",
	"obs_connect_on_startup":         "device.connect_on_startup",
	"obs_auto_reconnect":             "device.auto_reconnect",
	"obs_handshake_timeout":          "device.handshake_timeout",
	"obs_request_timeout":            "device.request_timeout",
	"obs_refresh_timeout":            "device.refresh_timeout",
	"obs_settle_interval":            "device.settle_interval",
	"obs_reconnect_initial_interval": "device.reconnect_initial_interval",
	"obs_reconnect_max_interval":     "device.reconnect_max_interval",
	"obs_reconnect_max_elapsed":      "device.reconnect_max_elapsed",
	"obs_breaker_failures":           "device.breaker_failures",
	"obs_breaker_timeout":            "device.breaker_timeout",

	// Relay
	"relay_enabled":          "relay.enabled",
	"nats_url":               "relay.url",
	"relay_subject_prefix":   "relay.subject_prefix",
	"relay_queue_size":       "relay.queue_size",
	"relay_channels":         "relay.channels",
	"relay_skip_ticks":       "relay.skip_ticks",
	"relay_jetstream":        "relay.jetstream",
	"nats_max_reconnects":    "relay.max_reconnects",
	"nats_reconnect_wait":    "relay.reconnect_wait",
	"nats_reconnect_buffer":  "relay.reconnect_buffer",
	"relay_breaker_failures": "relay.breaker_failures",
	"relay_breaker_timeout":  "relay.breaker_timeout",

	// Content
	"active_poster_set": "content.active_poster_set",

	// Command journal
	"audit_enabled":       "audit.enabled",
	"audit_max_entries":   "audit.max_entries",
	"audit_buffer_size":   "audit.buffer_size",
	"audit_log_to_stdout": "audit.log_to_stdout",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return an empty key and are ignored.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
