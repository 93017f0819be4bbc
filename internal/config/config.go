// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Transport  TransportConfig  `koanf:"transport"`
	Countdown  CountdownConfig  `koanf:"countdown"`
	Device     DeviceConfig     `koanf:"device"`
	Relay      RelayConfig      `koanf:"relay"`
	Content    ContentConfig    `koanf:"content"`
	Audit      AuditConfig      `koanf:"audit"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging" or "production"
}

// SecurityConfig holds HTTP edge protection settings. There is no
// authentication; the control plane is expected to run on a trusted
// production network.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TransportConfig holds WebSocket gateway settings.
type TransportConfig struct {
	// SendQueueSize bounds each connection's outbound queue.
	SendQueueSize int `koanf:"send_queue_size"`

	// MaxDroppedMessages closes a connection after this many consecutive
	// drop-oldest evictions. Zero never closes.
	MaxDroppedMessages int `koanf:"max_dropped_messages"`

	MaxMessageSize int64    `koanf:"max_message_size"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	AllowNoOrigin  bool     `koanf:"allow_no_origin"`

	// CommandsEnabled accepts publish and countdown commands over the socket.
	CommandsEnabled bool    `koanf:"commands_enabled"`
	CommandRate     float64 `koanf:"command_rate"`
	CommandBurst    int     `koanf:"command_burst"`
}

// CountdownConfig holds countdown engine settings. The Default* fields seed
// the display block used until a SET overrides it.
type CountdownConfig struct {
	TickInterval    time.Duration `koanf:"tick_interval"`
	DefaultStyle    string        `koanf:"default_style"`
	DefaultFormat   string        `koanf:"default_format"`
	DefaultPosition string        `koanf:"default_position"`
	DefaultSize     string        `koanf:"default_size"`
}

// DeviceConfig holds the OBS WebSocket connection settings.
type DeviceConfig struct {
	URL              string        `koanf:"url"`
	Password         string        `koanf:"password"`
	ConnectOnStartup bool          `koanf:"connect_on_startup"`
	AutoReconnect    bool          `koanf:"auto_reconnect"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	RequestTimeout   time.Duration `koanf:"request_timeout"`
	RefreshTimeout   time.Duration `koanf:"refresh_timeout"`
	SettleInterval   time.Duration `koanf:"settle_interval"`

	ReconnectInitialInterval time.Duration `koanf:"reconnect_initial_interval"`
	ReconnectMaxInterval     time.Duration `koanf:"reconnect_max_interval"`
	ReconnectMaxElapsed      time.Duration `koanf:"reconnect_max_elapsed"`

	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// RelayConfig holds the optional NATS event relay settings.
type RelayConfig struct {
	Enabled         bool          `koanf:"enabled"`
	URL             string        `koanf:"url"`
	SubjectPrefix   string        `koanf:"subject_prefix"`
	QueueSize       int           `koanf:"queue_size"`
	Channels        []string      `koanf:"channels"`
	SkipTicks       bool          `koanf:"skip_ticks"`
	JetStream       bool          `koanf:"jetstream"`
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// ContentConfig holds the themes and poster sets used to enrich SHOW
// payloads. These are normally set in the YAML file.
type ContentConfig struct {
	// Themes maps a guest profile id to its lower-third theme.
	Themes map[string]map[string]any `koanf:"themes"`

	PosterSets      map[string][]PosterConfig `koanf:"poster_sets"`
	ActivePosterSet string                    `koanf:"active_poster_set"`
}

// PosterConfig is one poster of a poster set.
type PosterConfig struct {
	ID    string `koanf:"id"`
	URL   string `koanf:"url"`
	Title string `koanf:"title"`
}

// AuditConfig holds the in-memory command journal settings.
type AuditConfig struct {
	Enabled     bool `koanf:"enabled"`
	MaxEntries  int  `koanf:"max_entries"`
	BufferSize  int  `koanf:"buffer_size"`
	LogToStdout bool `koanf:"log_to_stdout"`
}

// SupervisorConfig holds suture supervisor tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
