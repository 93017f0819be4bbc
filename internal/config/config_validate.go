// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/showrunner/internal/models"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateTransport,
		c.validateCountdown,
		c.validateDevice,
		c.validateRelay,
		c.validateContent,
		c.validateAudit,
		c.validateSupervisor,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

// validateSecurity validates CORS and rate limiting configuration
func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin (use * to allow any)")
	}
	return c.validateRateLimits()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS reports whether any origin is accepted. Logged at startup
// in production.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateTransport validates WebSocket gateway configuration
func (c *Config) validateTransport() error {
	t := c.Transport
	if t.SendQueueSize < 1 {
		return fmt.Errorf("WS_SEND_QUEUE_SIZE must be at least 1")
	}
	if t.MaxDroppedMessages < 0 {
		return fmt.Errorf("WS_MAX_DROPPED_MESSAGES must not be negative")
	}
	if t.MaxMessageSize < 1024 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be at least 1024 bytes")
	}
	if len(t.AllowedOrigins) == 0 && !t.AllowNoOrigin {
		return fmt.Errorf("WS_ALLOWED_ORIGINS is empty and WS_ALLOW_NO_ORIGIN=false, no client could connect")
	}
	if t.CommandRate < 0 {
		return fmt.Errorf("WS_COMMAND_RATE must not be negative (0 disables the limit)")
	}
	if t.CommandRate > 0 && t.CommandBurst < 1 {
		return fmt.Errorf("WS_COMMAND_BURST must be at least 1 when WS_COMMAND_RATE is set")
	}
	return nil
}

var validCountdownFormats = map[string]bool{
	"ss":       true,
	"mm:ss":    true,
	"hh:mm:ss": true,
}

var validCountdownSizes = map[string]bool{
	"small":  true,
	"medium": true,
	"large":  true,
	"xl":     true,
}

// validateCountdown validates countdown engine configuration
func (c *Config) validateCountdown() error {
	cd := c.Countdown
	if cd.TickInterval < 10*time.Millisecond || cd.TickInterval > time.Minute {
		return fmt.Errorf("COUNTDOWN_TICK_INTERVAL must be between 10ms and 1m")
	}
	if cd.DefaultFormat != "" && !validCountdownFormats[cd.DefaultFormat] {
		return fmt.Errorf("COUNTDOWN_DEFAULT_FORMAT must be one of: ss, mm:ss, hh:mm:ss")
	}
	if cd.DefaultSize != "" && !validCountdownSizes[cd.DefaultSize] {
		return fmt.Errorf("COUNTDOWN_DEFAULT_SIZE must be one of: small, medium, large, xl")
	}
	return nil
}

// validateDevice validates OBS connection configuration
func (c *Config) validateDevice() error {
	d := c.Device
	if d.URL == "" {
		return fmt.Errorf("OBS_URL is required")
	}
	if err := validateWebSocketURL(d.URL, "OBS_URL"); err != nil {
		return err
	}
	if d.HandshakeTimeout <= 0 || d.RequestTimeout <= 0 || d.RefreshTimeout <= 0 {
		return fmt.Errorf("OBS_HANDSHAKE_TIMEOUT, OBS_REQUEST_TIMEOUT and OBS_REFRESH_TIMEOUT must be positive")
	}
	if d.SettleInterval < 0 {
		return fmt.Errorf("OBS_SETTLE_INTERVAL must not be negative")
	}
	if d.ReconnectInitialInterval <= 0 || d.ReconnectMaxInterval < d.ReconnectInitialInterval {
		return fmt.Errorf("OBS_RECONNECT_MAX_INTERVAL must be at least OBS_RECONNECT_INITIAL_INTERVAL (both positive)")
	}
	if d.ReconnectMaxElapsed < 0 {
		return fmt.Errorf("OBS_RECONNECT_MAX_ELAPSED must not be negative (0 retries forever)")
	}
	if d.BreakerFailures == 0 {
		return fmt.Errorf("OBS_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

// validateRelay validates the NATS relay (only if enabled)
func (c *Config) validateRelay() error {
	r := c.Relay
	if !r.Enabled {
		return nil
	}
	if r.URL == "" {
		return fmt.Errorf("NATS_URL is required when RELAY_ENABLED=true")
	}
	if err := validateNATSURL(r.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if r.SubjectPrefix == "" || strings.ContainsAny(r.SubjectPrefix, " *>") {
		return fmt.Errorf("RELAY_SUBJECT_PREFIX must be a non-empty NATS subject without wildcards or spaces")
	}
	if r.QueueSize < 1 {
		return fmt.Errorf("RELAY_QUEUE_SIZE must be at least 1")
	}
	for _, name := range r.Channels {
		if _, ok := models.ParseChannel(name); !ok {
			return fmt.Errorf("RELAY_CHANNELS contains unknown channel %q", name)
		}
	}
	if r.BreakerFailures == 0 {
		return fmt.Errorf("RELAY_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

// validateContent validates poster sets and the active set
func (c *Config) validateContent() error {
	for name, posters := range c.Content.PosterSets {
		seen := make(map[string]bool, len(posters))
		for i, p := range posters {
			if p.ID == "" || p.URL == "" {
				return fmt.Errorf("content.poster_sets.%s[%d] requires id and url", name, i)
			}
			if seen[p.ID] {
				return fmt.Errorf("content.poster_sets.%s has duplicate poster id %q", name, p.ID)
			}
			seen[p.ID] = true
		}
	}
	active := c.Content.ActivePosterSet
	if active != "" {
		if _, ok := c.Content.PosterSets[active]; !ok {
			return fmt.Errorf("ACTIVE_POSTER_SET %q is not a configured poster set", active)
		}
	}
	return nil
}

// validateAudit validates command journal limits when the journal is on
func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.MaxEntries < 1 {
		return fmt.Errorf("AUDIT_MAX_ENTRIES must be positive")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be positive")
	}
	return nil
}

// validateSupervisor validates supervisor tree configuration
func (c *Config) validateSupervisor() error {
	s := c.Supervisor
	if s.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	if s.FailureDecay <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_DECAY must be positive")
	}
	if s.FailureBackoff <= 0 || s.ShutdownTimeout <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_BACKOFF and SUPERVISOR_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
