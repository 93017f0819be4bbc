// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/showrunner/internal/api"
	"github.com/tomtom215/showrunner/internal/audit"
	"github.com/tomtom215/showrunner/internal/breaker"
	"github.com/tomtom215/showrunner/internal/config"
	"github.com/tomtom215/showrunner/internal/content"
	"github.com/tomtom215/showrunner/internal/control"
	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/device"
	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
	"github.com/tomtom215/showrunner/internal/relay"
	"github.com/tomtom215/showrunner/internal/supervisor"
	"github.com/tomtom215/showrunner/internal/supervisor/services"
	ws "github.com/tomtom215/showrunner/internal/websocket"
)

// app holds the wired components. Nothing runs until register hands the
// long-lived ones to the supervisor tree.
type app struct {
	cfg      *config.Config
	bus      *eventbus.Bus
	overlays *overlay.Manager
	engine   *countdown.Engine
	device   *device.Manager
	hub      *ws.Hub
	relay    *relay.Relay
	journal  *audit.Journal
	server   *http.Server
}

func newApp(cfg *config.Config) (*app, error) {
	bus := eventbus.New()
	overlays := overlay.NewManager(bus)

	provider := content.NewStaticProvider(
		cfg.Content.Themes,
		posterSets(cfg.Content.PosterSets),
		cfg.Content.ActivePosterSet,
	)

	engine := countdown.NewEngine(overlays,
		countdown.WithTickInterval(cfg.Countdown.TickInterval),
		countdown.WithDefaultDisplay(models.CountdownDisplay{
			Style:    cfg.Countdown.DefaultStyle,
			Format:   cfg.Countdown.DefaultFormat,
			Position: cfg.Countdown.DefaultPosition,
			Size:     cfg.Countdown.DefaultSize,
		}),
	)

	dispatcher := control.NewDispatcher(overlays, engine, provider)

	// Both transports share one commander so the journal sees every command.
	var commands api.Commander = dispatcher
	var journal *audit.Journal
	if cfg.Audit.Enabled {
		journal = audit.NewJournal(audit.NewMemoryStore(cfg.Audit.MaxEntries), audit.Config{
			BufferSize:  cfg.Audit.BufferSize,
			LogToStdout: cfg.Audit.LogToStdout,
		})
		commands = audit.NewCommander(dispatcher, journal)
	}

	hubOpts := []ws.Option{ws.WithCatchUp(models.ChannelCountdown, engine.Snapshot)}
	if cfg.Transport.CommandsEnabled {
		hubOpts = append(hubOpts, ws.WithCommands(commands))
	}
	hub := ws.NewHub(gatewayConfig(cfg.Transport), hubOpts...)
	hub.Attach(bus)

	dev := device.NewManager(deviceConfig(cfg.Device), &device.WSDialer{
		URL:              cfg.Device.URL,
		Password:         cfg.Device.Password,
		HandshakeTimeout: cfg.Device.HandshakeTimeout,
		RequestTimeout:   cfg.Device.RequestTimeout,
	})
	dev.OnStatusChange(func(change models.DeviceStatusChange) {
		logging.Debug().
			Str("from", string(change.From)).
			Str("to", string(change.To)).
			Msg("Device status changed")
	})

	var deviceAPI api.DeviceController = dev
	var handlerOpts []api.HandlerOption
	if journal != nil {
		deviceAPI = audit.NewDevice(dev, journal)
		handlerOpts = append(handlerOpts, api.WithJournal(journal))
	}
	handlerOpts = append(handlerOpts, api.WithDevice(deviceAPI))

	var rl *relay.Relay
	if cfg.Relay.Enabled {
		publisher, err := relay.NewNATSPublisher(relay.NATSConfig{
			URL:             cfg.Relay.URL,
			MaxReconnects:   cfg.Relay.MaxReconnects,
			ReconnectWait:   cfg.Relay.ReconnectWait,
			ReconnectBuffer: cfg.Relay.ReconnectBuffer,
			JetStream:       cfg.Relay.JetStream,
		}, relay.NewLogger())
		if err != nil {
			hub.Detach()
			if journal != nil {
				_ = journal.Close()
			}
			return nil, fmt.Errorf("create relay publisher: %w", err)
		}
		rl = relay.New(publisher, relayConfig(cfg.Relay))
		rl.Attach(bus)
		handlerOpts = append(handlerOpts, api.WithRelay(rl))
		logging.Info().
			Str("url", cfg.Relay.URL).
			Str("subject_prefix", cfg.Relay.SubjectPrefix).
			Bool("jetstream", cfg.Relay.JetStream).
			Msg("Event relay enabled")
	}

	handler := api.NewHandler(commands, overlays, hub, handlerOpts...)
	router := api.NewRouter(handler, middlewareConfig(cfg), hub.ServeWS)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	return &app{
		cfg:      cfg,
		bus:      bus,
		overlays: overlays,
		engine:   engine,
		device:   dev,
		hub:      hub,
		relay:    rl,
		journal:  journal,
		server:   server,
	}, nil
}

// register adds the long-lived components to tree.
func (a *app) register(tree *supervisor.SupervisorTree) {
	tree.AddCoreService(services.NewCountdownService(a.engine))
	tree.AddCoreService(services.NewDeviceService(a.device, a.cfg.Device.URL))
	tree.AddMessagingService(services.NewGatewayService(a.hub))
	if a.relay != nil {
		tree.AddMessagingService(services.NewRelayService(a.relay))
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}

// close detaches the gateway from the bus and flushes the journal once the
// tree has stopped.
func (a *app) close() {
	a.hub.Detach()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logging.Warn().Err(err).Msg("Command journal did not flush cleanly")
		}
	}
}

func posterSets(in map[string][]config.PosterConfig) map[string][]content.Poster {
	out := make(map[string][]content.Poster, len(in))
	for name, posters := range in {
		set := make([]content.Poster, 0, len(posters))
		for _, p := range posters {
			set = append(set, content.Poster{ID: p.ID, URL: p.URL, Title: p.Title})
		}
		out[name] = set
	}
	return out
}

func gatewayConfig(c config.TransportConfig) ws.Config {
	return ws.Config{
		SendQueueSize:      c.SendQueueSize,
		MaxDroppedMessages: c.MaxDroppedMessages,
		MaxMessageSize:     c.MaxMessageSize,
		AllowedOrigins:     c.AllowedOrigins,
		AllowNoOrigin:      c.AllowNoOrigin,
		CommandRate:        c.CommandRate,
		CommandBurst:       c.CommandBurst,
	}
}

func deviceConfig(c config.DeviceConfig) device.Config {
	cb := breaker.DefaultConfig()
	cb.ConsecutiveFailures = c.BreakerFailures
	cb.Timeout = c.BreakerTimeout
	return device.Config{
		URL:                      c.URL,
		SettleInterval:           c.SettleInterval,
		RefreshTimeout:           c.RefreshTimeout,
		ConnectOnStartup:         c.ConnectOnStartup,
		AutoReconnect:            c.AutoReconnect,
		ReconnectInitialInterval: c.ReconnectInitialInterval,
		ReconnectMaxInterval:     c.ReconnectMaxInterval,
		ReconnectMaxElapsed:      c.ReconnectMaxElapsed,
		Breaker:                  cb,
	}
}

// relayConfig converts channel names; Validate has already rejected
// unknown ones.
func relayConfig(c config.RelayConfig) relay.Config {
	cb := breaker.DefaultConfig()
	cb.ConsecutiveFailures = c.BreakerFailures
	cb.Timeout = c.BreakerTimeout

	channels := make([]models.Channel, 0, len(c.Channels))
	for _, name := range c.Channels {
		if ch, ok := models.ParseChannel(name); ok {
			channels = append(channels, ch)
		}
	}
	return relay.Config{
		SubjectPrefix: c.SubjectPrefix,
		QueueSize:     c.QueueSize,
		Channels:      channels,
		SkipTicks:     c.SkipTicks,
		Breaker:       cb,
	}
}

func middlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled
	return mw
}
