// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package services adapts Showrunner components to suture.Service.

	HTTPServerService   *http.Server (ListenAndServe / Shutdown)
	GatewayService      websocket.Hub (RunWithContext)
	CountdownService    countdown.Engine (Serve)
	DeviceService       device.Manager (Serve)
	RelayService        relay.Relay (Serve, Close on shutdown)

Every wrapper implements fmt.Stringer so suture's log lines name the
component. Return values follow suture's contract: ctx.Err() after a
requested shutdown, any other error to ask for a restart.
*/
package services
