// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package websocket is the transport gateway between the event bus and
WebSocket clients: overlay renderers (browser sources) and the Stream Deck
bridge.

# Architecture

	Event bus ──► Hub (one bus handler per channel)
	                 │  marshal once
	                 ▼
	        Client send queue (bounded, drop-oldest) ──► writePump ──► socket
	                                                          ▲
	        socket ──► readPump ──► subscribe / unsubscribe / ping / publish / countdown

The Hub never writes to a socket. Delivery only enqueues into per-client
queues, so a stalled client cannot delay the publisher or other clients.
When a queue is full the oldest message is discarded; a client that keeps
overflowing is torn down.

# Client protocol

Inbound frames are JSON commands:

	{"action":"subscribe","channel":"countdown"}
	{"action":"unsubscribe","channel":"countdown"}
	{"action":"ping","requestId":"1"}
	{"action":"publish","channel":"lower-third","type":"SHOW","payload":{...},"requestId":"2"}
	{"action":"countdown","type":"start","requestId":"3"}

Events arrive as the wire message {channel, type, payload, seq, sentAt}.
Command results arrive as {"type":"ack"|"error"|"pong", ...}. Subscribing
to a channel with catch-up state (countdown) immediately yields a STATE
message carrying the current state.

# Thread Safety

Hub and Client methods are safe for concurrent use. Stats reads atomic
counters only.
*/
package websocket
