// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package audit keeps a journal of operator commands: every overlay publish,
countdown action and device operation, with its outcome and where it came
from.

JournaledCommander and JournaledDevice wrap the command surfaces shared by
the HTTP API and the websocket gateway. Reads (countdown state, device
snapshot) are not journaled.

Entries are written by a background goroutine into a Store. MemoryStore
keeps the most recent entries and evicts the oldest tenth when full.
Record never blocks a command; when the buffer is full the entry is dropped
and audit_entries_dropped_total is incremented.

The source of a command is carried in the context: Middleware stamps HTTP
requests, and the gateway stamps each command with its connection ID.

	journal := audit.NewJournal(audit.NewMemoryStore(10000), audit.DefaultConfig())
	defer journal.Close()
	commands := audit.NewCommander(dispatcher, journal)
*/
package audit
