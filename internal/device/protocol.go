// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
protocol.go - obs-websocket v5 wire types

Every frame is a JSON object {"op": <opcode>, "d": <data>}. A session opens
with Hello (server) -> Identify (client) -> Identified (server). When the
server requires a password, Hello carries a challenge and salt and Identify
answers with

	secret = base64(sha256(password + salt))
	auth   = base64(sha256(secret + challenge))

Requests are correlated to responses by requestId. Events arrive unsolicited
for the subscription categories requested in Identify.
*/

package device

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/goccy/go-json"
)

// OpCode identifies an obs-websocket message kind.
type OpCode int

const (
	OpHello           OpCode = 0
	OpIdentify        OpCode = 1
	OpIdentified      OpCode = 2
	OpReidentify      OpCode = 3
	OpEvent           OpCode = 5
	OpRequest         OpCode = 6
	OpRequestResponse OpCode = 7
)

// RPCVersion is the protocol revision spoken by the client.
const RPCVersion = 1

// Subprotocol is negotiated during the WebSocket upgrade.
const Subprotocol = "obswebsocket.json"

// CloseAuthenticationFailed is the close code sent by the server when the
// Identify authentication string is wrong.
const CloseAuthenticationFailed = 4009

// Event subscription bits.
const (
	SubscriptionGeneral = 1 << 0
	SubscriptionScenes  = 1 << 2
	SubscriptionOutputs = 1 << 6

	defaultSubscriptions = SubscriptionGeneral | SubscriptionScenes | SubscriptionOutputs
)

// Request types used by the mirror and the control API.
const (
	RequestGetCurrentProgramScene = "GetCurrentProgramScene"
	RequestGetSceneList           = "GetSceneList"
	RequestGetStreamStatus        = "GetStreamStatus"
	RequestGetRecordStatus        = "GetRecordStatus"
	RequestSetCurrentProgramScene = "SetCurrentProgramScene"
)

// Push event types ingested by the mirror.
const (
	EventCurrentProgramSceneChanged = "CurrentProgramSceneChanged"
	EventSceneListChanged           = "SceneListChanged"
	EventSceneNameChanged           = "SceneNameChanged"
	EventStreamStateChanged         = "StreamStateChanged"
	EventRecordStateChanged         = "RecordStateChanged"
	EventExitStarted                = "ExitStarted"
)

// OutputStatePaused is the RecordStateChanged outputState for a paused recording.
const OutputStatePaused = "OBS_WEBSOCKET_OUTPUT_PAUSED"

// Message is the outer frame.
type Message struct {
	Op   OpCode          `json:"op"`
	Data json.RawMessage `json:"d"`
}

type outgoing struct {
	Op   OpCode `json:"op"`
	Data any    `json:"d"`
}

// Hello is sent by the server right after the upgrade.
type Hello struct {
	OBSWebSocketVersion string               `json:"obsWebSocketVersion"`
	RPCVersion          int                  `json:"rpcVersion"`
	Authentication      *HelloAuthentication `json:"authentication,omitempty"`
}

// HelloAuthentication is present when the server requires a password.
type HelloAuthentication struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

// Identify answers Hello.
type Identify struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

// Identified completes the handshake.
type Identified struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

// Request is a client request.
type Request struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

// RequestStatus reports whether a request succeeded.
type RequestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

// RequestResponse answers a Request.
type RequestResponse struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus RequestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

// PushEvent is an unsolicited event from the production software.
type PushEvent struct {
	Type   string          `json:"eventType"`
	Intent int             `json:"eventIntent"`
	Data   json.RawMessage `json:"eventData,omitempty"`
}

// AuthResponse computes the Identify authentication string.
func AuthResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

// Response and event bodies.

type currentProgramSceneResponse struct {
	CurrentProgramSceneName string `json:"currentProgramSceneName"`
	SceneName               string `json:"sceneName"`
}

type sceneEntry struct {
	SceneName  string `json:"sceneName"`
	SceneIndex int    `json:"sceneIndex"`
}

type sceneListResponse struct {
	CurrentProgramSceneName string       `json:"currentProgramSceneName"`
	Scenes                  []sceneEntry `json:"scenes"`
}

type outputStatusResponse struct {
	OutputActive   bool   `json:"outputActive"`
	OutputPaused   bool   `json:"outputPaused"`
	OutputTimecode string `json:"outputTimecode"`
}

type sceneChangedEvent struct {
	SceneName string `json:"sceneName"`
}

type sceneListChangedEvent struct {
	Scenes []sceneEntry `json:"scenes"`
}

type sceneNameChangedEvent struct {
	OldSceneName string `json:"oldSceneName"`
	SceneName    string `json:"sceneName"`
}

type outputStateChangedEvent struct {
	OutputActive bool   `json:"outputActive"`
	OutputState  string `json:"outputState"`
}

type setSceneRequest struct {
	SceneName string `json:"sceneName"`
}
