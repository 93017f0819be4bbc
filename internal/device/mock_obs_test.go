// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package device

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/showrunner/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// mockOBS is an in-process obs-websocket v5 server.
type mockOBS struct {
	server   *httptest.Server
	password string

	mu          sync.Mutex
	conns       []*websocket.Conn
	responses   map[string]any
	failing     map[string]bool
	requests    []string
	identifyErr bool
}

const (
	mockSalt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	mockChallenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="
)

func newMockOBS(t *testing.T, password string) *mockOBS {
	t.Helper()
	m := &mockOBS{
		password: password,
		responses: map[string]any{
			RequestGetCurrentProgramScene: map[string]any{"currentProgramSceneName": "Intro"},
			RequestGetSceneList: map[string]any{
				"currentProgramSceneName": "Intro",
				"scenes": []map[string]any{
					{"sceneName": "Outro", "sceneIndex": 0},
					{"sceneName": "Main", "sceneIndex": 1},
					{"sceneName": "Intro", "sceneIndex": 2},
				},
			},
			RequestGetStreamStatus:        map[string]any{"outputActive": true, "outputTimecode": "00:10:00.000"},
			RequestGetRecordStatus:        map[string]any{"outputActive": false, "outputPaused": false},
			RequestSetCurrentProgramScene: map[string]any{},
		},
		failing: map[string]bool{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockOBS) url() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

func (m *mockOBS) setResponse(requestType string, data any) {
	m.mu.Lock()
	m.responses[requestType] = data
	m.mu.Unlock()
}

func (m *mockOBS) setFailing(requestType string, fail bool) {
	m.mu.Lock()
	m.failing[requestType] = fail
	m.mu.Unlock()
}

func (m *mockOBS) requestCount(requestType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r == requestType {
			n++
		}
	}
	return n
}

func (m *mockOBS) connCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// push sends an event on every open connection.
func (m *mockOBS) push(eventType string, data any) {
	frame, _ := json.Marshal(map[string]any{
		"op": OpEvent,
		"d":  map[string]any{"eventType": eventType, "eventIntent": 1, "eventData": data},
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		_ = c.WriteMessage(websocket.TextMessage, frame)
	}
}

// drop closes every connection without a close handshake.
func (m *mockOBS) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		_ = c.Close()
	}
	m.conns = nil
}

func (m *mockOBS) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	hello := map[string]any{"obsWebSocketVersion": "5.5.0", "rpcVersion": 1}
	if m.password != "" {
		hello["authentication"] = map[string]any{"challenge": mockChallenge, "salt": mockSalt}
	}
	if err := writeFrame(conn, OpHello, hello); err != nil {
		_ = conn.Close()
		return
	}

	var ident Identify
	if err := readOp(conn, OpIdentify, &ident); err != nil {
		_ = conn.Close()
		return
	}
	if m.password != "" && ident.Authentication != AuthResponse(m.password, mockSalt, mockChallenge) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseAuthenticationFailed, "Authentication failed."),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	if err := writeFrame(conn, OpIdentified, map[string]any{"negotiatedRpcVersion": 1}); err != nil {
		_ = conn.Close()
		return
	}

	m.mu.Lock()
	m.conns = append(m.conns, conn)
	m.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if json.Unmarshal(data, &msg) != nil || msg.Op != OpRequest {
			continue
		}
		var req struct {
			RequestType string `json:"requestType"`
			RequestID   string `json:"requestId"`
		}
		if json.Unmarshal(msg.Data, &req) != nil {
			continue
		}

		m.mu.Lock()
		m.requests = append(m.requests, req.RequestType)
		resp, known := m.responses[req.RequestType]
		fail := m.failing[req.RequestType]
		m.mu.Unlock()

		status := map[string]any{"result": true, "code": 100}
		if fail || !known {
			status = map[string]any{"result": false, "code": 204, "comment": "request failed"}
			resp = nil
		}
		m.mu.Lock()
		err = writeFrame(conn, OpRequestResponse, map[string]any{
			"requestType":   req.RequestType,
			"requestId":     req.RequestID,
			"requestStatus": status,
			"responseData":  resp,
		})
		m.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, op OpCode, data any) error {
	frame, err := json.Marshal(map[string]any{"op": op, "d": data})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
