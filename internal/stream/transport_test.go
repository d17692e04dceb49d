// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader(t *testing.T) {
	input := ": heartbeat\n" +
		"\n" +
		"data: {\"type\":\"connection\"}\n" +
		"\n" +
		"event: update\r\n" +
		"id: 7\r\n" +
		"data: line one\r\n" +
		"data:line two\r\n" +
		"\r\n" +
		"data: trailing"

	r := NewSSEReader(strings.NewReader(input))

	name, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Equal(t, `{"type":"connection"}`, string(data))

	name, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "update", name)
	assert.Equal(t, "line one\nline two", string(data))

	_, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "trailing", string(data))

	_, _, err = r.ReadEvent()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReader_EventTooLarge(t *testing.T) {
	big := "data: " + strings.Repeat("x", MaxEventSize+1) + "\n\n"
	_, _, err := NewSSEReader(strings.NewReader(big)).ReadEvent()
	assert.Error(t, err)
}

func TestSSEReader_UnterminatedEventAtEOF(t *testing.T) {
	r := NewSSEReader(strings.NewReader("data: {\"type\":\"stage_update\",\ndata: \"stage\":\"belief\"}"))

	_, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"stage_update\",\n\"stage\":\"belief\"}", string(data))

	_, _, err = r.ReadEvent()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReader_LineWithoutNewlineIsBounded(t *testing.T) {
	body := io.MultiReader(
		strings.NewReader("data: "),
		io.LimitReader(zeroReader{}, 4*MaxEventSize),
	)
	_, _, err := NewSSEReader(body).ReadEvent()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.Contains(t, err.Error(), "exceeds")
}

// zeroReader yields an endless run of 'x' bytes.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestStreamURL(t *testing.T) {
	u, err := streamURL("http://localhost:3000/", "/api/sse-stream", Target{UserID: "u 1", SessionID: "session_1_abc"})
	require.NoError(t, err)
	assert.Equal(t, "/api/sse-stream", u.Path)
	assert.Equal(t, "u 1", u.Query().Get("userId"))
	assert.Equal(t, "session_1_abc", u.Query().Get("sessionId"))

	_, err = streamURL("localhost", "/x", Target{})
	assert.Error(t, err)
}

// =============================================================================
// TEST BACKEND
// =============================================================================

// backend imitates the Helios server: a stream endpoint that waits for the
// matching trigger call and then replays a scripted event sequence.
type backend struct {
	events     []string
	triggerErr string
	triggered  chan TriggerRequest
}

func newBackend(events ...string) *backend {
	return &backend{events: events, triggered: make(chan TriggerRequest, 1)}
}

func (b *backend) trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if b.triggerErr != "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"error":%q}`, b.triggerErr)
		return
	}
	b.triggered <- req
	fmt.Fprint(w, `{"message":"started"}`)
}

func (b *backend) sse(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "no flush", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "data: {\"type\":\"connection\"}\n\n")
	flusher.Flush()

	select {
	case req := <-b.triggered:
		if req.SessionID != r.URL.Query().Get("sessionId") {
			return
		}
	case <-r.Context().Done():
		return
	}
	for _, ev := range b.events {
		fmt.Fprintf(w, "data: %s\n\n", ev)
		flusher.Flush()
	}
	<-r.Context().Done()
}

func (b *backend) ws(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	select {
	case <-b.triggered:
	case <-r.Context().Done():
		return
	}
	for _, ev := range b.events {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ev)); err != nil {
			return
		}
	}
	// Wait for the client to hang up.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *backend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trigger-consciousness", b.trigger)
	mux.HandleFunc("/api/sse-stream", b.sse)
	mux.HandleFunc("/api/ws-stream", b.ws)
	return newTestServer(t, mux)
}

// newTestServer starts h and, on cleanup, shuts it down along with the idle
// keep-alive connections of the shared clients.
func newTestServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		sharedHTTPClient.CloseIdleConnections()
		sharedStreamingClient.CloseIdleConnections()
	})
	return srv
}

var scenarioEvents = []string{
	`{"type":"consciousness_start"}`,
	`{"type":"stage_update","stage":"belief","status":"processing","progress":10}`,
	`{"type":"stage_update","stage":"belief","status":"completed","content":"believes X","progress":20}`,
	`{"type":"session_complete","content":"final reply"}`,
}

// =============================================================================
// END-TO-END OVER HTTP
// =============================================================================

func TestSSETransport_EndToEnd(t *testing.T) {
	b := newBackend(scenarioEvents...)
	srv := b.server(t)

	client := NewClient(Options{
		Transport: NewSSETransport(srv.URL, "/api/sse-stream"),
		Trigger:   NewHTTPTrigger(srv.URL, "/api/trigger-consciousness"),
	})
	defer client.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := client.Start(ctx, "I feel stuck", "user-1", nil)

	require.False(t, out.Failed(), "unexpected failure: %v", out.Err)
	assert.Equal(t, "final reply", out.Reply)
	require.Len(t, out.Stages, 1)
	assert.Equal(t, "believes X", out.Stages[0].Record.Content)
}

func TestWebSocketTransport_EndToEnd(t *testing.T) {
	b := newBackend(append([]string{`garbage`}, scenarioEvents...)...)
	srv := b.server(t)

	client := NewClient(Options{
		Transport: NewWebSocketTransport(srv.URL, "/api/ws-stream"),
		Trigger:   NewHTTPTrigger(srv.URL, "/api/trigger-consciousness"),
	})
	defer client.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := client.Start(ctx, "I feel stuck", "user-1", nil)

	require.False(t, out.Failed(), "unexpected failure: %v", out.Err)
	assert.Equal(t, "final reply", out.Reply)
}

func TestSSETransport_TriggerRejected(t *testing.T) {
	b := newBackend()
	b.triggerErr = "busy"
	srv := b.server(t)

	client := NewClient(Options{
		Transport: NewSSETransport(srv.URL, "/api/sse-stream"),
		Trigger:   NewHTTPTrigger(srv.URL, "/api/trigger-consciousness"),
	})

	out := client.Start(context.Background(), "hello", "user-1", nil)
	require.True(t, out.Failed())

	var rejected *TriggerRejectedError
	require.True(t, errors.As(out.Err, &rejected), "got %v", out.Err)
	assert.Equal(t, http.StatusServiceUnavailable, rejected.Status)
	assert.Equal(t, "busy", rejected.Detail)
	assert.Contains(t, out.Message(), "busy")
}

func TestSSETransport_NonOKStatus(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	conn, err := NewSSETransport(srv.URL, "/missing").
		Connect(context.Background(), Target{UserID: "u", SessionID: "s"})
	require.NoError(t, err)
	defer conn.Close()

	f := <-conn.Frames()
	assert.Equal(t, FrameError, f.Kind)
	assert.Contains(t, f.Err.Error(), "404")
}

func TestSSETransport_ServerHangUp(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connection\"}\n\n")
	}))

	conn, err := NewSSETransport(srv.URL, "/").
		Connect(context.Background(), Target{UserID: "u", SessionID: "s"})
	require.NoError(t, err)
	defer conn.Close()

	var kinds []FrameKind
	var last Frame
	for f := range conn.Frames() {
		kinds = append(kinds, f.Kind)
		last = f
	}
	assert.Equal(t, []FrameKind{FrameOpen, FrameData, FrameError}, kinds)
	assert.True(t, errors.Is(last.Err, ErrStreamClosed))
}

func TestPumpConn_CloseIsIdempotentAndJoins(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer close(release)

	conn, err := NewSSETransport(srv.URL, "/").
		Connect(context.Background(), Target{UserID: "u", SessionID: "s"})
	require.NoError(t, err)

	f := <-conn.Frames()
	require.Equal(t, FrameOpen, f.Kind)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	// The channel is closed once the reader has exited.
	_, ok := <-conn.Frames()
	assert.False(t, ok)
}

func TestWebSocketTransport_RejectsScheme(t *testing.T) {
	_, err := NewWebSocketTransport("ftp://example.com", "/ws").
		Connect(context.Background(), Target{UserID: "u", SessionID: "s"})
	assert.Error(t, err)
}

// =============================================================================
// TRIGGER TESTS
// =============================================================================

func TestHTTPTrigger_RejectionDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json error", http.StatusTooManyRequests, `{"error":"slow down"}`, "slow down"},
		{"json message", http.StatusBadRequest, `{"message":"bad input"}`, "bad input"},
		{"plain text", http.StatusInternalServerError, "kaput", "kaput"},
		{"empty", http.StatusBadGateway, "", "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			_, err := NewHTTPTrigger(srv.URL, "/t").
				Trigger(context.Background(), TriggerRequest{SessionID: "s", UserID: "u", Message: "m"})
			var rejected *TriggerRejectedError
			require.True(t, errors.As(err, &rejected), "got %v", err)
			assert.Equal(t, tt.status, rejected.Status)
			assert.Equal(t, tt.want, rejected.Detail)
		})
	}
}

func TestHTTPTrigger_SendsBody(t *testing.T) {
	var got TriggerRequest
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"message":"accepted"}`)
	}))

	ack, err := NewHTTPTrigger(srv.URL, "/t").
		Trigger(context.Background(), TriggerRequest{SessionID: "s1", UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", ack.Message)
	assert.Equal(t, TriggerRequest{SessionID: "s1", UserID: "u1", Message: "hi"}, got)
}

func TestHTTPTrigger_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	defer sharedHTTPClient.CloseIdleConnections()

	_, err := NewHTTPTrigger(url, "/t").WithTimeout(time.Second).
		Trigger(context.Background(), TriggerRequest{})
	assert.True(t, errors.Is(err, ErrConnectionError), "got %v", err)
}
