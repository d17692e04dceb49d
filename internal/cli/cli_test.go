// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/stream"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points the config directory at a fresh temp dir and clears the
// HELIOS_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HELIOS_HOME", dir)
	for _, key := range []string{
		"HELIOS_SERVER_URL", "HELIOS_TRANSPORT", "HELIOS_USER_ID", "HELIOS_CHARACTER",
		"HELIOS_OPEN_TIMEOUT", "HELIOS_LOG_LEVEL", "HELIOS_NO_JOURNAL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// backend imitates the Helios server with a scripted event sequence.
type backend struct {
	events     []string
	triggerErr string
	triggered  chan stream.TriggerRequest
}

func newBackend(events ...string) *backend {
	return &backend{events: events, triggered: make(chan stream.TriggerRequest, 1)}
}

func (b *backend) trigger(w http.ResponseWriter, r *http.Request) {
	var req stream.TriggerRequest
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
	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "data: {\"type\":\"connection\"}\n\n")
	flusher.Flush()

	select {
	case <-b.triggered:
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
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var happyEvents = []string{
	`{"type":"consciousness_start"}`,
	`{"type":"stage_update","stage":"belief","status":"processing","progress":10}`,
	`{"type":"stage_update","stage":"belief","status":"completed","content":"believes X","progress":20}`,
	`{"type":"session_complete","content":"**final** reply"}`,
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsProgressAndReply(t *testing.T) {
	dir := isolate(t)
	srv := newBackend(happyEvents...).server(t)

	stdout, stderr, err := runCLI(t, "--server", srv.URL, "ask", "I", "feel", "lost")
	require.NoError(t, err)

	// Output is not a terminal, so the reply is printed as is.
	assert.Equal(t, "**final** reply\n", stdout)
	assert.Contains(t, stderr, "[10%] Belief System: processing")
	assert.Contains(t, stderr, "[20%] Belief System: completed")

	// The generated identity is persisted.
	cfg, err := config.LoadFromPath(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.True(t, config.ValidUserID(cfg.Identity.UserID))

	// And the turn is journaled.
	stdout, _, err = runCLI(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "I feel lost")
	assert.Contains(t, stdout, "completed")
	assert.Contains(t, stdout, "1 of 1 session(s)")
}

func TestAsk_WebSocketQuiet(t *testing.T) {
	isolate(t)
	srv := newBackend(happyEvents...).server(t)

	stdout, stderr, err := runCLI(t, "--server", srv.URL, "--transport", "WebSocket", "ask", "-q", "hello")
	require.NoError(t, err)
	assert.Equal(t, "**final** reply\n", stdout)
	assert.NotContains(t, stderr, "Belief System")
}

func TestAsk_TriggerRejected(t *testing.T) {
	isolate(t)
	b := newBackend(happyEvents...)
	b.triggerErr = "engine offline"
	srv := b.server(t)

	stdout, stderr, err := runCLI(t, "--server", srv.URL, "ask", "hello")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "engine offline")
	assert.Contains(t, stderr, "test mode")

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.True(t, exitErr.Reported)
	assert.Equal(t, ExitServerError, ExitCode(err))
	assert.ErrorIs(t, err, stream.ErrTriggerRejected)
}

func TestAsk_NoJournal(t *testing.T) {
	dir := isolate(t)
	t.Setenv("HELIOS_NO_JOURNAL", "1")
	srv := newBackend(happyEvents...).server(t)

	_, _, err := runCLI(t, "--server", srv.URL, "ask", "hello")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "journal.db"))
	assert.True(t, os.IsNotExist(statErr), "journal must not be created when disabled")

	stdout, _, err := runCLI(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No sessions recorded yet.")
}

func TestSessions_LimitReportsTotal(t *testing.T) {
	isolate(t)
	srv := newBackend(happyEvents...).server(t)
	for _, msg := range []string{"first turn", "second turn"} {
		_, _, err := runCLI(t, "--server", srv.URL, "ask", "-q", msg)
		require.NoError(t, err)
	}

	stdout, _, err := runCLI(t, "sessions", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "second turn")
	assert.NotContains(t, stdout, "first turn")
	assert.Contains(t, stdout, "1 of 2 session(s)")
}

func TestAsk_RequiresMessage(t *testing.T) {
	isolate(t)
	_, _, err := runCLI(t, "ask")
	require.Error(t, err)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	stdout, _, err := runCLI(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", stdout)

	_, _, err = runCLI(t, "config", "init")
	require.NoError(t, err)
	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.True(t, config.ValidUserID(cfg.Identity.UserID))

	_, _, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))

	_, _, err = runCLI(t, "config", "set", "server.transport", "websocket")
	require.NoError(t, err)
	stdout, _, err = runCLI(t, "config", "get", "server.transport")
	require.NoError(t, err)
	assert.Equal(t, "websocket\n", stdout)

	_, _, err = runCLI(t, "config", "set", "ui.theme", "neon")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))

	_, _, err = runCLI(t, "config", "get", "nope.key")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	stdout, _, err = runCLI(t, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, stdout, "session.open_timeout_ms")

	stdout, _, err = runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[server]")
	assert.Contains(t, stdout, `transport = "websocket"`)

	// The identity created by init survives later edits.
	reloaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Identity.UserID, reloaded.Identity.UserID)
}

func TestConfigFlagOverrides(t *testing.T) {
	isolate(t)
	stdout, _, err := runCLI(t, "--server", "http://helios.example:8080", "--transport", "websocket", "config", "get", "server.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://helios.example:8080\n", stdout)

	_, _, err = runCLI(t, "--transport", "carrier-pigeon", "config", "show")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

// =============================================================================
// ERRORS
// =============================================================================

func TestTurnExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitGeneralError},
		{context.Canceled, ExitInterrupted},
		{stream.ErrConnectionTimeout, ExitTimeoutError},
		{&stream.TriggerRejectedError{Status: 503}, ExitServerError},
		{&stream.ServerError{Message: "boom"}, ExitServerError},
		{stream.ErrStreamClosed, ExitNetworkError},
		{stream.ErrEmptyMessage, ExitUsageError},
		{errors.New("other"), ExitGeneralError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, turnExitCode(tt.err), "error %v", tt.err)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("x")))
	wrapped := fmt.Errorf("outer: %w", &ExitError{Code: ExitTimeoutError})
	assert.Equal(t, ExitTimeoutError, ExitCode(wrapped))
	assert.True(t, strings.Contains((&ExitError{Code: 3}).Error(), "3"))
}

func TestReplCommand(t *testing.T) {
	isolate(t)
	a := &app{}
	cfg := config.Default()
	cfg.EnsureIdentity()
	var out bytes.Buffer

	assert.True(t, a.replCommand(&out, cfg, "/character"))
	assert.Contains(t, out.String(), "introverted_student")

	out.Reset()
	assert.True(t, a.replCommand(&out, cfg, "/character lonely_artist"))
	assert.Equal(t, "lonely_artist", cfg.Identity.Character)
	assert.Contains(t, out.String(), "Lonely Artist")

	saved, err := readConfigFile(filepath.Join(os.Getenv("HELIOS_HOME"), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "lonely_artist", saved.Identity.Character)

	assert.True(t, a.replCommand(&out, cfg, "/bogus"))
	assert.False(t, a.replCommand(&out, cfg, "/quit"))
}
