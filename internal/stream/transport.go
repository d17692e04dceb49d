// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// TRANSPORT TYPES
// =============================================================================

// Target identifies the session a push connection subscribes to.
type Target struct {
	UserID    string
	SessionID string
}

// FrameKind classifies a frame delivered by a Conn.
type FrameKind int

// Frame kinds, mirroring the open, message and error notifications of a
// push connection.
const (
	FrameOpen FrameKind = iota
	FrameData
	FrameError
)

// Frame is one notification from a push connection.
type Frame struct {
	Kind FrameKind
	Data []byte
	Err  error
}

// Conn is a live push connection.
//
// Frames are delivered in transport order. The channel is closed after a
// FrameError or once the connection is closed. Close is idempotent and
// returns only after the connection's reader goroutine has exited.
type Conn interface {
	Frames() <-chan Frame
	Close() error
}

// Transport opens push connections.
//
// Connect returns without waiting for the server; the open confirmation
// arrives as a FrameOpen on the returned Conn.
type Transport interface {
	Connect(ctx context.Context, target Target) (Conn, error)
	Name() string
}

// =============================================================================
// SHARED CLIENT
// =============================================================================

// sharedStreamingClient serves long-lived streaming requests; lifetime is
// controlled through the request context, never a client timeout.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// streamURL builds the subscribe URL with userId and sessionId query parameters.
func streamURL(baseURL, path string, target Target) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid stream url %q: scheme and host required", u.String())
	}
	q := u.Query()
	q.Set("userId", target.UserID)
	q.Set("sessionId", target.SessionID)
	u.RawQuery = q.Encode()
	return u, nil
}

// =============================================================================
// PUMP CONNECTION
// =============================================================================

// pumpConn runs a reader goroutine that pushes frames to a channel until
// the connection fails or is closed.
type pumpConn struct {
	frames chan Frame
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// startPump launches read in its own goroutine. read reports frames through
// emit and returns when the connection ends.
func startPump(parent context.Context, read func(c *pumpConn)) *pumpConn {
	ctx, cancel := context.WithCancel(parent)
	c := &pumpConn{
		frames: make(chan Frame, 16),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		defer close(c.frames)
		defer cancel()
		read(c)
	}()
	return c
}

// emit delivers a frame, giving up once the connection is closed.
func (c *pumpConn) emit(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// fail delivers a FrameError unless the connection was closed locally.
func (c *pumpConn) fail(err error) {
	if c.ctx.Err() != nil {
		return
	}
	c.emit(Frame{Kind: FrameError, Err: err})
}

// Frames implements Conn.
func (c *pumpConn) Frames() <-chan Frame {
	return c.frames
}

// Close implements Conn.
func (c *pumpConn) Close() error {
	c.once.Do(c.cancel)
	<-c.done
	return nil
}
