// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timings.
const (
	// DefaultOpenTimeout bounds the wait for the push connection to open.
	DefaultOpenTimeout = 5 * time.Second

	// DefaultGracePeriod is how long stage records stay visible after completion.
	DefaultGracePeriod = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	Transport   Transport
	Trigger     Trigger
	OpenTimeout time.Duration
	GracePeriod time.Duration
	Logger      *zap.Logger
}

func (o Options) openTimeout() time.Duration {
	if o.OpenTimeout <= 0 {
		return DefaultOpenTimeout
	}
	return o.OpenTimeout
}

func (o Options) gracePeriod() time.Duration {
	if o.GracePeriod < 0 {
		return 0
	}
	if o.GracePeriod == 0 {
		return DefaultGracePeriod
	}
	return o.GracePeriod
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Client starts sessions and guarantees that at most one is active at a time.
// It is safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	opts   Options
	active *Session
	last   *Session
}

// NewClient creates a client. Transport and Trigger are required.
func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

// Reconfigure replaces the options used by subsequent sessions. An active
// session keeps the options it was started with.
func (c *Client) Reconfigure(opts Options) {
	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()
}

// TransportName returns the name of the configured transport.
func (c *Client) TransportName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.Transport == nil {
		return ""
	}
	return c.opts.Transport.Name()
}

// Active reports whether a session is running.
func (c *Client) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// NewSession reserves the client for one turn. It fails with
// ErrSessionActive while another session is running. Any state left over
// from the previous session is purged first. The caller must Run the
// returned session; the reservation ends when Run returns.
func (c *Client) NewSession(message, userID string, observer Observer) (*Session, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	last := c.last
	c.last = nil
	s := newSession(c.opts, message, userID, observer)
	s.onFinish = c.finished
	c.active = s
	c.mu.Unlock()

	// Close reaches the previous observer; c.mu must not be held.
	if last != nil {
		_ = last.Close()
	}
	return s, nil
}

// Start runs one session to completion and returns its outcome. Errors
// that prevent the session from starting are reported as a failed outcome.
func (c *Client) Start(ctx context.Context, message, userID string, observer Observer) Outcome {
	s, err := c.NewSession(message, userID, observer)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	return s.Run(ctx)
}

// finished releases the reservation held by s.
func (c *Client) finished(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == s {
		c.active = nil
	}
	c.last = s
}

// Shutdown closes the active session, if any, and flushes a pending purge.
// It is the teardown hook for the owning UI.
func (c *Client) Shutdown() {
	c.mu.Lock()
	active, last := c.active, c.last
	c.last = nil
	c.mu.Unlock()

	if active != nil {
		_ = active.Close()
	}
	if last != nil {
		_ = last.Close()
	}
}
