// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport subscribes to the stage stream over a WebSocket.
// Each text message is one frame.
type WebSocketTransport struct {
	baseURL string
	path    string
	dialer  *websocket.Dialer
}

// NewWebSocketTransport returns a transport for <baseURL><path>. http and
// https base URLs are converted to ws and wss.
func NewWebSocketTransport(baseURL, path string) *WebSocketTransport {
	return &WebSocketTransport{
		baseURL: baseURL,
		path:    path,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
	}
}

// Name implements Transport.
func (t *WebSocketTransport) Name() string { return "websocket" }

// Connect implements Transport. The connection reports FrameOpen once the
// handshake completes.
func (t *WebSocketTransport) Connect(ctx context.Context, target Target) (Conn, error) {
	u, err := streamURL(t.baseURL, t.path, target)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}

	return startPump(ctx, func(c *pumpConn) {
		ws, resp, err := t.dialer.DialContext(c.ctx, u.String(), nil)
		if err != nil {
			if resp != nil {
				err = fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
			}
			c.fail(fmt.Errorf("websocket dial failed: %w", err))
			return
		}
		defer ws.Close()
		// ReadMessage ignores contexts; closing the socket unblocks it.
		stop := context.AfterFunc(c.ctx, func() { _ = ws.Close() })
		defer stop()

		ws.SetReadLimit(MaxEventSize)
		if !c.emit(Frame{Kind: FrameOpen}) {
			return
		}

		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
					c.fail(ErrStreamClosed)
				} else {
					c.fail(err)
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			if !c.emit(Frame{Kind: FrameData, Data: data}) {
				return
			}
		}
	}), nil
}
