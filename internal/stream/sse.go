// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxEventSize is the maximum allowed size of a single SSE event (64KB).
const MaxEventSize = 64 * 1024

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream. A single line may not
// exceed MaxEventSize.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxEventSize)
	return &SSEReader{scanner: scanner}
}

// ReadEvent reads the next event and returns its name and data. Multiple
// data lines are joined with a newline. Comment lines and id/retry fields
// are skipped. An event still pending when the stream ends, including an
// unterminated last line, is returned before io.EOF.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	size := 0

	for s.scanner.Scan() {
		line := s.scanner.Bytes()

		// Blank line dispatches the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			size = 0
			continue
		}

		size += len(line)
		if size > MaxEventSize {
			return "", nil, fmt.Errorf("sse event exceeds %d bytes", MaxEventSize)
		}

		switch {
		case line[0] == ':':
			// comment / heartbeat
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[5:]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, append([]byte(nil), data...))
		}
	}

	if err := s.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", nil, fmt.Errorf("sse event exceeds %d bytes", MaxEventSize)
		}
		return "", nil, err
	}
	if len(dataLines) > 0 {
		return eventType, bytes.Join(dataLines, []byte("\n")), nil
	}
	return "", nil, io.EOF
}

// =============================================================================
// SSE TRANSPORT
// =============================================================================

// SSETransport subscribes to the stage stream over Server-Sent Events.
type SSETransport struct {
	baseURL string
	path    string
	client  *http.Client
}

// NewSSETransport returns a transport for <baseURL><path>.
func NewSSETransport(baseURL, path string) *SSETransport {
	return &SSETransport{baseURL: baseURL, path: path, client: sharedStreamingClient}
}

// Name implements Transport.
func (t *SSETransport) Name() string { return "sse" }

// Connect implements Transport. The connection reports FrameOpen once the
// server answers with 200 and response headers.
func (t *SSETransport) Connect(ctx context.Context, target Target) (Conn, error) {
	u, err := streamURL(t.baseURL, t.path, target)
	if err != nil {
		return nil, err
	}
	return startPump(ctx, func(c *pumpConn) {
		req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			c.fail(fmt.Errorf("failed to create request: %w", err))
			return
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := t.client.Do(req)
		if err != nil {
			c.fail(fmt.Errorf("request failed: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.fail(fmt.Errorf("stream endpoint returned HTTP %d", resp.StatusCode))
			return
		}
		if !c.emit(Frame{Kind: FrameOpen}) {
			return
		}

		reader := NewSSEReader(resp.Body)
		for {
			_, data, err := reader.ReadEvent()
			if err != nil {
				if errors.Is(err, io.EOF) {
					c.fail(ErrStreamClosed)
				} else {
					c.fail(err)
				}
				return
			}
			if !c.emit(Frame{Kind: FrameData, Data: data}) {
				return
			}
		}
	}), nil
}
