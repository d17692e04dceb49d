// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTriggerTimeout bounds a single trigger request.
	DefaultTriggerTimeout = 30 * time.Second

	// MaxResponseSize is the maximum trigger response body that is read.
	MaxResponseSize = 1024 * 1024
)

var sharedHTTPClient = &http.Client{
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

// TriggerRequest is the body of the trigger call.
type TriggerRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
}

// TriggerAck is the success response of the trigger call.
type TriggerAck struct {
	Message string `json:"message"`
}

// Trigger starts server-side work for a session.
type Trigger interface {
	Trigger(ctx context.Context, req TriggerRequest) (TriggerAck, error)
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc func(ctx context.Context, req TriggerRequest) (TriggerAck, error)

// Trigger implements Trigger.
func (f TriggerFunc) Trigger(ctx context.Context, req TriggerRequest) (TriggerAck, error) {
	return f(ctx, req)
}

// HTTPTrigger posts the trigger request as JSON.
type HTTPTrigger struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// NewHTTPTrigger returns a trigger for <baseURL><path>.
func NewHTTPTrigger(baseURL, path string) *HTTPTrigger {
	return &HTTPTrigger{
		endpoint: strings.TrimRight(baseURL, "/") + path,
		client:   sharedHTTPClient,
		timeout:  DefaultTriggerTimeout,
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func (t *HTTPTrigger) WithTimeout(d time.Duration) *HTTPTrigger {
	t.timeout = d
	return t
}

// Trigger implements Trigger. A non-2xx answer returns *TriggerRejectedError
// with the server's "error" field as detail; network failures match
// ErrConnectionError.
func (t *HTTPTrigger) Trigger(ctx context.Context, treq TriggerRequest) (TriggerAck, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	bodyBytes, err := json.Marshal(treq)
	if err != nil {
		return TriggerAck{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return TriggerAck{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return TriggerAck{}, connectionError(fmt.Errorf("trigger request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return TriggerAck{}, connectionError(fmt.Errorf("failed to read trigger response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TriggerAck{}, rejection(resp.StatusCode, body)
	}

	var ack TriggerAck
	if len(bytes.TrimSpace(body)) > 0 {
		// A success body that is not JSON is tolerated; only the status matters.
		_ = json.Unmarshal(body, &ack)
	}
	return ack, nil
}

// rejection converts a non-success trigger response into a TriggerRejectedError.
func rejection(status int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		detail = payload.Error
		if detail == "" {
			detail = payload.Message
		}
	} else {
		detail = strings.TrimSpace(string(body))
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &TriggerRejectedError{Status: status, Detail: detail}
}
