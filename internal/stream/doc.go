// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream drives a single streaming transformation session against
// the Helios backend.
//
// A session opens a push connection (Server-Sent Events or WebSocket)
// scoped to a user and session id, waits for the connection to confirm it
// is open, fires the trigger request that starts server-side work, and
// then consumes stage events until the server reports completion or an
// error. The connection is released exactly once on every exit path.
//
// # Key Types
//
//   - Client: long-lived entry point; starts one Session per turn
//   - Session: the per-turn state machine (Idle -> Connecting -> Triggering
//     -> Streaming -> Completed|Failed -> Idle)
//   - Tracker: applies stage events to progress and stage records
//   - Transport / Conn: the push connection abstraction
//   - Trigger: the one-shot request that starts server-side work
//   - Outcome: the single resolved result of a session
//
// # Usage
//
//	client := stream.NewClient(stream.Options{
//	    Transport: stream.NewSSETransport(baseURL, "/api/sse-stream"),
//	    Trigger:   stream.NewHTTPTrigger(baseURL, "/api/trigger-consciousness"),
//	})
//	outcome := client.Start(ctx, "hello", userID, stream.ObserverFuncs{
//	    Progress: func(stage string, pct int) { fmt.Println(stage, pct) },
//	})
//	if outcome.Failed() {
//	    fmt.Println(outcome.Message())
//	}
package stream
