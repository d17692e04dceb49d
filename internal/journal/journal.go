// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/helios-tui/internal/stream"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal is closed")

// Entry is one recorded session.
type Entry struct {
	ID         int64
	SessionID  string
	UserID     string
	Character  string
	Message    string
	Status     string
	Reply      string
	Error      string
	StageCount int
	Duration   time.Duration
	StartedAt  time.Time
}

// Failed reports whether the recorded session ended in failure.
func (e Entry) Failed() bool {
	return e.Status != stream.StatusCompleted.String()
}

// FromOutcome builds an entry from a resolved session.
func FromOutcome(userID, character, message string, startedAt time.Time, out stream.Outcome) Entry {
	e := Entry{
		SessionID:  out.SessionID,
		UserID:     userID,
		Character:  character,
		Message:    message,
		Status:     out.Status.String(),
		Reply:      out.Reply,
		StageCount: len(out.Stages),
		Duration:   out.Duration,
		StartedAt:  startedAt,
	}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}
	return e
}

// Journal is a SQLite-backed session log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=2000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record writes one entry and returns its row id.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	result, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, character, message, status, reply, error, stage_count, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.UserID, e.Character, e.Message, e.Status, e.Reply, e.Error,
		e.StageCount, e.Duration.Milliseconds(), e.StartedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record session: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, COALESCE(character, ''), message, status,
		       COALESCE(reply, ''), COALESCE(error, ''), stage_count, duration_ms, started_at
		FROM sessions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMs, startedMs int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Character, &e.Message, &e.Status,
			&e.Reply, &e.Error, &e.StageCount, &durationMs, &startedMs); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.StartedAt = time.UnixMilli(startedMs)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded sessions.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// Close closes the database. It is safe to call more than once.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
