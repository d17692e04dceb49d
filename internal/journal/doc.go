// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package journal keeps a local record of finished sessions in SQLite.
//
// Each resolved turn is written as one row: who asked, what was asked, how
// the session ended and how long it took. The journal is write-mostly and
// is read back by the "helios sessions" command.
//
// # Key Types
//
//   - Journal: an open database handle
//   - Entry: one recorded session
//
// # Usage
//
//	j, err := journal.Open(config.JournalPath())
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//
//	_ = j.Record(ctx, journal.FromOutcome(userID, character, message, started, outcome))
//	recent, _ := j.Recent(ctx, 20)
package journal
