// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string and file helpers shared by helios
// packages.
//
// # Key Functions
//
//   - TruncateRunes, Preview: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, StringWidth: terminal-column aware sizing
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	line := util.Preview(stageContent, 100)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
