// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sessionSuffixLen is the number of random characters appended to a session id.
const sessionSuffixLen = 9

// NewSessionID returns a session token of the form
// session_<unix-millis>_<random>. The random part is taken from a v4 UUID,
// so ids are unique with overwhelming probability even within one millisecond.
func NewSessionID() string {
	return newSessionIDAt(time.Now())
}

func newSessionIDAt(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix[:sessionSuffixLen]
}
