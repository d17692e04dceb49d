// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders assistant replies for the terminal with glamour.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the word-wrap width used when none is given.
const DefaultWidth = 80

// Renderer caches one glamour renderer per wrap width.
// It is safe for concurrent use.
type Renderer struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewRenderer creates a renderer for a theme mode: "dark", "light" or
// anything else for automatic detection.
func NewRenderer(mode string) *Renderer {
	return &Renderer{
		style:     strings.ToLower(mode),
		renderers: make(map[int]*glamour.TermRenderer),
	}
}

func (r *Renderer) get(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = DefaultWidth
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.renderers[width]; ok {
		return tr
	}

	styleOpt := glamour.WithAutoStyle()
	if r.style == "dark" || r.style == "light" {
		styleOpt = glamour.WithStandardStyle(r.style)
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		tr = nil
	}
	r.renderers[width] = tr
	return tr
}

// Render renders content wrapped at width. The original content is
// returned when rendering fails.
func (r *Renderer) Render(content string, width int) string {
	tr := r.get(width)
	if tr == nil {
		return content
	}
	rendered, err := tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}
