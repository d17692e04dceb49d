// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

// plain strips styling and collapses whitespace so rendered text can be
// compared with its source.
func plain(s string) string {
	return strings.Join(strings.Fields(ansi.Strip(s)), " ")
}

func TestRender_KeepsText(t *testing.T) {
	r := NewRenderer("dark")
	got := plain(r.Render("**Insight:** you are not alone", 60))
	if !strings.Contains(got, "Insight:") || !strings.Contains(got, "you are not alone") {
		t.Errorf("Render() lost content: %q", got)
	}
	if strings.Contains(got, "**") {
		t.Errorf("Render() should strip emphasis markers: %q", got)
	}
}

func TestRender_CachesPerWidth(t *testing.T) {
	r := NewRenderer("light")
	_ = r.Render("a", 40)
	_ = r.Render("b", 40)
	_ = r.Render("c", 0)
	if len(r.renderers) != 2 {
		t.Errorf("expected 2 cached renderers, got %d", len(r.renderers))
	}
	if _, ok := r.renderers[DefaultWidth]; !ok {
		t.Error("width 0 should use DefaultWidth")
	}
}
