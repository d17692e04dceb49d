// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/helios-tui/internal/stream"
)

// Theme holds the styled components of the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App            lipgloss.Style
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	ErrorText      lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// SESSION PROGRESS
	// ==========================================================================

	StagePanel      lipgloss.Style
	StageTitle      lipgloss.Style
	StageCompleted  lipgloss.Style
	StageProcessing lipgloss.Style
	StageFailed     lipgloss.Style
	ProgressLabel   lipgloss.Style
	Spinner         lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Hint           lipgloss.Style
}

// NewTheme creates a theme. Mode is "dark", "light" or "auto"; anything
// else is treated as "auto".
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Violet).
		Padding(0, 2)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	// Messages
	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Sky)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	t.ErrorLabel = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.AssistantText = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose).PaddingLeft(2)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	// Session progress
	t.StagePanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(1)
	t.StageTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.StageCompleted = lipgloss.NewStyle().Foreground(Emerald)
	t.StageProcessing = lipgloss.NewStyle().Foreground(Amber)
	t.StageFailed = lipgloss.NewStyle().Foreground(Rose)
	t.ProgressLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Spinner = lipgloss.NewStyle().Foreground(Violet)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
}

// StageFor returns the style for a stage record with the given status.
func (t *Theme) StageFor(status stream.StageStatus) lipgloss.Style {
	switch status {
	case stream.StageStatusProcessing:
		return t.StageProcessing
	case stream.StageStatusError:
		return t.StageFailed
	}
	return t.StageCompleted
}

// ProgressGradient returns the start and end colors of the progress bar
// for the current background.
func (t *Theme) ProgressGradient() (string, string) {
	if t.IsDark {
		return Violet.Dark, Sky.Dark
	}
	return Violet.Light, Sky.Light
}
