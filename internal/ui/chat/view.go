// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/helios-tui/internal/model"
	"github.com/jeranaias/helios-tui/internal/stream"
	"github.com/jeranaias/helios-tui/internal/ui/styles"
	"github.com/jeranaias/helios-tui/internal/util"
)

// maxProgressWidth caps the progress bar on wide terminals.
const maxProgressWidth = 60

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the viewport to the space left by the other sections and
// re-renders the transcript when it changed.
func (m *Model) layout() {
	contentWidth := m.width - 2
	if contentWidth < 20 {
		contentWidth = 20
	}
	m.input.Width = contentWidth - 4
	m.progress.Width = min(contentWidth-2, maxProgressWidth)

	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderFooter())
	if panel := m.renderSessionPanel(); panel != "" {
		chrome += lipgloss.Height(panel)
	}
	height := m.height - chrome
	if height < 3 {
		height = 3
	}
	m.viewport.Width = contentWidth
	m.viewport.Height = height

	if m.dirty {
		m.viewport.SetContent(m.renderTranscript(contentWidth))
		m.viewport.GotoBottom()
		m.dirty = false
	}
}

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader(), m.viewport.View()}
	if panel := m.renderSessionPanel(); panel != "" {
		sections = append(sections, panel)
	}
	sections = append(sections, m.renderFooter())
	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Helios")

	persona := "no character selected"
	if c, ok := model.LookupCharacter(m.identity.Character); ok {
		persona = c.Name
	}
	user := m.identity.UserID
	if len(user) > 8 {
		user = user[:8]
	}
	subtitle := m.theme.HeaderSubtitle.Render(
		fmt.Sprintf("%s  user %s  via %s", persona, user, m.transport))

	return m.theme.Header.Render(title + "  " + subtitle)
}

func (m Model) renderTranscript(width int) string {
	msgs := m.transcript.Messages()
	if len(msgs) == 0 {
		return m.theme.Hint.Render("Describe a feeling or a situation, and Helios will walk it through six stages of reflection.")
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	var label, body string
	stamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
		body = m.theme.UserText.Width(width).Render(msg.Content)
	case model.RoleError:
		label = m.theme.ErrorLabel.Render(msg.Role.DisplayName())
		body = m.theme.ErrorText.Width(width).Render(styles.StatusIndicators.Error + " " + msg.Content)
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		if m.ui.Markdown {
			body = m.md.Render(msg.Content, width-2)
		} else {
			body = m.theme.AssistantText.Width(width).Render(msg.Content)
		}
	}
	return label + " " + stamp + "\n" + body
}

// renderSessionPanel shows the running turn, or the stage list of a
// finished turn until its records are purged.
func (m Model) renderSessionPanel() string {
	var lines []string

	if m.loading {
		lines = append(lines,
			m.spinner.View()+" "+m.theme.ProgressLabel.Render(statusText(m.status)),
			m.progress.ViewAs(float64(m.percent)/100),
			m.theme.StageTitle.Render(fmt.Sprintf("%s  %d%%", currentStageText(m.stage), m.percent)),
		)
	}

	if m.ui.ShowStages && len(m.stages) > 0 {
		for _, entry := range m.stages {
			lines = append(lines, m.renderStage(entry))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return m.theme.StagePanel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStage(entry stream.StageEntry) string {
	preview := util.Preview(entry.Record.Display(), m.ui.StagePreviewChars)
	indicator := styles.StatusIndicators.Success
	switch entry.Record.Status {
	case stream.StageStatusProcessing:
		indicator = styles.StatusIndicators.Active
	case stream.StageStatusError:
		indicator = styles.StatusIndicators.Error
	}
	line := fmt.Sprintf("%s %s: %s", indicator, stream.StageLabel(entry.Stage), preview)
	return m.theme.StageFor(entry.Record.Status).Render(line)
}

func (m Model) renderFooter() string {
	var lines []string
	if m.notice != "" {
		lines = append(lines, m.theme.Hint.Render(m.notice))
	}
	lines = append(lines, m.theme.InputContainer.Render(m.input.View()))
	if m.showHelp {
		m.help.ShowAll = true
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

// =============================================================================
// LABELS
// =============================================================================

func statusText(status stream.Status) string {
	switch status {
	case stream.StatusConnecting:
		return "Connecting to Helios..."
	case stream.StatusTriggering:
		return "Starting transformation..."
	case stream.StatusStreaming:
		return "Transforming..."
	}
	return "Preparing..."
}

func currentStageText(stage string) string {
	if stage == "" || stage == stream.StageStart {
		return "Starting"
	}
	return stream.StageLabel(stage)
}
