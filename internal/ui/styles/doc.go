// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the helios TUI.

All colors use Lip Gloss AdaptiveColor so the same palette works on light
and dark terminals. The background is detected with termenv unless the
theme is forced in configuration.

# Color System (colors.go)

  - Violet - brand color, assistant replies
  - Sky - user input, prompts
  - Emerald - completed stages
  - Amber - stages in progress
  - Rose - errors and failed stages

# Theme (theme.go)

Theme groups every style the chat screen needs:

	theme := styles.NewTheme("auto")
	header := theme.Header.Render("Helios")
	stage := theme.StageFor(record.Status).Render(record.Display())

# Status Indicators

Stage and session states always carry a text marker next to their color:

	styles.RenderStatus(true, "Transformation Complete")  // "[OK] Transformation Complete"
	styles.RenderStatus(false, "Connection failed")       // "[X] Connection failed"
*/
package styles
