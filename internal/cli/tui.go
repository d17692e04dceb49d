// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/stream"
	"github.com/jeranaias/helios-tui/internal/ui/chat"
)

// runTUI opens the interactive chat screen.
func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	if !IsTTY() {
		return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("the interactive interface needs a terminal; use 'helios ask' for piped input")}
	}

	cfg, client, err := a.newClient(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	defer client.Shutdown()

	opts := chat.Options{
		Responder:    client,
		SaveIdentity: a.saveIdentity,
		Identity:     cfg.Identity,
		UI:           cfg.UI,
		Transport:    client.TransportName(),
		Logger:       a.log().Named("chat"),
	}
	// A nil *journal.Journal must not become a non-nil Recorder.
	if j := a.openJournal(cfg); j != nil {
		opts.Journal = j
	}

	m := chat.New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.AttachProgram(p)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.watchConfig(ctx, client, p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat interface failed: %w", err)
	}
	return nil
}

// watchConfig applies edits to the config file while the TUI runs. New
// sessions use the reloaded server settings; a running one is unaffected.
func (a *app) watchConfig(ctx context.Context, client *stream.Client, p *tea.Program) {
	path, err := a.configFile()
	if err != nil {
		return
	}
	logger := a.log()

	go func() {
		err := config.Watch(ctx, path,
			func(cfg *config.Config) {
				a.applyFlags(cfg)
				if err := cfg.Validate(); err != nil {
					logger.Warn("ignoring reloaded config", zap.Error(err))
					return
				}
				logger.Info("config reloaded", zap.String("path", path))
				client.Reconfigure(streamOptions(cfg, logger))
				p.Send(chat.ConfigChangedMsg{Config: cfg})
			},
			func(err error) {
				logger.Warn("config reload failed", zap.Error(err))
			})
		if err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()
}
