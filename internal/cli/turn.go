// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/journal"
	"github.com/jeranaias/helios-tui/internal/stream"
	"github.com/jeranaias/helios-tui/internal/ui/markdown"
)

// =============================================================================
// PROGRESS OUTPUT
// =============================================================================

// progressPrinter writes one line per stage update:
//
//	[17%] Belief System: completed
//
// Callbacks arrive one at a time from the session goroutine.
type progressPrinter struct {
	w       io.Writer
	quiet   bool
	percent int
}

func (p *progressPrinter) OnStatus(status stream.Status) {
	if p.quiet {
		return
	}
	switch status {
	case stream.StatusConnecting:
		fmt.Fprintln(p.w, dimStyle.Render("Connecting..."))
	case stream.StatusStreaming:
		fmt.Fprintln(p.w, dimStyle.Render("Transformation started"))
	}
}

func (p *progressPrinter) OnProgress(_ string, percent int) {
	p.percent = percent
}

func (p *progressPrinter) OnStageRecord(stage string, record stream.StageRecord) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "[%d%%] %s: %s\n", p.percent, stream.StageLabel(stage), record.Status)
}

func (p *progressPrinter) OnReset() {}

// =============================================================================
// TURN RUNNER
// =============================================================================

// turnRunner runs headless turns for ask and chat.
type turnRunner struct {
	client  *stream.Client
	journal *journal.Journal
	cfg     *config.Config
	logger  *zap.Logger

	out   io.Writer
	err   io.Writer
	quiet bool
	raw   bool

	md *markdown.Renderer
}

func newTurnRunner(cfg *config.Config, client *stream.Client, j *journal.Journal, logger *zap.Logger, out, errOut io.Writer) *turnRunner {
	return &turnRunner{
		client:  client,
		journal: j,
		cfg:     cfg,
		logger:  logger,
		out:     out,
		err:     errOut,
		md:      markdown.NewRenderer(cfg.UI.Theme),
	}
}

// run sends message and prints the result. The outcome is returned so the
// caller can pick an exit code.
func (r *turnRunner) run(ctx context.Context, message string) stream.Outcome {
	message = norm.NFC.String(strings.TrimSpace(message))
	identity := r.cfg.Identity

	started := time.Now()
	out := r.client.Start(ctx, message, identity.UserID, &progressPrinter{w: r.err, quiet: r.quiet})

	if r.journal != nil {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		entry := journal.FromOutcome(identity.UserID, identity.Character, message, started, out)
		if _, err := r.journal.Record(rctx, entry); err != nil {
			r.logger.Warn("failed to record session", zap.String("session_id", out.SessionID), zap.Error(err))
		}
	}

	if out.Failed() {
		fmt.Fprintln(r.err, errorStyle.Render("[X] ")+out.Message())
		return out
	}
	fmt.Fprintln(r.out, r.render(out.Reply))
	return out
}

// render formats a reply. Markdown is rendered only for terminals so piped
// output stays plain.
func (r *turnRunner) render(reply string) string {
	if r.raw || !r.cfg.UI.Markdown || !isTerminalWriter(r.out) {
		return reply
	}
	return r.md.Render(reply, GetTerminalWidth())
}
