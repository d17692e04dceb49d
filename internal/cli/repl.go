// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineEditor provides input history and line editing for the REPL.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.HistoryPath()
	if err != nil {
		historyFile = ""
	}

	e := &lineEditor{line: line, historyFile: historyFile}
	e.loadHistory()
	return e
}

func (e *lineEditor) loadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		f.Close()
	}
}

// prompt reads a line. Non-empty input is added to the history.
func (e *lineEditor) prompt(p string) (string, error) {
	input, err := e.line.Prompt(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// close saves the history with owner-only permissions.
func (e *lineEditor) close() {
	if e.historyFile != "" && config.EnsureConfigDir() == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// turnCanceller cancels the turn in flight when the user presses Ctrl+C.
type turnCanceller struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (t *turnCanceller) set(cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
}

func (t *turnCanceller) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return false
	}
	t.cancel()
	t.cancel = nil
	return true
}

func (a *app) chatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-based chat with input history",
		Long: `Start a simple read-eval-print loop. Each line runs one turn.

Commands:
  /character [id]  list or pick a character
  /quit            leave (Ctrl+D also works)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := a.newClient(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()
			defer client.Shutdown()

			runner := newTurnRunner(cfg, client, a.openJournal(cfg), a.log(), cmd.OutOrStdout(), cmd.ErrOrStderr())

			editor := newLineEditor()
			defer editor.close()

			var inFlight turnCanceller
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt)
			defer func() {
				signal.Stop(sigChan)
				close(sigChan)
			}()
			go func() {
				for range sigChan {
					if inFlight.fire() {
						fmt.Fprintln(cmd.ErrOrStderr(), "\n"+dimStyle.Render("[Cancelled]"))
					}
				}
			}()

			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("Helios")+" "+dimStyle.Render("type /quit to leave"))
			for {
				input, err := editor.prompt("helios> ")
				if err != nil {
					if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
						fmt.Fprintln(cmd.OutOrStdout())
						return nil
					}
					return err
				}

				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}
				if strings.HasPrefix(input, "/") {
					if !a.replCommand(cmd.OutOrStdout(), cfg, input) {
						return nil
					}
					continue
				}

				ctx, cancel := context.WithCancel(cmd.Context())
				inFlight.set(cancel)
				runner.run(ctx, input)
				inFlight.fire()
			}
		},
	}
}

// replCommand handles a slash command and reports whether to keep going.
func (a *app) replCommand(w io.Writer, cfg *config.Config, input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return false

	case "/character":
		if len(fields) == 1 {
			for _, c := range model.Characters {
				marker := "  "
				if c.ID == cfg.Identity.Character {
					marker = "* "
				}
				fmt.Fprintf(w, "%s%-20s %s\n", marker, c.ID, dimStyle.Render(c.Description))
			}
			return true
		}
		c, ok := model.LookupCharacter(fields[1])
		if !ok {
			fmt.Fprintln(w, errorStyle.Render("Unknown character: ")+fields[1])
			return true
		}
		cfg.Identity.Character = c.ID
		if err := a.saveIdentity(cfg.Identity); err != nil {
			a.log().Warn("failed to save identity", zap.Error(err))
		}
		fmt.Fprintln(w, successStyle.Render("Speaking as "+c.Name))
		return true
	}

	fmt.Fprintln(w, errorStyle.Render("Unknown command: ")+fields[0])
	return true
}
