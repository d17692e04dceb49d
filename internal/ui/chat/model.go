// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/journal"
	"github.com/jeranaias/helios-tui/internal/model"
	"github.com/jeranaias/helios-tui/internal/stream"
	"github.com/jeranaias/helios-tui/internal/ui/markdown"
	"github.com/jeranaias/helios-tui/internal/ui/styles"
)

// recordTimeout bounds a journal write after a turn resolves.
const recordTimeout = 2 * time.Second

// Recorder persists finished turns. *journal.Journal is the production recorder.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// Options configures the chat model.
type Options struct {
	// Responder runs turns. Required.
	Responder Responder
	// Journal records finished turns. Optional.
	Journal Recorder
	// SaveIdentity persists identity changes made with /character and /reset.
	// Optional.
	SaveIdentity func(config.IdentityConfig) error

	Identity  config.IdentityConfig
	UI        config.UIConfig
	Transport string
	Logger    *zap.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen.
type Model struct {
	opts   Options
	logger *zap.Logger

	theme *styles.Theme
	md    *markdown.Renderer
	keys  KeyMap
	help  help.Model

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model

	transcript *model.Transcript
	identity   config.IdentityConfig
	ui         config.UIConfig
	transport  string

	program   *programRef
	cancelMgr *cancelManager

	// Current turn
	turn    int
	loading bool
	status  stream.Status
	stage   string
	percent int
	stages  []stream.StageEntry

	notice   string
	showHelp bool
	dirty    bool
	quitting bool

	width  int
	height int
}

// New creates a chat model.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Share what is on your mind..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	theme := styles.NewTheme(opts.UI.Theme)
	sp.Style = theme.Spinner
	start, end := theme.ProgressGradient()

	return Model{
		opts:       opts,
		logger:     logger,
		theme:      theme,
		md:         markdown.NewRenderer(opts.UI.Theme),
		keys:       DefaultKeyMap(),
		help:       help.New(),
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		progress:   progress.New(progress.WithGradient(start, end)),
		transcript: model.NewTranscript(),
		identity:   opts.Identity,
		ui:         opts.UI,
		transport:  opts.Transport,
		program:    &programRef{},
		cancelMgr:  newCancelManager(),
		dirty:      true,
		width:      80,
		height:     24,
	}
}

// AttachProgram connects the model to the program running it. Session
// progress is delivered through s.Send.
func (m Model) AttachProgram(s Sender) {
	m.program.set(s)
}

// Transcript returns the conversation shown by the model.
func (m Model) Transcript() *model.Transcript {
	return m.transcript
}

// Loading reports whether a turn is in flight.
func (m Model) Loading() bool {
	return m.loading
}

// Identity returns the identity used for the next turn.
func (m Model) Identity() config.IdentityConfig {
	return m.identity
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.layout()
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.dirty = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StatusMsg:
		// Terminal statuses are taken from the outcome in ResolvedMsg.
		if msg.Turn == m.turn && !msg.Status.Terminal() {
			m.status = msg.Status
		}
		return m, nil

	case ProgressMsg:
		if msg.Turn == m.turn {
			m.stage = msg.Stage
			m.percent = msg.Percent
		}
		return m, nil

	case StageMsg:
		if msg.Turn == m.turn {
			m.upsertStage(msg.Stage, msg.Record)
		}
		return m, nil

	case ResetMsg:
		if msg.Turn == m.turn {
			m.clearProgress()
		}
		return m, nil

	case ResolvedMsg:
		return m.handleResolved(msg)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case ConfigChangedMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case identitySavedMsg:
		if msg.Err != nil {
			m.logger.Warn("failed to save identity", zap.Error(msg.Err))
			m.notice = "Could not save identity: " + msg.Err.Error()
		} else if msg.Notice != "" {
			m.notice = msg.Notice
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if m.loading {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// quit cancels the running turn and closes any open connection.
func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	m.program.detach()
	m.cancelMgr.cancel()
	if m.opts.Responder != nil {
		m.opts.Responder.Shutdown()
	}
	return m, tea.Quit
}

// =============================================================================
// TURNS
// =============================================================================

// normalizeInput trims the input and converts it to NFC so composed and
// decomposed forms of the same text reach the backend identically.
func normalizeInput(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	text := normalizeInput(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}
	if m.opts.Responder == nil {
		m.notice = "No backend configured."
		return m, nil
	}

	m.transcript.AppendUser(text)
	m.turn++
	m.loading = true
	m.notice = ""
	m.clearProgress()
	m.stage = stream.StageStart
	m.input.Blur()
	m.dirty = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	return m, tea.Batch(m.spinner.Tick, m.runTurn(ctx, m.turn, text))
}

// runTurn returns a command that runs one session and resolves it.
func (m Model) runTurn(ctx context.Context, turn int, text string) tea.Cmd {
	responder := m.opts.Responder
	recorder := m.opts.Journal
	identity := m.identity
	logger := m.logger
	observer := bridge{turn: turn, program: m.program}

	return func() tea.Msg {
		started := time.Now()
		out := responder.Start(ctx, text, identity.UserID, observer)

		if recorder != nil {
			rctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			entry := journal.FromOutcome(identity.UserID, identity.Character, text, started, out)
			if _, err := recorder.Record(rctx, entry); err != nil {
				logger.Warn("failed to record session",
					zap.String("session_id", out.SessionID),
					zap.Error(err))
			}
		}
		return ResolvedMsg{Turn: turn, Outcome: out}
	}
}

// handleResolved appends exactly one message for the turn and leaves the
// loading state.
func (m Model) handleResolved(msg ResolvedMsg) (Model, tea.Cmd) {
	if msg.Turn != m.turn || !m.loading {
		return m, nil
	}

	out := msg.Outcome
	if out.Failed() {
		m.transcript.AppendError(out.SessionID, out.Message())
	} else {
		m.transcript.AppendAssistant(out.SessionID, out.Reply)
	}

	m.loading = false
	m.status = out.Status
	m.cancelMgr.cancel()
	m.input.Focus()
	m.dirty = true
	return m, textinput.Blink
}

func (m *Model) upsertStage(stage string, record stream.StageRecord) {
	for i := range m.stages {
		if m.stages[i].Stage == stage {
			m.stages[i].Record = record
			return
		}
	}
	m.stages = append(m.stages, stream.StageEntry{Stage: stage, Record: record})
}

func (m *Model) clearProgress() {
	m.stages = nil
	m.stage = ""
	m.percent = 0
	m.status = stream.StatusIdle
}

// applyConfig adopts a reloaded configuration. The identity is kept when
// the file still names the same user.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.UI.Theme != m.ui.Theme {
		m.theme = styles.NewTheme(cfg.UI.Theme)
		m.md = markdown.NewRenderer(cfg.UI.Theme)
		m.spinner.Style = m.theme.Spinner
		start, end := m.theme.ProgressGradient()
		m.progress = progress.New(progress.WithGradient(start, end))
	}
	m.ui = cfg.UI
	m.transport = cfg.Server.Transport
	if config.ValidUserID(cfg.Identity.UserID) {
		m.identity = cfg.Identity
	}
	m.dirty = true
}
