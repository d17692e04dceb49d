// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/helios-tui/internal/stream"
)

// Responder runs one turn. *stream.Client is the production responder.
type Responder interface {
	Start(ctx context.Context, message, userID string, observer stream.Observer) stream.Outcome
	Shutdown()
}

// Sender delivers messages into a running program. *tea.Program is the
// production sender.
type Sender interface {
	Send(msg tea.Msg)
}

// programRef lets the model reach the program it runs in. The program is
// created after the model, so it is attached later through a shared pointer.
type programRef struct {
	sender   atomic.Pointer[senderBox]
	detached atomic.Bool
}

type senderBox struct{ s Sender }

func (p *programRef) set(s Sender) {
	p.sender.Store(&senderBox{s: s})
}

// detach drops all further messages. It must be called before anything
// that may invoke observer callbacks from inside Update.
func (p *programRef) detach() {
	p.detached.Store(true)
}

func (p *programRef) send(msg tea.Msg) {
	if p.detached.Load() {
		return
	}
	if box := p.sender.Load(); box != nil && box.s != nil {
		box.s.Send(msg)
	}
}

// bridge forwards observer callbacks of one turn as program messages.
type bridge struct {
	turn    int
	program *programRef
}

func (b bridge) OnStatus(status stream.Status) {
	b.program.send(StatusMsg{Turn: b.turn, Status: status})
}

func (b bridge) OnProgress(stage string, percent int) {
	b.program.send(ProgressMsg{Turn: b.turn, Stage: stage, Percent: percent})
}

func (b bridge) OnStageRecord(stage string, record stream.StageRecord) {
	b.program.send(StageMsg{Turn: b.turn, Stage: stage, Record: record})
}

func (b bridge) OnReset() {
	b.program.send(ResetMsg{Turn: b.turn})
}
