// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// Observer receives best-effort updates while a session runs.
//
// Status, progress and stage callbacks are invoked from the goroutine that
// called Run, one at a time, in the order the transport delivered the
// events. OnReset may also be invoked from the grace-period timer or from
// Close.
type Observer interface {
	OnStatus(status Status)
	OnProgress(stage string, percent int)
	OnStageRecord(stage string, record StageRecord)
	OnReset()
}

// ObserverFuncs adapts optional functions to the Observer interface.
// Nil fields are skipped.
type ObserverFuncs struct {
	Status      func(Status)
	Progress    func(stage string, percent int)
	StageRecord func(stage string, record StageRecord)
	Reset       func()
}

// OnStatus implements Observer.
func (f ObserverFuncs) OnStatus(status Status) {
	if f.Status != nil {
		f.Status(status)
	}
}

// OnProgress implements Observer.
func (f ObserverFuncs) OnProgress(stage string, percent int) {
	if f.Progress != nil {
		f.Progress(stage, percent)
	}
}

// OnStageRecord implements Observer.
func (f ObserverFuncs) OnStageRecord(stage string, record StageRecord) {
	if f.StageRecord != nil {
		f.StageRecord(stage, record)
	}
}

// OnReset implements Observer.
func (f ObserverFuncs) OnReset() {
	if f.Reset != nil {
		f.Reset()
	}
}
