// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one user turn: a push connection, a trigger call and the
// progress state built from the stream. A Session runs once; later calls
// to Run fail with ErrSessionActive.
type Session struct {
	id        string
	userID    string
	message   string
	transport Transport
	trigger   Trigger
	observer  Observer
	logger    *zap.Logger

	openTimeout time.Duration
	gracePeriod time.Duration
	onFinish    func(*Session)

	// tracker is only touched by Run until the session resolves.
	tracker *Tracker

	mu     sync.Mutex
	status Status
	conn   Conn
	purge  *time.Timer
	purged bool

	started     atomic.Bool
	releaseOnce sync.Once
	closeOnce   sync.Once
	closed      chan struct{}
}

func newSession(opts Options, message, userID string, observer Observer) *Session {
	if observer == nil {
		observer = ObserverFuncs{}
	}
	id := NewSessionID()
	return &Session{
		id:          id,
		userID:      userID,
		message:     message,
		transport:   opts.Transport,
		trigger:     opts.Trigger,
		observer:    observer,
		logger:      opts.logger().With(zap.String("session_id", id)),
		openTimeout: opts.openTimeout(),
		gracePeriod: opts.gracePeriod(),
		tracker:     NewTracker(),
		closed:      make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.logger.Debug("session status", zap.Stringer("status", status))
	s.observer.OnStatus(status)
}

// Run drives the session to a terminal outcome. It never panics on
// transport or server failures; every failure is reported in the Outcome.
func (s *Session) Run(ctx context.Context) Outcome {
	if !s.started.CompareAndSwap(false, true) {
		return Outcome{SessionID: s.id, Status: StatusFailed, Err: ErrSessionActive}
	}
	start := time.Now()
	out := s.run(ctx)
	out.SessionID = s.id
	out.Duration = time.Since(start)
	if s.onFinish != nil {
		s.onFinish(s)
	}
	if out.Failed() {
		s.logger.Info("session failed", zap.Error(out.Err), zap.Duration("duration", out.Duration))
	} else {
		s.logger.Info("session completed", zap.Int("stages", len(out.Stages)), zap.Duration("duration", out.Duration))
	}
	return out
}

type triggerResult struct {
	ack TriggerAck
	err error
}

func (s *Session) run(ctx context.Context) Outcome {
	s.setStatus(StatusConnecting)

	conn, err := s.transport.Connect(ctx, Target{UserID: s.userID, SessionID: s.id})
	if err != nil {
		return s.fail(connectionError(err))
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// A Close that raced with Connect missed the handle.
	select {
	case <-s.closed:
		return s.fail(ErrSessionClosed)
	default:
	}

	frames := conn.Frames()

	openTimer := time.NewTimer(s.openTimeout)
	defer openTimer.Stop()

	for opened := false; !opened; {
		select {
		case f, ok := <-frames:
			if !ok {
				return s.streamEnded()
			}
			switch f.Kind {
			case FrameOpen:
				opened = true
			case FrameError:
				return s.fail(connectionError(f.Err))
			default:
				s.logger.Warn("dropping frame received before open", zap.Int("bytes", len(f.Data)))
			}
		case <-openTimer.C:
			return s.fail(ErrConnectionTimeout)
		case <-ctx.Done():
			return s.fail(ctx.Err())
		case <-s.closed:
			return s.fail(ErrSessionClosed)
		}
	}
	openTimer.Stop()

	s.setStatus(StatusTriggering)

	triggerCtx, cancelTrigger := context.WithCancel(ctx)
	results := make(chan triggerResult, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ack, err := s.trigger.Trigger(triggerCtx, TriggerRequest{
			SessionID: s.id,
			UserID:    s.userID,
			Message:   s.message,
		})
		results <- triggerResult{ack: ack, err: err}
	}()
	defer func() {
		cancelTrigger()
		wg.Wait()
	}()

	for {
		select {
		case res := <-results:
			results = nil
			if res.err != nil {
				if err := ctx.Err(); err != nil {
					return s.fail(err)
				}
				return s.fail(res.err)
			}
			s.logger.Debug("trigger accepted", zap.String("ack", res.ack.Message))
			s.setStatus(StatusStreaming)

		case f, ok := <-frames:
			if !ok {
				return s.streamEnded()
			}
			switch f.Kind {
			case FrameError:
				return s.fail(connectionError(f.Err))
			case FrameData:
				if out, done := s.handle(f.Data); done {
					return out
				}
			}

		case <-ctx.Done():
			return s.fail(ctx.Err())
		case <-s.closed:
			return s.fail(ErrSessionClosed)
		}
	}
}

// handle parses and dispatches one data frame. It reports true when the
// frame resolved the session.
func (s *Session) handle(data []byte) (Outcome, bool) {
	ev, err := ParseEvent(data)
	if err != nil {
		s.logger.Warn("dropping malformed event", zap.Error(err), zap.ByteString("payload", truncate(data, 200)))
		return Outcome{}, false
	}
	up, err := s.tracker.Dispatch(ev)
	if err != nil {
		s.logger.Warn("dropping malformed event", zap.Error(err), zap.String("type", string(ev.Type)))
		return Outcome{}, false
	}
	if ev.Type == EventConnection {
		s.logger.Debug("stream acknowledged")
	}

	if up.Progress != nil {
		s.observer.OnProgress(up.Progress.Stage, up.Progress.Percent)
	}
	if up.Record != nil {
		s.observer.OnStageRecord(up.Stage, *up.Record)
	}

	switch up.Action {
	case ActionComplete:
		return s.complete(up.Reply), true
	case ActionFail:
		return s.fail(up.Err), true
	}
	return Outcome{}, false
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

// streamEnded resolves a session whose frame channel closed. A local Close
// also closes the channel, so it takes precedence over a server hang-up.
func (s *Session) streamEnded() Outcome {
	select {
	case <-s.closed:
		return s.fail(ErrSessionClosed)
	default:
		return s.fail(ErrStreamClosed)
	}
}

// complete releases the connection, resolves successfully and schedules the
// grace-period purge.
func (s *Session) complete(reply string) Outcome {
	s.release()
	out := Outcome{Status: StatusCompleted, Reply: reply, Stages: s.tracker.Records()}
	s.setStatus(StatusCompleted)

	s.mu.Lock()
	if !s.purged {
		s.purge = time.AfterFunc(s.gracePeriod, s.purgeState)
	}
	s.mu.Unlock()
	return out
}

// fail releases the connection, resolves with err and resets state at once.
func (s *Session) fail(err error) Outcome {
	s.release()
	out := Outcome{Status: StatusFailed, Err: err, Stages: s.tracker.Records()}
	s.setStatus(StatusFailed)
	s.purgeState()
	return out
}

// purgeState clears progress state and returns the session to Idle. It runs
// at most once.
func (s *Session) purgeState() {
	s.mu.Lock()
	if s.purged {
		s.mu.Unlock()
		return
	}
	s.purged = true
	s.purge = nil
	s.tracker.Reset()
	s.status = StatusIdle
	s.mu.Unlock()

	s.logger.Debug("session state purged")
	s.observer.OnStatus(StatusIdle)
	s.observer.OnReset()
}

// release closes the connection exactly once and drops the handle.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("connection close failed", zap.Error(err))
		}
	})
}

// Close tears the session down: an open connection is closed, a running Run
// resolves with ErrSessionClosed, and a pending grace-period purge runs
// immediately. Close is idempotent and safe to call from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	conn := s.conn
	timer := s.purge
	s.mu.Unlock()

	if conn != nil {
		s.release()
	}
	if timer != nil && timer.Stop() {
		s.purgeState()
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
