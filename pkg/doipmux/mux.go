// SPDX-License-Identifier: GPL-3.0-or-later

// Package doipmux implements the session multiplexer: a background
// task that pumps scenario messages between the step executor and the
// DoIP session using two bounded queues, reconnecting on session
// errors rather than propagating them.
//
// Grounded on the teacher's pkg/cli/nc/task.go copyStdinToConn /
// copyConnToStdout goroutine pair reporting into a shared channel —
// the same shape, generalized to a typed incoming-result channel
// feeding a single select loop alongside the outbound request queue.
package doipmux

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doipkit/doipkit/pkg/doipsession"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
)

// sessionAPI is the slice of [*doipsession.Session] the multiplexer
// depends on, narrowed to an interface so tests can script session
// behavior without a real or simulated TCP connection.
type sessionAPI interface {
	SendScenario(ctx context.Context, targetLA uint16, msg scenariomsg.Message) error
	RecvScenario() (scenariomsg.Message, error)
	Reconnect(ctx context.Context) error
}

var _ sessionAPI = (*doipsession.Session)(nil)

// Mux pumps scenario messages between reqCh/rspCh and a DoIP session.
// It owns the session exclusively; nothing else may call the
// session's methods while Run is active.
type Mux struct {
	session  sessionAPI
	targetLA uint16
	logger   *slog.Logger
}

// New constructs a Mux. If logger is nil, logging is disabled.
func New(session *doipsession.Session, targetLA uint16, logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &Mux{session: session, targetLA: targetLA, logger: logger}
}

type incomingResult struct {
	msg scenariomsg.Message
	err error
}

// Run drives the multiplexer loop until ctx is cancelled, the
// executor's send fails, or the response queue's receiver disappears
// (observed here as rspCh's send racing ctx cancellation). reqCh
// should have capacity 1; rspCh capacity 3, per spec.md §4.3.
func (m *Mux) Run(ctx context.Context, reqCh <-chan scenariomsg.Message, rspCh chan<- scenariomsg.Message) error {
	incoming := make(chan incomingResult)
	m.spawnRecv(ctx, incoming)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req := <-reqCh:
			if err := m.session.SendScenario(ctx, m.targetLA, req); err != nil {
				m.logger.Error("doip send failed, multiplexer exiting", "error", err)
				return err
			}

		case res := <-incoming:
			if res.err != nil {
				m.logger.Warn("doip session error, reconnecting", "error", res.err)
				if err := m.reconnectUntilSuccessOrDone(ctx); err != nil {
					return err
				}
				m.spawnRecv(ctx, incoming)
				continue
			}
			select {
			case rspCh <- res.msg:
				m.spawnRecv(ctx, incoming)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Mux) reconnectUntilSuccessOrDone(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := m.session.Reconnect(ctx)
		if err == nil {
			return nil
		}
		m.logger.Warn("reconnect attempt failed, retrying", "error", err)
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
	}
}

func (m *Mux) spawnRecv(ctx context.Context, incoming chan<- incomingResult) {
	go func() {
		msg, err := m.session.RecvScenario()
		select {
		case incoming <- incomingResult{msg: msg, err: err}:
		case <-ctx.Done():
		}
	}()
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
