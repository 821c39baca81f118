// SPDX-License-Identifier: GPL-3.0-or-later

// Package executor implements the scenario step executor: it
// interprets a [scenario.StepList] against a live DoIP session,
// driving UDS request/response exchanges over the two bounded queues
// the multiplexer (package doipmux) pumps, and owns the expression
// context and the last committed UDS reply.
//
// Grounded on the teacher's pkg/cli/dig/task.go and pkg/cli/stun/task.go
// Task.Run(ctx) shape: one logger built once, context.WithTimeout at
// the call site, fmt.Errorf("...: %w", err) wrapping throughout.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/doipkit/doipkit/internal/fsx"
	"github.com/doipkit/doipkit/pkg/doiperrors"
	"github.com/doipkit/doipkit/pkg/exprctx"
	"github.com/doipkit/doipkit/pkg/scenario"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
	"github.com/doipkit/doipkit/pkg/uds"
)

// abortSignal is a sentinel error used internally to unwind the step
// loop when AbortIfNrc matches or a WhileLoop body aborts. It is never
// returned to the caller of [Executor.Run]; Run converts it to a nil
// error, so an aborted run and a completed run return the same value.
type abortSignal struct{}

func (abortSignal) Error() string { return "scenario aborted" }

// Executor interprets a scenario program against a live DoIP session.
// It is the sole writer of the last-reply and expression-context
// state (spec.md §4.4); it is not safe for concurrent use.
type Executor struct {
	expr   *exprctx.Context
	fs     fsx.FS
	stdout io.Writer
	logger *slog.Logger

	targetLA uint16
	tx       chan<- scenariomsg.Message
	rx       <-chan scenariomsg.Message

	lastReply uds.Message
}

// New constructs an Executor. tx is the bounded request queue the
// multiplexer drains (capacity 1); rx is the bounded response queue
// the multiplexer feeds (capacity 3), per spec.md §4.3. If logger is
// nil, logging is disabled.
func New(expr *exprctx.Context, fsys fsx.FS, stdout io.Writer, targetLA uint16,
	tx chan<- scenariomsg.Message, rx <-chan scenariomsg.Message, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		expr:      expr,
		fs:        fsys,
		stdout:    stdout,
		logger:    logger,
		targetLA:  targetLA,
		tx:        tx,
		rx:        rx,
		lastReply: uds.RawUds{},
	}
}

// Run interprets steps in order, returning when the list is exhausted
// or a step signals abort. It returns a non-nil error only when a step
// fails outright (spec.md §7: the executor propagates step errors).
func (e *Executor) Run(ctx context.Context, steps scenario.StepList) error {
	err := e.execList(ctx, steps)
	if _, ok := err.(abortSignal); ok {
		return nil
	}
	return err
}

// execList runs steps in order. A non-nil, non-abortSignal error
// propagates immediately; an abortSignal propagates up through nested
// WhileLoop bodies so the whole call chain unwinds cleanly.
func (e *Executor) execList(ctx context.Context, steps scenario.StepList) error {
	for _, step := range steps {
		if err := e.execStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) execStep(ctx context.Context, step scenario.Step) error {
	switch s := step.(type) {
	case scenario.AbortIfNrc:
		return e.execAbortIfNrc(s)

	case scenario.DisconnectDoIp:
		return e.execDisconnectDoIp(ctx, s)

	case scenario.EvalExpr:
		if err := e.expr.EvalVoid(s.Expression); err != nil {
			return err
		}
		return nil

	case scenario.PrintLastReply:
		fmt.Fprintf(e.stdout, "%s\n", uds.String(e.lastReply))
		return nil

	case scenario.RawUds:
		data, err := e.resolveByteSource(s.Data)
		if err != nil {
			return err
		}
		return e.requestResponse(ctx, uds.RawUds{Data: data})

	case scenario.ReadDID:
		return e.requestResponse(ctx, uds.ReadDIDReq{DID: s.DID})

	case scenario.WriteDID:
		data, err := e.resolveByteSource(s.Data)
		if err != nil {
			return err
		}
		return e.requestResponse(ctx, uds.WriteDIDReq{DID: s.DID, UserData: data})

	case scenario.ReadSupportedDTC:
		return e.requestResponse(ctx, uds.ReadDTCReq{Sub: uds.SubReportSupportedDTC})

	case scenario.SleepMs:
		return e.execSleepMs(ctx, s)

	case scenario.WhileLoop:
		return e.execWhileLoop(ctx, s)

	case scenario.TransferDownload:
		return e.execTransferDownload(ctx, s)

	default:
		return fmt.Errorf("executor: unknown step type %T", step)
	}
}

// execAbortIfNrc returns [abortSignal] when the last reply is an NRC
// and either s.Nrc is nil (any NRC aborts) or the reply's code matches
// *s.Nrc; otherwise it continues.
func (e *Executor) execAbortIfNrc(s scenario.AbortIfNrc) error {
	nrc, ok := e.lastReply.(uds.Nrc)
	if !ok {
		return nil
	}
	if s.Nrc == nil || *s.Nrc == nrc.Code {
		return abortSignal{}
	}
	return nil
}

func (e *Executor) execDisconnectDoIp(ctx context.Context, s scenario.DisconnectDoIp) error {
	if err := e.send(ctx, scenariomsg.DisconnectReconnectReq{}); err != nil {
		return err
	}
	if s.WaitAfterMs != nil {
		if err := e.sleep(ctx, *s.WaitAfterMs); err != nil {
			return err
		}
	}
	for {
		msg, err := e.receive(ctx)
		if err != nil {
			return err
		}
		if _, ok := msg.(scenariomsg.NotifyDoIpCnxRoutingAck); ok {
			return nil
		}
		// intervening messages (NotifyNewDoIpCnx, stray keepalives) discarded
	}
}

func (e *Executor) execWhileLoop(ctx context.Context, s scenario.WhileLoop) error {
	for {
		cond, err := e.expr.EvalBool(s.Condition)
		if err != nil {
			return err
		}
		if !cond {
			return nil
		}
		if err := e.execList(ctx, s.Steps); err != nil {
			return err
		}
	}
}

// execSleepMs blocks for n milliseconds, replying to alive-check
// keepalives observed meanwhile and discarding anything else. The
// deadline is computed once and never re-extended, per spec.md §4.4.
func (e *Executor) execSleepMs(ctx context.Context, s scenario.SleepMs) error {
	return e.sleep(ctx, s.Ms)
}

func (e *Executor) sleep(ctx context.Context, ms uint32) error {
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case msg := <-e.rx:
			timer.Stop()
			if _, ok := msg.(scenariomsg.AliveCheckReq); ok {
				if err := e.send(ctx, scenariomsg.AliveCheckRsp{}); err != nil {
					return err
				}
			}
			// any other message observed during sleep is discarded
		}
	}
}

// requestResponse runs one UDS request/response exchange: normalize
// the request to its most specific typed variant, send it, then wait
// for the committed reply, replying to alive-check challenges and
// waiting through "response pending" (0x78) along the way.
func (e *Executor) requestResponse(ctx context.Context, req uds.Message) error {
	req = uds.TryTyped(req)
	if err := e.send(ctx, scenariomsg.Uds{Msg: req}); err != nil {
		return err
	}
	for {
		msg, err := e.receive(ctx)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case scenariomsg.AliveCheckReq:
			if err := e.send(ctx, scenariomsg.AliveCheckRsp{}); err != nil {
				return err
			}
		case scenariomsg.Uds:
			if nrc, ok := m.Msg.(uds.Nrc); ok && nrc.Code == uds.NRCResponsePending {
				continue
			}
			e.commitReply(m.Msg)
			reqBytes, _ := uds.Encode(req)
			if nrc, ok := m.Msg.(uds.Nrc); ok {
				e.logger.Info("uds exchange", "sid", req.SID(),
					"requestBytes", fmt.Sprintf("% x", reqBytes), "nrc", nrc.Code)
			} else {
				replyBytes, _ := uds.Encode(m.Msg)
				e.logger.Info("uds exchange", "sid", req.SID(),
					"requestBytes", fmt.Sprintf("% x", reqBytes), "replyBytes", fmt.Sprintf("% x", replyBytes))
			}
			return nil
		default:
			// notifications and anything else outside an exchange are ignored
		}
	}
}

func (e *Executor) commitReply(reply uds.Message) {
	e.lastReply = reply
	replyBytes, err := uds.Encode(reply)
	if err != nil {
		replyBytes = nil
	}
	e.expr.SetReply(replyBytes)
}

// expectReply accepts when the last reply's SID equals reqSID|0x40; an
// NRC reply fails with [doiperrors.ErrNrc]; anything else fails with
// [doiperrors.ErrUnexpectedUdsMessage].
func (e *Executor) expectReply(reqSID byte) error {
	if nrc, ok := e.lastReply.(uds.Nrc); ok {
		return &doiperrors.ErrNrc{Code: nrc.Code}
	}
	if e.lastReply.SID() == (reqSID | uds.PositiveResponseMask) {
		return nil
	}
	return &doiperrors.ErrUnexpectedUdsMessage{Msg: uds.String(e.lastReply)}
}

func (e *Executor) resolveByteSource(bs scenario.ByteSource) ([]byte, error) {
	switch v := bs.(type) {
	case scenario.Bytes:
		return v.Data, nil
	case scenario.BinFileName:
		data, err := fsx.ReadFile(e.fs, v.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", doiperrors.ErrIo, err)
		}
		return data, nil
	case scenario.EvalExprVarname:
		return e.expr.GetTupleVariable(v.Name)
	default:
		return nil, fmt.Errorf("executor: unknown byte source %T", bs)
	}
}

func (e *Executor) send(ctx context.Context, msg scenariomsg.Message) error {
	select {
	case e.tx <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) receive(ctx context.Context) (scenariomsg.Message, error) {
	select {
	case msg, ok := <-e.rx:
		if !ok {
			return nil, doiperrors.ErrNetworkConnectorDead
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
