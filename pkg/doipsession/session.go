// SPDX-License-Identifier: GPL-3.0-or-later

// Package doipsession owns the TCP connection to an ECU, the current
// routing-activation state, and the reusable byte buffers the DoIP
// codec reads and writes into. It translates between high-level
// scenario messages (package scenariomsg) and the DoIP wire codec
// (package doip).
//
// Grounded on the teacher's pkg/cli/nc/task.go dial/timeout shape; the
// dial goes through the internal/testable DialContext provider, which
// tests can override. The DoIP framing itself has no teacher
// counterpart (see DESIGN.md).
package doipsession

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/doipkit/doipkit/internal/testable"
	"github.com/doipkit/doipkit/pkg/doip"
	"github.com/doipkit/doipkit/pkg/doiperrors"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
	"github.com/doipkit/doipkit/pkg/uds"
)

// Default timeouts per spec.md §4.2: 1 second each for TCP connect,
// routing-activation response, and UDS send/ack.
const (
	ConnectTimeout    = 1 * time.Second
	ActivationTimeout = 1 * time.Second
	SendTimeout       = 1 * time.Second
)

// notifyState models the small state machine serializing the two
// post-reconnect notifications, per spec.md §9: explicit states
// instead of ad-hoc booleans, so the invariant (NotifyNewDoIpCnx
// always precedes NotifyDoIpCnxRoutingAck) is directly testable.
type notifyState int

const (
	notifyIdle notifyState = iota
	notifyNewCnxPending
	notifyRoutedAckPending
)

// Session is a live (or momentarily reconnecting) DoIP session.
//
// Session is owned exclusively by the multiplexer task; it is not
// safe for concurrent use from multiple goroutines.
type Session struct {
	remoteAddr string
	localLA    uint16

	conn net.Conn

	notify notifyState

	recvBuf []byte
	ackBuf  []byte
}

// Connect opens a TCP connection to remoteAddr and performs the DoIP
// routing-activation handshake as localLA. localAddr is not used: the
// connection is not bound to it, and the operating system picks the
// local address.
func Connect(ctx context.Context, localAddr, remoteAddr string, localLA uint16) (*Session, error) {
	s := &Session{remoteAddr: remoteAddr, localLA: localLA}
	if err := s.dialAndActivate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) dialAndActivate(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, err := testable.DialContext.Get()(dialCtx, "tcp", s.remoteAddr)
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %w", doiperrors.ErrNetworkConnectorDead, s.remoteAddr, err)
	}
	s.conn = conn

	if err := s.activateRouting(ctx); err != nil {
		conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Session) activateRouting(ctx context.Context) error {
	deadline := time.Now().Add(ActivationTimeout)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrRoutingActivationFailed, err)
	}
	req := doip.RoutingActivationRequest{SourceAddress: s.localLA, ActivationType: 0x00}
	if err := doip.WriteMessage(s.conn, req); err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrRoutingActivationFailed, err)
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrRoutingActivationFailed, err)
	}
	msg, buf, err := doip.ReadMessage(s.conn, s.ackBuf)
	s.ackBuf = buf
	if err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrRoutingActivationFailed, err)
	}
	resp, ok := msg.(doip.RoutingActivationResponse)
	if !ok || resp.ResponseCode != doip.RoutingActivationSuccess {
		return fmt.Errorf("%w: response %s", doiperrors.ErrRoutingActivationFailed, doip.String(msg))
	}
	return nil
}

// Reconnect drops the current connection and re-establishes it with
// the session's stored parameters, arming the post-reconnect
// notification sequence.
func (s *Session) Reconnect(ctx context.Context) error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if err := s.dialAndActivate(ctx); err != nil {
		return err
	}
	s.notify = notifyNewCnxPending
	return nil
}

// Close releases the underlying TCP connection.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// SendScenario translates msg into the DoIP wire protocol and sends
// it to targetLA.
func (s *Session) SendScenario(ctx context.Context, targetLA uint16, msg scenariomsg.Message) error {
	switch m := msg.(type) {
	case scenariomsg.Uds:
		return s.sendUds(targetLA, m.Msg)

	case scenariomsg.AliveCheckRsp:
		if err := s.conn.SetWriteDeadline(time.Now().Add(SendTimeout)); err != nil {
			return fmt.Errorf("%w: %w", doiperrors.ErrNetworkConnectorDead, err)
		}
		if err := doip.WriteMessage(s.conn, doip.AliveCheckResponse{SourceAddress: s.localLA}); err != nil {
			return fmt.Errorf("%w: %w", doiperrors.ErrNetworkConnectorDead, err)
		}
		return nil

	case scenariomsg.DisconnectReconnectReq:
		return s.Reconnect(ctx)

	case scenariomsg.AliveCheckReq, scenariomsg.NotifyNewDoIpCnx, scenariomsg.NotifyDoIpCnxRoutingAck:
		return nil

	default:
		return fmt.Errorf("%w: cannot send scenario message %T", doiperrors.ErrNetworkConnectorDead, msg)
	}
}

func (s *Session) sendUds(targetLA uint16, m uds.Message) error {
	payload, err := uds.Encode(m)
	if err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrUdsCodec, err)
	}

	deadline := time.Now().Add(SendTimeout)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrIoTimeout, err)
	}
	frame := doip.DiagnosticMessage{SourceAddress: s.localLA, TargetAddress: targetLA, Data: payload}
	if err := doip.WriteMessage(s.conn, frame); err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrIoTimeout, err)
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrIoTimeout, err)
	}
	ack, buf, err := doip.ReadMessage(s.conn, s.ackBuf)
	s.ackBuf = buf
	if err != nil {
		return err
	}
	switch a := ack.(type) {
	case doip.DiagnosticMessageAck:
		return nil
	case doip.DiagnosticMessageNack:
		return fmt.Errorf("%w: diagnostic message nack 0x%02x", doiperrors.ErrNetworkConnectorDead, a.NackCode)
	default:
		return fmt.Errorf("%w: unexpected ack %s", doiperrors.ErrNetworkConnectorDead, doip.String(ack))
	}
}

// RecvScenario returns the next scenario message: any pending
// post-reconnect notification first (NotifyNewDoIpCnx, then
// NotifyDoIpCnxRoutingAck), then the next DoIP message translated to
// its scenario-message form. DoIP acks and routing responses observed
// outside of a send are silently skipped.
func (s *Session) RecvScenario() (scenariomsg.Message, error) {
	switch s.notify {
	case notifyNewCnxPending:
		s.notify = notifyRoutedAckPending
		return scenariomsg.NotifyNewDoIpCnx{}, nil
	case notifyRoutedAckPending:
		s.notify = notifyIdle
		return scenariomsg.NotifyDoIpCnxRoutingAck{}, nil
	}

	for {
		msg, buf, err := doip.ReadMessage(s.conn, s.recvBuf)
		s.recvBuf = buf
		if err != nil {
			return nil, err
		}
		switch m := msg.(type) {
		case doip.AliveCheckRequest:
			return scenariomsg.AliveCheckReq{}, nil
		case doip.AliveCheckResponse:
			return scenariomsg.AliveCheckRsp{}, nil
		case doip.DiagnosticMessage:
			udsMsg, err := uds.Decode(m.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", doiperrors.ErrNetworkConnectorDead, err)
			}
			return scenariomsg.Uds{Msg: uds.TryTyped(udsMsg)}, nil
		default:
			continue
		}
	}
}
