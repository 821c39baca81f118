// SPDX-License-Identifier: GPL-3.0-or-later

// Package doiptest provides an in-process stub ECU speaking the DoIP
// routing-activation handshake and diagnostic-message exchange, for
// exercising the executor/multiplexer/session pipeline end-to-end in
// tests without a real vehicle.
//
// Grounded on the teacher's pkg/dns/dnscoretest server helpers
// (dotcp.go's accept-loop-over-a-real-listener shape and its use of
// github.com/bassosimone/runtimex's Try1/Assert for test-setup
// invariants that should never fail). The original design considered
// building this on github.com/bassosimone/uis's simulated network
// stack (as internal/qacore.go does for the teacher's own QA tests),
// but that stack's API is built around whole-internet DNS/HTTP
// scenarios (stacks, routed frames, a PKI); a single TCP endpoint on
// real loopback gives the same test guarantees for a two-party
// TCP-only protocol like DoIP with far less machinery, so this helper
// uses net.Listen directly and only pulls in runtimex (see DESIGN.md).
package doiptest

import (
	"net"
	"sync"

	"github.com/bassosimone/runtimex"

	"github.com/doipkit/doipkit/pkg/doip"
	"github.com/doipkit/doipkit/pkg/uds"
)

// Responder computes the ECU's reply to a decoded UDS request payload.
type Responder func(req []byte) uds.Message

// DefaultResponder implements the stub ECU response table of spec.md
// §8, used by the end-to-end test scenarios it describes.
func DefaultResponder(req []byte) uds.Message {
	switch {
	case len(req) == 3 && req[0] == 0x22 && req[1] == 0xf0 && req[2] == 0x12:
		return uds.RawUds{Data: []byte{0x62, 0xf0, 0x12, 0x32, 0x36, 0x34, 0x31, 0x33, 0x30, 0x30, 0x35, 0x30, 0x30, 0x52, 0x31}}
	case len(req) == 3 && req[0] == 0x22 && req[1] == 0xf1 && req[2] == 0x90:
		return uds.ReadDIDRsp{DID: 0xf190, Data: []byte("VF1XR210FSTGBEN04")}
	case len(req) >= 1 && req[0] == 0x22:
		return uds.Nrc{RequestSID: 0x22, Code: 0x10}
	case len(req) == 2 && req[0] == 0x19 && req[1] == 0x0a:
		return uds.ReadDTCRsp{Sub: 0x0a, Data: []byte{0xff, 0xea, 0x19, 0x88, 0x00, 0xfd, 0x01, 0x50}}
	case len(req) >= 1 && req[0] == 0x34:
		return uds.RequestDownloadRsp{MaxBlockSize: 0x0ffa}
	case len(req) >= 2 && req[0] == 0x36:
		return uds.TransferDataRsp{BlockSequenceCounter: req[1]}
	case len(req) >= 1 && req[0] == 0x37:
		return uds.TransferExitRsp{}
	default:
		sid := byte(0)
		if len(req) > 0 {
			sid = req[0]
		}
		return uds.Nrc{RequestSID: sid, Code: 0x11}
	}
}

// ECU is a stub DoIP endpoint listening on real TCP loopback.
type ECU struct {
	listener net.Listener
	la       uint16
	respond  Responder

	mu       sync.Mutex
	observed [][]byte
}

// NewECU starts a stub ECU at logical address la, answering diagnostic
// requests with respond (or [DefaultResponder] if nil).
func NewECU(la uint16, respond Responder) *ECU {
	if respond == nil {
		respond = DefaultResponder
	}
	listener := runtimex.Try1(net.Listen("tcp", "127.0.0.1:0"))
	e := &ECU{listener: listener, la: la, respond: respond}
	go e.serve()
	return e
}

// Addr returns the "ip:port" the ECU is listening on.
func (e *ECU) Addr() string {
	return e.listener.Addr().String()
}

// Close stops accepting new connections.
func (e *ECU) Close() error {
	return e.listener.Close()
}

// Observed returns the UDS request payloads seen so far, in order.
func (e *ECU) Observed() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]byte(nil), e.observed...)
}

func (e *ECU) serve() {
	for {
		conn, err := e.listener.Accept()
		if err != nil {
			return
		}
		go e.handle(conn)
	}
}

func (e *ECU) handle(conn net.Conn) {
	defer conn.Close()
	var buf []byte
	for {
		msg, newBuf, err := doip.ReadMessage(conn, buf)
		buf = newBuf
		if err != nil {
			return
		}
		switch m := msg.(type) {
		case doip.RoutingActivationRequest:
			resp := doip.RoutingActivationResponse{
				TesterAddress: m.SourceAddress,
				EntityAddress: e.la,
				ResponseCode:  doip.RoutingActivationSuccess,
			}
			if err := doip.WriteMessage(conn, resp); err != nil {
				return
			}

		case doip.DiagnosticMessage:
			ack := doip.DiagnosticMessageAck{
				SourceAddress: m.TargetAddress,
				TargetAddress: m.SourceAddress,
				AckCode:       0,
			}
			if err := doip.WriteMessage(conn, ack); err != nil {
				return
			}

			e.mu.Lock()
			e.observed = append(e.observed, append([]byte(nil), m.Data...))
			e.mu.Unlock()

			reply := e.respond(m.Data)
			payload, err := uds.Encode(reply)
			runtimex.Assert(err == nil, "doiptest: cannot encode stub ECU reply")
			rspMsg := doip.DiagnosticMessage{
				SourceAddress: m.TargetAddress,
				TargetAddress: m.SourceAddress,
				Data:          payload,
			}
			if err := doip.WriteMessage(conn, rspMsg); err != nil {
				return
			}

		default:
			// anything else observed outside the handshake/exchange is ignored
		}
	}
}
