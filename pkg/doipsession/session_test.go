// SPDX-License-Identifier: GPL-3.0-or-later

package doipsession

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doipkit/doipkit/pkg/doip"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
	"github.com/doipkit/doipkit/pkg/uds"
)

// newTestSession wires a [*Session] directly onto one end of an
// in-memory pipe, bypassing Connect/dial/activation so tests can drive
// RecvScenario/SendScenario against a scripted peer.
func newTestSession(conn net.Conn, localLA uint16) *Session {
	return &Session{conn: conn, localLA: localLA}
}

func TestRecvScenarioDrainsNotificationsInOrder(t *testing.T) {
	client, _ := net.Pipe()
	s := newTestSession(client, 0xe080)
	s.notify = notifyNewCnxPending

	msg, err := s.RecvScenario()
	require.NoError(t, err)
	require.Equal(t, scenariomsg.NotifyNewDoIpCnx{}, msg)

	msg, err = s.RecvScenario()
	require.NoError(t, err)
	require.Equal(t, scenariomsg.NotifyDoIpCnxRoutingAck{}, msg)
}

func TestRecvScenarioDecodesDiagnosticMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s := newTestSession(client, 0xe080)

	go func() {
		frame, _ := doip.Encode(doip.DiagnosticMessage{
			SourceAddress: 0x00ed,
			TargetAddress: 0xe080,
			Data:          []byte{0x62, 0xf1, 0x90, 0x56, 0x46},
		})
		server.Write(frame)
	}()

	msg, err := s.RecvScenario()
	require.NoError(t, err)
	got, ok := msg.(scenariomsg.Uds)
	require.True(t, ok)
	require.Equal(t, uds.ReadDIDRsp{DID: 0xf190, Data: []byte{0x56, 0x46}}, got.Msg)
}

func TestRecvScenarioSkipsAcksAndRoutingResponses(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s := newTestSession(client, 0xe080)

	go func() {
		ackFrame, _ := doip.Encode(doip.DiagnosticMessageAck{SourceAddress: 0x00ed, TargetAddress: 0xe080, AckCode: 0})
		server.Write(ackFrame)
		routingFrame, _ := doip.Encode(doip.RoutingActivationResponse{TesterAddress: 0xe080, EntityAddress: 0x00ed, ResponseCode: doip.RoutingActivationSuccess})
		server.Write(routingFrame)
		reqFrame, _ := doip.Encode(doip.AliveCheckRequest{})
		server.Write(reqFrame)
	}()

	msg, err := s.RecvScenario()
	require.NoError(t, err)
	require.Equal(t, scenariomsg.AliveCheckReq{}, msg)
}

func TestSendScenarioAliveCheckRsp(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s := newTestSession(client, 0xe080)

	done := make(chan error, 1)
	go func() { done <- s.SendScenario(nil, 0, scenariomsg.AliveCheckRsp{}) }()

	msg, _, err := doip.ReadMessage(server, nil)
	require.NoError(t, err)
	require.Equal(t, doip.AliveCheckResponse{SourceAddress: 0xe080}, msg)
	require.NoError(t, <-done)
}
