// SPDX-License-Identifier: GPL-3.0-or-later

// Package scenariomsg implements the internal protocol exchanged
// between the step executor and the DoIP session across the two
// bounded queues the multiplexer pumps (spec.md §3, "Scenario
// Message").
package scenariomsg

import "github.com/doipkit/doipkit/pkg/uds"

// Message is the tagged variant of messages flowing between the
// executor and the DoIP session.
type Message interface {
	isMessage()
}

// Uds carries a UDS request (executor to session) or reply (session
// to executor).
type Uds struct {
	Msg uds.Message
}

func (Uds) isMessage() {}

// AliveCheckReq notifies the executor that the ECU issued an
// alive-check challenge.
type AliveCheckReq struct{}

func (AliveCheckReq) isMessage() {}

// AliveCheckRsp asks the session to answer a pending alive-check
// challenge.
type AliveCheckRsp struct{}

func (AliveCheckRsp) isMessage() {}

// DisconnectReconnectReq asks the session to tear down and
// re-establish the DoIP connection.
type DisconnectReconnectReq struct{}

func (DisconnectReconnectReq) isMessage() {}

// NotifyNewDoIpCnx informs the executor a new TCP connection replaced
// the old one.
type NotifyNewDoIpCnx struct{}

func (NotifyNewDoIpCnx) isMessage() {}

// NotifyDoIpCnxRoutingAck informs the executor the new connection
// completed routing activation and is ready for UDS traffic.
type NotifyDoIpCnxRoutingAck struct{}

func (NotifyDoIpCnxRoutingAck) isMessage() {}
