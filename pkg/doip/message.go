// SPDX-License-Identifier: GPL-3.0-or-later

// Package doip implements the DoIP (ISO 13400-2) wire framing: generic
// header parsing, routing activation, alive-check, and diagnostic
// message payloads. It does not interpret diagnostic payload bytes —
// that is the UDS codec's job (see package uds).
//
// This is an out-of-scope collaborator per the core specification
// ("the DoIP wire codec ... specified only via the interfaces the core
// consumes"); it is hand-written because no retrieved example repository
// speaks DoIP.
package doip

import "fmt"

// ProtocolVersion and InverseProtocolVersion are the two header bytes
// ISO 13400-2 uses to sanity-check framing; every message we emit or
// accept carries this version pair.
const (
	ProtocolVersion        byte = 0x02
	InverseProtocolVersion byte = 0xfd
)

// PayloadType identifies the kind of DoIP payload carried after the
// 8-byte generic header.
type PayloadType uint16

const (
	TypeVehicleIdentificationRequest  PayloadType = 0x0001
	TypeVehicleIdentificationResponse PayloadType = 0x0004
	TypeRoutingActivationRequest      PayloadType = 0x0005
	TypeRoutingActivationResponse     PayloadType = 0x0006
	TypeAliveCheckRequest             PayloadType = 0x0007
	TypeAliveCheckResponse            PayloadType = 0x0008
	TypeDiagnosticMessage             PayloadType = 0x8001
	TypeDiagnosticMessageAck          PayloadType = 0x8002
	TypeDiagnosticMessageNack         PayloadType = 0x8003
)

// RoutingActivationSuccess is the response code indicating the
// requested logical address was successfully activated for routing.
const RoutingActivationSuccess byte = 0x10

// HeaderLength is the size, in bytes, of the generic DoIP header.
const HeaderLength = 8

// Message is the tagged variant of DoIP payloads this package knows
// how to encode and decode.
type Message interface {
	PayloadType() PayloadType
	isMessage()
}

// VehicleIdentificationRequest is the UDP broadcast used to discover
// ECUs on the local network; it carries no payload.
type VehicleIdentificationRequest struct{}

func (VehicleIdentificationRequest) PayloadType() PayloadType {
	return TypeVehicleIdentificationRequest
}
func (VehicleIdentificationRequest) isMessage() {}

// VehicleIdentificationResponse announces one ECU in reply to a
// [VehicleIdentificationRequest].
type VehicleIdentificationResponse struct {
	VIN            [17]byte
	LogicalAddress uint16
	EID            [6]byte
	GID            [6]byte
	FurtherAction  byte
}

func (VehicleIdentificationResponse) PayloadType() PayloadType {
	return TypeVehicleIdentificationResponse
}
func (VehicleIdentificationResponse) isMessage() {}

// RoutingActivationRequest asks the ECU to authorize SourceAddress to
// exchange diagnostic messages over this TCP connection.
type RoutingActivationRequest struct {
	SourceAddress  uint16
	ActivationType byte
}

func (RoutingActivationRequest) PayloadType() PayloadType { return TypeRoutingActivationRequest }
func (RoutingActivationRequest) isMessage()                {}

// RoutingActivationResponse is the ECU's reply to a
// [RoutingActivationRequest]. ResponseCode equal to
// [RoutingActivationSuccess] indicates the connection is now routed.
type RoutingActivationResponse struct {
	TesterAddress uint16
	EntityAddress uint16
	ResponseCode  byte
}

func (RoutingActivationResponse) PayloadType() PayloadType { return TypeRoutingActivationResponse }
func (RoutingActivationResponse) isMessage()                {}

// AliveCheckRequest is a keepalive challenge, normally issued by the
// ECU to the client.
type AliveCheckRequest struct{}

func (AliveCheckRequest) PayloadType() PayloadType { return TypeAliveCheckRequest }
func (AliveCheckRequest) isMessage()                {}

// AliveCheckResponse answers an [AliveCheckRequest], proving
// liveness of SourceAddress.
type AliveCheckResponse struct {
	SourceAddress uint16
}

func (AliveCheckResponse) PayloadType() PayloadType { return TypeAliveCheckResponse }
func (AliveCheckResponse) isMessage()                {}

// DiagnosticMessage carries a UDS request or response between
// SourceAddress and TargetAddress.
type DiagnosticMessage struct {
	SourceAddress uint16
	TargetAddress uint16
	Data          []byte
}

func (DiagnosticMessage) PayloadType() PayloadType { return TypeDiagnosticMessage }
func (DiagnosticMessage) isMessage()                {}

// DiagnosticMessageAck is a positive link-layer acknowledgement of a
// [DiagnosticMessage]; it does not carry a UDS reply.
type DiagnosticMessageAck struct {
	SourceAddress uint16
	TargetAddress uint16
	AckCode       byte
}

func (DiagnosticMessageAck) PayloadType() PayloadType { return TypeDiagnosticMessageAck }
func (DiagnosticMessageAck) isMessage()                {}

// DiagnosticMessageNack is a negative link-layer acknowledgement of a
// [DiagnosticMessage].
type DiagnosticMessageNack struct {
	SourceAddress uint16
	TargetAddress uint16
	NackCode      byte
}

func (DiagnosticMessageNack) PayloadType() PayloadType { return TypeDiagnosticMessageNack }
func (DiagnosticMessageNack) isMessage()                {}

// String renders msg for structured logging.
func String(msg Message) string {
	switch m := msg.(type) {
	case VehicleIdentificationResponse:
		return fmt.Sprintf("VehicleIdentificationResponse(vin=%q la=0x%04x)", m.VIN, m.LogicalAddress)
	case RoutingActivationResponse:
		return fmt.Sprintf("RoutingActivationResponse(tester=0x%04x entity=0x%04x code=0x%02x)",
			m.TesterAddress, m.EntityAddress, m.ResponseCode)
	case DiagnosticMessage:
		return fmt.Sprintf("DiagnosticMessage(sa=0x%04x ta=0x%04x % x)", m.SourceAddress, m.TargetAddress, m.Data)
	case DiagnosticMessageAck:
		return fmt.Sprintf("DiagnosticMessageAck(sa=0x%04x ta=0x%04x code=0x%02x)", m.SourceAddress, m.TargetAddress, m.AckCode)
	case DiagnosticMessageNack:
		return fmt.Sprintf("DiagnosticMessageNack(sa=0x%04x ta=0x%04x code=0x%02x)", m.SourceAddress, m.TargetAddress, m.NackCode)
	default:
		return fmt.Sprintf("%#v", msg)
	}
}
