// SPDX-License-Identifier: GPL-3.0-or-later

package doip

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/doipkit/doipkit/pkg/doiperrors"
)

// Encode serializes msg as a complete DoIP frame: the 8-byte generic
// header followed by the payload.
func Encode(msg Message) ([]byte, error) {
	payload, err := encodePayload(msg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, HeaderLength+len(payload))
	out[0] = ProtocolVersion
	out[1] = InverseProtocolVersion
	binary.BigEndian.PutUint16(out[2:4], uint16(msg.PayloadType()))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[HeaderLength:], payload)
	return out, nil
}

func encodePayload(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case VehicleIdentificationRequest:
		return nil, nil

	case VehicleIdentificationResponse:
		out := make([]byte, 32)
		copy(out[0:17], m.VIN[:])
		binary.BigEndian.PutUint16(out[17:19], m.LogicalAddress)
		copy(out[19:25], m.EID[:])
		copy(out[25:31], m.GID[:])
		out[31] = m.FurtherAction
		return out, nil

	case RoutingActivationRequest:
		out := make([]byte, 7)
		binary.BigEndian.PutUint16(out[0:2], m.SourceAddress)
		out[2] = m.ActivationType
		return out, nil

	case AliveCheckResponse:
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out[0:2], m.SourceAddress)
		return out, nil

	case AliveCheckRequest:
		return nil, nil

	case DiagnosticMessage:
		out := make([]byte, 4+len(m.Data))
		binary.BigEndian.PutUint16(out[0:2], m.SourceAddress)
		binary.BigEndian.PutUint16(out[2:4], m.TargetAddress)
		copy(out[4:], m.Data)
		return out, nil

	case RoutingActivationResponse:
		out := make([]byte, 9)
		binary.BigEndian.PutUint16(out[0:2], m.TesterAddress)
		binary.BigEndian.PutUint16(out[2:4], m.EntityAddress)
		out[4] = m.ResponseCode
		return out, nil

	case DiagnosticMessageAck:
		out := make([]byte, 5)
		binary.BigEndian.PutUint16(out[0:2], m.SourceAddress)
		binary.BigEndian.PutUint16(out[2:4], m.TargetAddress)
		out[4] = m.AckCode
		return out, nil

	case DiagnosticMessageNack:
		out := make([]byte, 5)
		binary.BigEndian.PutUint16(out[0:2], m.SourceAddress)
		binary.BigEndian.PutUint16(out[2:4], m.TargetAddress)
		out[4] = m.NackCode
		return out, nil

	default:
		return nil, fmt.Errorf("%w: cannot encode %T", doiperrors.ErrUdsCodec, msg)
	}
}

// decodePayload parses a payload of the given type. Unsupported types
// return an error; the caller (ReadMessage) maps this to a transport
// fault per spec.
func decodePayload(pt PayloadType, data []byte) (Message, error) {
	switch pt {
	case TypeVehicleIdentificationRequest:
		return VehicleIdentificationRequest{}, nil

	case TypeVehicleIdentificationResponse:
		if len(data) < 32 {
			return nil, fmt.Errorf("%w: short vehicle identification response", doiperrors.ErrUdsCodec)
		}
		var resp VehicleIdentificationResponse
		copy(resp.VIN[:], data[0:17])
		resp.LogicalAddress = binary.BigEndian.Uint16(data[17:19])
		copy(resp.EID[:], data[19:25])
		copy(resp.GID[:], data[25:31])
		resp.FurtherAction = data[31]
		return resp, nil

	case TypeRoutingActivationResponse:
		if len(data) < 5 {
			return nil, fmt.Errorf("%w: short routing activation response", doiperrors.ErrUdsCodec)
		}
		return RoutingActivationResponse{
			TesterAddress: binary.BigEndian.Uint16(data[0:2]),
			EntityAddress: binary.BigEndian.Uint16(data[2:4]),
			ResponseCode:  data[4],
		}, nil

	case TypeAliveCheckRequest:
		return AliveCheckRequest{}, nil

	case TypeAliveCheckResponse:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: short alive check response", doiperrors.ErrUdsCodec)
		}
		return AliveCheckResponse{SourceAddress: binary.BigEndian.Uint16(data[0:2])}, nil

	case TypeDiagnosticMessage:
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: short diagnostic message", doiperrors.ErrUdsCodec)
		}
		return DiagnosticMessage{
			SourceAddress: binary.BigEndian.Uint16(data[0:2]),
			TargetAddress: binary.BigEndian.Uint16(data[2:4]),
			Data:          append([]byte(nil), data[4:]...),
		}, nil

	case TypeDiagnosticMessageAck:
		if len(data) < 5 {
			return nil, fmt.Errorf("%w: short diagnostic message ack", doiperrors.ErrUdsCodec)
		}
		return DiagnosticMessageAck{
			SourceAddress: binary.BigEndian.Uint16(data[0:2]),
			TargetAddress: binary.BigEndian.Uint16(data[2:4]),
			AckCode:       data[4],
		}, nil

	case TypeDiagnosticMessageNack:
		if len(data) < 5 {
			return nil, fmt.Errorf("%w: short diagnostic message nack", doiperrors.ErrUdsCodec)
		}
		return DiagnosticMessageNack{
			SourceAddress: binary.BigEndian.Uint16(data[0:2]),
			TargetAddress: binary.BigEndian.Uint16(data[2:4]),
			NackCode:      data[4],
		}, nil

	case TypeRoutingActivationRequest:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: short routing activation request", doiperrors.ErrUdsCodec)
		}
		return RoutingActivationRequest{
			SourceAddress:  binary.BigEndian.Uint16(data[0:2]),
			ActivationType: data[2],
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown DoIP payload type 0x%04x", doiperrors.ErrUdsCodec, pt)
	}
}

// ReadMessage reads one complete DoIP frame from r, reusing buf as
// scratch storage for the payload. It returns the decoded message and
// the (possibly regrown) buffer so the caller can reinstall it for the
// next call, amortizing allocations to O(largest message seen).
func ReadMessage(r io.Reader, buf []byte) (Message, []byte, error) {
	var header [HeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, buf, fmt.Errorf("%w: %w", doiperrors.ErrNetworkConnectorDead, err)
	}
	if header[0] != ProtocolVersion || header[1] != InverseProtocolVersion {
		return nil, buf, fmt.Errorf("%w: bad protocol version header", doiperrors.ErrUdsCodec)
	}
	pt := PayloadType(binary.BigEndian.Uint16(header[2:4]))
	length := binary.BigEndian.Uint32(header[4:8])

	buf = growBuffer(buf, int(length))
	payload := buf[:length]
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, buf, fmt.Errorf("%w: %w", doiperrors.ErrNetworkConnectorDead, err)
		}
	}

	msg, err := decodePayload(pt, payload)
	if err != nil {
		return nil, buf, fmt.Errorf("%w: %w", doiperrors.ErrNetworkConnectorDead, err)
	}
	return msg, buf, nil
}

// WriteMessage encodes msg and writes it to w in one call.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// growBuffer returns a slice backed by buf with length n, reusing buf's
// capacity when it suffices and reallocating only when it must.
func growBuffer(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}
