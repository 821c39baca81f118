// SPDX-License-Identifier: GPL-3.0-or-later

package doip

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDiagnosticMessage(t *testing.T) {
	msg := DiagnosticMessage{SourceAddress: 0xe080, TargetAddress: 0x00ed, Data: []byte{0x22, 0xf1, 0x90}}
	frame, err := Encode(msg)
	require.NoError(t, err)

	got, _, err := ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestEncodeDecodeRoutingActivationRequest(t *testing.T) {
	msg := RoutingActivationRequest{SourceAddress: 0xe080, ActivationType: 0x00}
	frame, err := Encode(msg)
	require.NoError(t, err)
	require.Equal(t, ProtocolVersion, frame[0])
	require.Equal(t, InverseProtocolVersion, frame[1])

	got, _, err := ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestReadMessageReusesBuffer(t *testing.T) {
	msg := DiagnosticMessage{SourceAddress: 1, TargetAddress: 2, Data: []byte{1, 2, 3, 4, 5}}
	frame, err := Encode(msg)
	require.NoError(t, err)

	buf := make([]byte, 0, 64)
	got, retBuf, err := ReadMessage(bytes.NewReader(frame), buf)
	require.NoError(t, err)
	require.Equal(t, msg, got)
	require.Equal(t, 64, cap(retBuf), "buffer capacity should be reused, not reallocated")
}

func TestReadMessageBadVersion(t *testing.T) {
	frame := []byte{0x01, 0xfe, 0x00, 0x07, 0x00, 0x00, 0x00, 0x00}
	_, _, err := ReadMessage(bytes.NewReader(frame), nil)
	require.Error(t, err)
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, AliveCheckResponse{SourceAddress: 0xe080})
	require.NoError(t, err)

	got, _, err := ReadMessage(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, AliveCheckResponse{SourceAddress: 0xe080}, got)
}

func TestEncodeDecodeRoutingActivationResponse(t *testing.T) {
	msg := RoutingActivationResponse{TesterAddress: 0xe080, EntityAddress: 0x00ed, ResponseCode: RoutingActivationSuccess}
	frame, err := Encode(msg)
	require.NoError(t, err)

	got, _, err := ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestEncodeDecodeDiagnosticMessageAckNack(t *testing.T) {
	ack := DiagnosticMessageAck{SourceAddress: 0x00ed, TargetAddress: 0xe080, AckCode: 0}
	frame, err := Encode(ack)
	require.NoError(t, err)
	got, _, err := ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, ack, got)

	nack := DiagnosticMessageNack{SourceAddress: 0x00ed, TargetAddress: 0xe080, NackCode: 0x02}
	frame, err = Encode(nack)
	require.NoError(t, err)
	got, _, err = ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, nack, got)
}

func TestEncodeDecodeVehicleIdentification(t *testing.T) {
	req := VehicleIdentificationRequest{}
	frame, err := Encode(req)
	require.NoError(t, err)
	got, _, err := ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, req, got)

	resp := VehicleIdentificationResponse{LogicalAddress: 0x00ed, FurtherAction: 0x10}
	copy(resp.VIN[:], "VF1XR210FSTGBEN04")
	frame, err = Encode(resp)
	require.NoError(t, err)
	got, _, err = ReadMessage(bytes.NewReader(frame), nil)
	require.NoError(t, err)
	require.Equal(t, resp, got)
}
