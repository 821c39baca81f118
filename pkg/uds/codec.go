// SPDX-License-Identifier: GPL-3.0-or-later

package uds

import (
	"fmt"

	"github.com/doipkit/doipkit/pkg/doiperrors"
)

// Encode serializes msg to the raw bytes carried inside a DoIP
// diagnostic-message payload.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case RawUds:
		return append([]byte(nil), m.Data...), nil

	case ReadDIDReq:
		return []byte{SIDReadDataByIdentifier, byte(m.DID >> 8), byte(m.DID)}, nil

	case WriteDIDReq:
		out := []byte{SIDWriteDataByIdentifier, byte(m.DID >> 8), byte(m.DID)}
		return append(out, m.UserData...), nil

	case ReadDTCReq:
		return []byte{SIDReadDTCInformation, m.Sub}, nil

	case RequestDownloadReq:
		if m.AddrSizeBytes == 0 || m.AddrSizeBytes > 8 || m.SizeSizeBytes == 0 || m.SizeSizeBytes > 8 {
			return nil, fmt.Errorf("%w: invalid address/size byte count", doiperrors.ErrUdsCodec)
		}
		out := make([]byte, 0, 3+int(m.AddrSizeBytes)+int(m.SizeSizeBytes))
		out = append(out, SIDRequestDownload)
		out = append(out, (m.CompressionMethod<<4)|m.EncryptionMethod)
		out = append(out, (m.SizeSizeBytes<<4)|m.AddrSizeBytes)
		out = append(out, beTrunc(m.MemoryAddress, m.AddrSizeBytes)...)
		out = append(out, beTrunc(m.MemorySize, m.SizeSizeBytes)...)
		return out, nil

	case TransferDataReq:
		out := []byte{SIDTransferData, m.BlockSequenceCounter}
		return append(out, m.Data...), nil

	case TransferExitReq:
		out := []byte{SIDRequestTransferExit}
		return append(out, m.UserData...), nil

	case ReadDIDRsp:
		out := []byte{SIDReadDataByIdentifier | PositiveResponseMask, byte(m.DID >> 8), byte(m.DID)}
		return append(out, m.Data...), nil

	case WriteDIDRsp:
		return []byte{SIDWriteDataByIdentifier | PositiveResponseMask, byte(m.DID >> 8), byte(m.DID)}, nil

	case ReadDTCRsp:
		out := []byte{SIDReadDTCInformation | PositiveResponseMask, m.Sub}
		return append(out, m.Data...), nil

	case RequestDownloadRsp:
		return []byte{SIDRequestDownload | PositiveResponseMask, 0x20, byte(m.MaxBlockSize >> 8), byte(m.MaxBlockSize)}, nil

	case TransferDataRsp:
		out := []byte{SIDTransferData | PositiveResponseMask, m.BlockSequenceCounter}
		return append(out, m.Data...), nil

	case TransferExitRsp:
		out := []byte{SIDRequestTransferExit | PositiveResponseMask}
		return append(out, m.UserData...), nil

	case Nrc:
		return []byte{SIDNegativeResponse, m.RequestSID, m.Code}, nil

	default:
		return nil, fmt.Errorf("%w: cannot encode %T as a request", doiperrors.ErrUdsCodec, msg)
	}
}

// Decode parses raw bytes into the most specific [Message] variant it
// recognizes, falling back to [RawUds] for anything else.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty message", doiperrors.ErrUdsCodec)
	}

	sid := data[0]
	switch sid {
	case SIDNegativeResponse:
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: malformed negative response", doiperrors.ErrUdsCodec)
		}
		return Nrc{RequestSID: data[1], Code: data[2]}, nil

	case SIDReadDataByIdentifier | PositiveResponseMask:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: short ReadDID response", doiperrors.ErrUdsCodec)
		}
		return ReadDIDRsp{DID: be16(data[1], data[2]), Data: append([]byte(nil), data[3:]...)}, nil

	case SIDWriteDataByIdentifier | PositiveResponseMask:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: short WriteDID response", doiperrors.ErrUdsCodec)
		}
		return WriteDIDRsp{DID: be16(data[1], data[2])}, nil

	case SIDReadDTCInformation | PositiveResponseMask:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: short ReadDTC response", doiperrors.ErrUdsCodec)
		}
		return ReadDTCRsp{Sub: data[1], Data: append([]byte(nil), data[2:]...)}, nil

	case SIDRequestDownload | PositiveResponseMask:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: short RequestDownload response", doiperrors.ErrUdsCodec)
		}
		n := int(data[1] >> 4)
		if n == 0 || len(data) != 2+n || n > 8 {
			return nil, fmt.Errorf("%w: malformed RequestDownload length format", doiperrors.ErrUdsCodec)
		}
		var maxBlockSize uint64
		for _, b := range data[2 : 2+n] {
			maxBlockSize = (maxBlockSize << 8) | uint64(b)
		}
		return RequestDownloadRsp{MaxBlockSize: uint16(maxBlockSize)}, nil

	case SIDTransferData | PositiveResponseMask:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: short TransferData response", doiperrors.ErrUdsCodec)
		}
		return TransferDataRsp{BlockSequenceCounter: data[1], Data: append([]byte(nil), data[2:]...)}, nil

	case SIDRequestTransferExit | PositiveResponseMask:
		return TransferExitRsp{UserData: append([]byte(nil), data[1:]...)}, nil

	case SIDReadDataByIdentifier:
		if len(data) != 3 {
			return RawUds{Data: data}, nil
		}
		return ReadDIDReq{DID: be16(data[1], data[2])}, nil

	case SIDWriteDataByIdentifier:
		if len(data) < 3 {
			return RawUds{Data: data}, nil
		}
		return WriteDIDReq{DID: be16(data[1], data[2]), UserData: append([]byte(nil), data[3:]...)}, nil

	case SIDReadDTCInformation:
		if len(data) != 2 {
			return RawUds{Data: data}, nil
		}
		return ReadDTCReq{Sub: data[1]}, nil

	case SIDTransferData:
		if len(data) < 2 {
			return RawUds{Data: data}, nil
		}
		return TransferDataReq{BlockSequenceCounter: data[1], Data: append([]byte(nil), data[2:]...)}, nil

	case SIDRequestTransferExit:
		return TransferExitReq{UserData: append([]byte(nil), data[1:]...)}, nil

	default:
		return RawUds{Data: append([]byte(nil), data...)}, nil
	}
}

// TryTyped re-decodes msg if it is [RawUds], returning the most
// specific variant the codec recognizes. Any other variant, or a raw
// message the codec fails to parse, is returned unchanged.
func TryTyped(msg Message) Message {
	raw, ok := msg.(RawUds)
	if !ok {
		return msg
	}
	decoded, err := Decode(raw.Data)
	if err != nil {
		return msg
	}
	return decoded
}

func be16(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// beTrunc renders v as n big-endian bytes, truncating any higher-order
// bits that don't fit (n is caller-validated to be in 1..8).
func beTrunc(v uint64, n byte) []byte {
	out := make([]byte, n)
	for i := int(n) - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
