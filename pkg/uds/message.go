// SPDX-License-Identifier: GPL-3.0-or-later

// Package uds implements the Unified Diagnostic Services request/response
// message model and wire codec consumed by the DoIP session manager.
//
// This codec is an out-of-scope collaborator per the core specification
// (it is "specified only via the interfaces the core consumes"); it is
// hand-written because no retrieved example repository speaks UDS.
package uds

import "fmt"

// Service identifier bytes. A positive response SID equals the request
// SID OR'd with 0x40.
const (
	SIDReadDataByIdentifier  byte = 0x22
	SIDWriteDataByIdentifier byte = 0x2e
	SIDReadDTCInformation    byte = 0x19
	SIDRequestDownload       byte = 0x34
	SIDTransferData          byte = 0x36
	SIDRequestTransferExit   byte = 0x37
	SIDNegativeResponse      byte = 0x7f
)

// PositiveResponseMask is OR'd into a request SID to obtain the
// matching positive response SID.
const PositiveResponseMask byte = 0x40

// NRCResponsePending is the "response pending" negative response code;
// it is waited through rather than surfaced as an error.
const NRCResponsePending byte = 0x78

// SubReportSupportedDTC is the ReadDTCInformation subfunction that
// requests the ECU's full supported-DTC table.
const SubReportSupportedDTC byte = 0x0a

// Message is the tagged variant of UDS requests, responses, and
// negative responses exchanged with the ECU.
type Message interface {
	// SID returns the service identifier byte this message carries:
	// the request SID for requests, or request-SID|0x40 for positive
	// responses. Nrc returns the original request's SID.
	SID() byte

	isMessage()
}

// RawUds is an unparsed or intentionally-raw UDS byte sequence.
type RawUds struct {
	Data []byte
}

func (m RawUds) SID() byte {
	if len(m.Data) == 0 {
		return 0
	}
	return m.Data[0]
}
func (RawUds) isMessage() {}

// ReadDIDReq requests the value of a data identifier (service 0x22).
type ReadDIDReq struct {
	DID uint16
}

func (ReadDIDReq) SID() byte { return SIDReadDataByIdentifier }
func (ReadDIDReq) isMessage() {}

// ReadDIDRsp is the positive response to [ReadDIDReq].
type ReadDIDRsp struct {
	DID  uint16
	Data []byte
}

func (ReadDIDRsp) SID() byte { return SIDReadDataByIdentifier | PositiveResponseMask }
func (ReadDIDRsp) isMessage() {}

// WriteDIDReq writes user data to a data identifier (service 0x2E).
type WriteDIDReq struct {
	DID      uint16
	UserData []byte
}

func (WriteDIDReq) SID() byte { return SIDWriteDataByIdentifier }
func (WriteDIDReq) isMessage() {}

// WriteDIDRsp is the positive response to [WriteDIDReq].
type WriteDIDRsp struct {
	DID uint16
}

func (WriteDIDRsp) SID() byte { return SIDWriteDataByIdentifier | PositiveResponseMask }
func (WriteDIDRsp) isMessage() {}

// ReadDTCReq requests supported DTCs (service 0x19).
type ReadDTCReq struct {
	Sub byte
}

func (ReadDTCReq) SID() byte { return SIDReadDTCInformation }
func (ReadDTCReq) isMessage() {}

// ReadDTCRsp is the positive response to [ReadDTCReq].
type ReadDTCRsp struct {
	Sub  byte
	Data []byte
}

func (ReadDTCRsp) SID() byte { return SIDReadDTCInformation | PositiveResponseMask }
func (ReadDTCRsp) isMessage() {}

// RequestDownloadReq starts a transfer-download sequence (service 0x34).
type RequestDownloadReq struct {
	CompressionMethod byte
	EncryptionMethod  byte
	MemoryAddress     uint64
	MemorySize        uint64
	AddrSizeBytes     byte
	SizeSizeBytes     byte
}

func (RequestDownloadReq) SID() byte { return SIDRequestDownload }
func (RequestDownloadReq) isMessage() {}

// RequestDownloadRsp is the positive response to [RequestDownloadReq].
type RequestDownloadRsp struct {
	MaxBlockSize uint16
}

func (RequestDownloadRsp) SID() byte { return SIDRequestDownload | PositiveResponseMask }
func (RequestDownloadRsp) isMessage() {}

// TransferDataReq carries one block of a download (service 0x36).
type TransferDataReq struct {
	BlockSequenceCounter byte
	Data                 []byte
}

func (TransferDataReq) SID() byte { return SIDTransferData }
func (TransferDataReq) isMessage() {}

// TransferDataRsp is the positive response to [TransferDataReq].
type TransferDataRsp struct {
	BlockSequenceCounter byte
	Data                 []byte
}

func (TransferDataRsp) SID() byte { return SIDTransferData | PositiveResponseMask }
func (TransferDataRsp) isMessage() {}

// TransferExitReq ends a transfer-download sequence (service 0x37).
type TransferExitReq struct {
	UserData []byte
}

func (TransferExitReq) SID() byte { return SIDRequestTransferExit }
func (TransferExitReq) isMessage() {}

// TransferExitRsp is the positive response to [TransferExitReq].
type TransferExitRsp struct {
	UserData []byte
}

func (TransferExitRsp) SID() byte { return SIDRequestTransferExit | PositiveResponseMask }
func (TransferExitRsp) isMessage() {}

// Nrc is a negative response: SID carries the *original request's* SID
// (not 0x7F), matching the "positive response SID = request SID|0x40"
// convention used elsewhere so callers can compare against an expected
// request SID uniformly.
type Nrc struct {
	RequestSID byte
	Code       byte
}

func (m Nrc) SID() byte { return m.RequestSID }
func (Nrc) isMessage()  {}

// String renders a human-readable form of msg, used by the
// print-last-reply step and structured logging.
func String(msg Message) string {
	switch m := msg.(type) {
	case RawUds:
		return fmt.Sprintf("raw % x", m.Data)
	case ReadDIDRsp:
		return fmt.Sprintf("ReadDID(0x%04x) = % x", m.DID, m.Data)
	case WriteDIDRsp:
		return fmt.Sprintf("WriteDID(0x%04x) ok", m.DID)
	case ReadDTCRsp:
		return fmt.Sprintf("ReadDTC(sub=0x%02x) = % x", m.Sub, m.Data)
	case RequestDownloadRsp:
		return fmt.Sprintf("RequestDownload maxBlockSize=%d", m.MaxBlockSize)
	case TransferDataRsp:
		return fmt.Sprintf("TransferData(bsc=%d) = % x", m.BlockSequenceCounter, m.Data)
	case TransferExitRsp:
		return fmt.Sprintf("TransferExit = % x", m.UserData)
	case Nrc:
		return fmt.Sprintf("NRC(sid=0x%02x, code=0x%02x)", m.RequestSID, m.Code)
	default:
		return fmt.Sprintf("%#v", msg)
	}
}
