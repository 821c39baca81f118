// SPDX-License-Identifier: GPL-3.0-or-later

package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/doipkit/doipkit/pkg/doiperrors"
	"github.com/doipkit/doipkit/pkg/scenario"
	"github.com/doipkit/doipkit/pkg/uds"
)

// execTransferDownload runs the multi-block transfer-download protocol
// of spec.md §4.4: a RequestDownload handshake negotiating the block
// size, a sequence of TransferData blocks read from the named file,
// and a closing TransferExit. The block-sequence counter wraps
// 0xFF -> 0x00 per the Open Question decision recorded in DESIGN.md.
func (e *Executor) execTransferDownload(ctx context.Context, s scenario.TransferDownload) error {
	maxBlockSize, err := e.requestDownload(ctx, s)
	if err != nil {
		return err
	}
	if maxBlockSize <= 2 {
		return fmt.Errorf("executor: ECU offered unusable max block size %d", maxBlockSize)
	}
	chunk := int(maxBlockSize) - 2

	file, err := e.fs.Open(s.Filename)
	if err != nil {
		return fmt.Errorf("%w: %w", doiperrors.ErrIo, err)
	}
	defer file.Close()

	var bsc byte = 1
	buf := make([]byte, chunk)
	for {
		n, rerr := io.ReadFull(file, buf)
		if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
			return fmt.Errorf("%w: %w", doiperrors.ErrIo, rerr)
		}
		data := append([]byte(nil), buf[:n]...)
		if err := e.requestResponse(ctx, uds.TransferDataReq{BlockSequenceCounter: bsc, Data: data}); err != nil {
			return err
		}
		if err := e.expectReply(uds.SIDTransferData); err != nil {
			return err
		}
		if bsc == 0xff {
			bsc = 0
		} else {
			bsc++
		}
		if n < chunk {
			break
		}
	}

	if err := e.requestResponse(ctx, uds.TransferExitReq{UserData: []byte{}}); err != nil {
		return err
	}
	return e.expectReply(uds.SIDRequestTransferExit)
}

func (e *Executor) requestDownload(ctx context.Context, s scenario.TransferDownload) (uint16, error) {
	req := uds.RequestDownloadReq{
		CompressionMethod: s.CompressionMethod,
		EncryptionMethod:  s.EncryptMethod,
		MemoryAddress:     s.MemoryAddress,
		MemorySize:        s.MemorySize,
		AddrSizeBytes:     4,
		SizeSizeBytes:     4,
	}
	if err := e.requestResponse(ctx, req); err != nil {
		return 0, err
	}
	if err := e.expectReply(uds.SIDRequestDownload); err != nil {
		return 0, err
	}
	rsp, ok := e.lastReply.(uds.RequestDownloadRsp)
	if !ok {
		return 0, &doiperrors.ErrUnexpectedUdsMessage{Msg: uds.String(e.lastReply)}
	}
	return rsp.MaxBlockSize, nil
}
