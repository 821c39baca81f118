// SPDX-License-Identifier: GPL-3.0-or-later

package executor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doipkit/doipkit/internal/fsx"
	"github.com/doipkit/doipkit/pkg/exprctx"
	"github.com/doipkit/doipkit/pkg/scenario"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
	"github.com/doipkit/doipkit/pkg/uds"
)

// stubECU replays the response table from spec.md §8 against a pair of
// scenariomsg channels, standing in for the multiplexer+DoIP session
// so these tests exercise the executor's step semantics in isolation.
type stubECU struct {
	observed [][]byte
}

func (ecu *stubECU) respond(req []byte) uds.Message {
	ecu.observed = append(ecu.observed, append([]byte(nil), req...))
	switch {
	case bytes.Equal(req, []byte{0x22, 0xf0, 0x12}):
		return uds.RawUds{Data: []byte{0x62, 0xf0, 0x12, 0x32, 0x36, 0x34, 0x31, 0x33, 0x30, 0x30, 0x35, 0x30, 0x30, 0x52, 0x31}}
	case bytes.Equal(req, []byte{0x22, 0xf1, 0x90}):
		return uds.ReadDIDRsp{DID: 0xf190, Data: []byte("VF1XR210FSTGBEN04")}
	case len(req) >= 1 && req[0] == 0x22:
		return uds.Nrc{RequestSID: 0x22, Code: 0x10}
	case bytes.Equal(req, []byte{0x19, 0x0a}):
		return uds.ReadDTCRsp{Sub: 0x0a, Data: []byte{0xff, 0xea, 0x19, 0x88, 0x00, 0xfd, 0x01, 0x50}}
	case len(req) >= 1 && req[0] == 0x34:
		return uds.RequestDownloadRsp{MaxBlockSize: 0x0ffa}
	case len(req) >= 1 && req[0] == 0x36:
		return uds.TransferDataRsp{BlockSequenceCounter: req[1]}
	case len(req) >= 1 && req[0] == 0x37:
		return uds.TransferExitRsp{}
	case len(req) >= 1 && req[0] == 0x2e:
		return uds.WriteDIDRsp{DID: uint16(req[1])<<8 | uint16(req[2])}
	default:
		sid := byte(0)
		if len(req) > 0 {
			sid = req[0]
		}
		return uds.Nrc{RequestSID: sid, Code: 0x11}
	}
}

// run pumps the stub ECU against reqCh/rspCh until ctx is cancelled. It
// mirrors the multiplexer's ordering contract closely enough for these
// tests: one reply per request, no reordering.
func (ecu *stubECU) run(ctx context.Context, reqCh <-chan scenariomsg.Message, rspCh chan<- scenariomsg.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-reqCh:
			switch m := msg.(type) {
			case scenariomsg.Uds:
				payload, err := uds.Encode(m.Msg)
				if err != nil {
					continue
				}
				reply := ecu.respond(payload)
				select {
				case rspCh <- scenariomsg.Uds{Msg: reply}:
				case <-ctx.Done():
					return
				}
			case scenariomsg.DisconnectReconnectReq:
				select {
				case rspCh <- scenariomsg.NotifyNewDoIpCnx{}:
				case <-ctx.Done():
					return
				}
				select {
				case rspCh <- scenariomsg.NotifyDoIpCnxRoutingAck{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func newTestExecutor(t *testing.T) (*Executor, *stubECU, context.Context, context.CancelFunc) {
	t.Helper()
	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)
	ecu := &stubECU{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go ecu.run(ctx, reqCh, rspCh)

	expr := exprctx.NewContext(fsx.OsFS{}, &bytes.Buffer{})
	exec := New(expr, fsx.OsFS{}, &bytes.Buffer{}, 0x00ed, reqCh, rspCh, nil)
	return exec, ecu, ctx, cancel
}

func TestAbortIfNrcAny(t *testing.T) {
	exec, ecu, ctx, cancel := newTestExecutor(t)
	defer cancel()

	steps := scenario.StepList{
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
		scenario.AbortIfNrc{},
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
	}
	require.NoError(t, exec.Run(ctx, steps))
	require.Equal(t, [][]byte{{0x22, 0xff, 0xff}, {0x22, 0xff, 0xff}}, ecu.observed)
}

func TestAbortIfNrcSpecificCodeDoesNotMatch(t *testing.T) {
	exec, ecu, ctx, cancel := newTestExecutor(t)
	defer cancel()

	nrc := byte(0x11)
	steps := scenario.StepList{
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
		scenario.AbortIfNrc{Nrc: &nrc},
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
	}
	require.NoError(t, exec.Run(ctx, steps))
	require.Len(t, ecu.observed, 3)
}

func TestWriteDIDViaExpressionVariable(t *testing.T) {
	exec, ecu, ctx, cancel := newTestExecutor(t)
	defer cancel()

	steps := scenario.StepList{
		scenario.EvalExpr{Expression: `wvin = "VF1R"`},
		scenario.WriteDID{DID: 0xf190, Data: scenario.EvalExprVarname{Name: "wvin"}},
	}
	require.NoError(t, exec.Run(ctx, steps))
	require.Equal(t, [][]byte{{0x2e, 0xf1, 0x90, 0x56, 0x46, 0x31, 0x52}}, ecu.observed)
}

func TestWhileLoop(t *testing.T) {
	exec, ecu, ctx, cancel := newTestExecutor(t)
	defer cancel()

	steps := scenario.StepList{
		scenario.EvalExpr{Expression: "idx = 0"},
		scenario.WhileLoop{
			Condition: "idx < 3",
			Steps: scenario.StepList{
				scenario.ReadDID{DID: 0xf190},
				scenario.EvalExpr{Expression: "idx = idx + 1"},
			},
		},
	}
	require.NoError(t, exec.Run(ctx, steps))
	require.Len(t, ecu.observed, 3)
	for _, req := range ecu.observed {
		require.Equal(t, []byte{0x22, 0xf1, 0x90}, req)
	}
}

func TestTransferDownload(t *testing.T) {
	exec, ecu, ctx, cancel := newTestExecutor(t)
	defer cancel()

	fsys := fsx.NewMemFS(map[string][]byte{"firmware.bin": {0xde, 0xad, 0xba, 0xbe}})
	exec.fs = fsys

	steps := scenario.StepList{
		scenario.TransferDownload{
			CompressionMethod: 1,
			EncryptMethod:     2,
			MemoryAddress:     0x13,
			MemorySize:        4,
			Filename:          "firmware.bin",
		},
	}
	require.NoError(t, exec.Run(ctx, steps))
	require.Equal(t, [][]byte{
		{0x34, 0x12, 0x44, 0x00, 0x00, 0x00, 0x13, 0x00, 0x00, 0x00, 0x04},
		{0x36, 0x01, 0xde, 0xad, 0xba, 0xbe},
		{0x37},
	}, ecu.observed)
}

func TestSleepMsRespondsToAliveCheck(t *testing.T) {
	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	expr := exprctx.NewContext(fsx.OsFS{}, &bytes.Buffer{})
	exec := New(expr, fsx.OsFS{}, &bytes.Buffer{}, 0x00ed, reqCh, rspCh, nil)

	rspCh <- scenariomsg.AliveCheckReq{}

	start := time.Now()
	err := exec.Run(ctx, scenario.StepList{scenario.SleepMs{Ms: 50}})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	select {
	case msg := <-reqCh:
		require.Equal(t, scenariomsg.AliveCheckRsp{}, msg)
	default:
		t.Fatal("expected an AliveCheckRsp to have been sent")
	}
}

func TestDisconnectDoIpWaitsForRoutingAck(t *testing.T) {
	exec, ecu, ctx, cancel := newTestExecutor(t)
	defer cancel()

	steps := scenario.StepList{
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
		scenario.DisconnectDoIp{},
		scenario.RawUds{Data: scenario.Bytes{Data: []byte{0x22, 0xff, 0xff}}},
	}
	require.NoError(t, exec.Run(ctx, steps))
	require.Len(t, ecu.observed, 2)
}
