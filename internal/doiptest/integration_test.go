// SPDX-License-Identifier: GPL-3.0-or-later

package doiptest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doipkit/doipkit/internal/fsx"
	"github.com/doipkit/doipkit/pkg/doipmux"
	"github.com/doipkit/doipkit/pkg/doipsession"
	"github.com/doipkit/doipkit/pkg/executor"
	"github.com/doipkit/doipkit/pkg/exprctx"
	"github.com/doipkit/doipkit/pkg/scenario"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
)

// TestEndToEndScenarioAgainstStubECU drives the full
// executor -> multiplexer -> session -> TCP -> stub ECU pipeline,
// covering the "WhileLoop" end-to-end scenario of spec.md §8 against a
// real (loopback) DoIP connection rather than scripted channels.
func TestEndToEndScenarioAgainstStubECU(t *testing.T) {
	const localLA, targetLA = 0xe080, 0x00ed

	ecu := NewECU(targetLA, nil)
	defer ecu.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session, err := doipsession.Connect(ctx, "", ecu.Addr(), localLA)
	require.NoError(t, err)
	defer session.Close()

	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)

	mux := doipmux.New(session, targetLA, nil)
	muxCtx, muxCancel := context.WithCancel(ctx)
	defer muxCancel()
	go mux.Run(muxCtx, reqCh, rspCh)

	expr := exprctx.NewContext(fsx.OsFS{}, &bytes.Buffer{})
	exec := executor.New(expr, fsx.OsFS{}, &bytes.Buffer{}, targetLA, reqCh, rspCh, nil)

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

	observed := ecu.Observed()
	require.Len(t, observed, 3)
	for _, req := range observed {
		require.Equal(t, []byte{0x22, 0xf1, 0x90}, req)
	}
}
