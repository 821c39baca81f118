// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseInlineHex(t *testing.T) {
	got, err := ParseInlineHex("22 ff ff*3")
	require.NoError(t, err)
	require.Equal(t, []byte{0x22, 0xff, 0xff, 0xff, 0xff}, got)
}

func TestParseInlineHexInvalidByte(t *testing.T) {
	_, err := ParseInlineHex("zz")
	require.Error(t, err)
}

func TestFormatInlineHexRoundTrip(t *testing.T) {
	want := []byte{0x22, 0xf1, 0x90}
	s := FormatInlineHex(want)
	got, err := ParseInlineHex(s)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeAbortIfNrc(t *testing.T) {
	doc := `
- type: abort_if_nrc
- type: abort_if_nrc
  nrc: 17
`
	var steps StepList
	require.NoError(t, yaml.Unmarshal([]byte(doc), &steps))
	require.Len(t, steps, 2)
	require.Equal(t, AbortIfNrc{}, steps[0])
	want := byte(17)
	require.Equal(t, AbortIfNrc{Nrc: &want}, steps[1])
}

func TestDecodeTransferDownload(t *testing.T) {
	doc := `
- type: transfer_download
  compression_method: 1
  encrypt_method: 2
  addr: 19
  memorysize: 4
  filename: payload.bin
`
	var steps StepList
	require.NoError(t, yaml.Unmarshal([]byte(doc), &steps))
	require.Equal(t, TransferDownload{
		CompressionMethod: 1,
		EncryptMethod:     2,
		MemoryAddress:     19,
		MemorySize:        4,
		Filename:          "payload.bin",
	}, steps[0])
}

func TestDecodeWhileLoopNested(t *testing.T) {
	doc := `
- type: while_loop
  condition: "idx < 3"
  steps:
    - type: read_did
      did: 61840
    - type: eval_expr
      expression: "idx = idx + 1"
`
	var steps StepList
	require.NoError(t, yaml.Unmarshal([]byte(doc), &steps))
	loop, ok := steps[0].(WhileLoop)
	require.True(t, ok)
	require.Equal(t, "idx < 3", loop.Condition)
	require.Equal(t, ReadDID{DID: 61840}, loop.Steps[0])
	require.Equal(t, EvalExpr{Expression: "idx = idx + 1"}, loop.Steps[1])
}

func TestDecodeWriteDIDWithVarSource(t *testing.T) {
	doc := `
- type: write_did
  did: 61840
  data:
    eval_expr_varname: wvin
`
	var steps StepList
	require.NoError(t, yaml.Unmarshal([]byte(doc), &steps))
	require.Equal(t, WriteDID{DID: 61840, Data: EvalExprVarname{Name: "wvin"}}, steps[0])
}

func TestStepListRoundTrip(t *testing.T) {
	nrc := byte(0x11)
	waitMs := uint32(1000)
	original := StepList{
		RawUds{Data: Bytes{Data: []byte{0x22, 0xff, 0xff}}},
		AbortIfNrc{Nrc: &nrc},
		DisconnectDoIp{WaitAfterMs: &waitMs},
		PrintLastReply{},
		ReadSupportedDTC{},
		WhileLoop{
			Condition: "idx < 3",
			Steps:     []Step{ReadDID{DID: 0xf190}},
		},
	}

	out, err := yaml.Marshal(original)
	require.NoError(t, err)

	var decoded StepList
	require.NoError(t, yaml.Unmarshal(out, &decoded))

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
