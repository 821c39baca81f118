// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StepList is a sequence of [Step] values with custom YAML tagged-union
// decoding: each element is a mapping carrying a "type" discriminator
// plus the fields that variant needs.
type StepList []Step

// rawStep is the on-the-wire shape every step variant decodes from (or
// encodes to); unused fields are simply absent for a given Type.
type rawStep struct {
	Type              string    `yaml:"type"`
	Nrc               *int      `yaml:"nrc,omitempty"`
	WaitAfterMs       *uint32   `yaml:"wait_after_ms,omitempty"`
	Expression        string    `yaml:"expression,omitempty"`
	Data              yaml.Node `yaml:"data,omitempty"`
	DID               *int      `yaml:"did,omitempty"`
	Ms                *uint32   `yaml:"ms,omitempty"`
	Condition         string    `yaml:"condition,omitempty"`
	Steps             StepList  `yaml:"steps,omitempty"`
	CompressionMethod *int      `yaml:"compression_method,omitempty"`
	EncryptMethod     *int      `yaml:"encrypt_method,omitempty"`
	MemoryAddress     *uint64   `yaml:"addr,omitempty"`
	MemorySize        *uint64   `yaml:"memorysize,omitempty"`
	Filename          string    `yaml:"filename,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (sl *StepList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("scenario: expected a sequence of steps, got %v", value.Kind)
	}
	out := make(StepList, 0, len(value.Content))
	for _, item := range value.Content {
		step, err := decodeStep(item)
		if err != nil {
			return err
		}
		out = append(out, step)
	}
	*sl = out
	return nil
}

func decodeStep(n *yaml.Node) (Step, error) {
	var raw rawStep
	if err := n.Decode(&raw); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	switch raw.Type {
	case "abort_if_nrc":
		return AbortIfNrc{Nrc: intPtrToBytePtr(raw.Nrc)}, nil

	case "disconnect_doip":
		return DisconnectDoIp{WaitAfterMs: raw.WaitAfterMs}, nil

	case "eval_expr":
		return EvalExpr{Expression: raw.Expression}, nil

	case "print_last_reply":
		return PrintLastReply{}, nil

	case "raw_uds":
		bs, err := decodeByteSource(&raw.Data)
		if err != nil {
			return nil, err
		}
		return RawUds{Data: bs}, nil

	case "read_did":
		if raw.DID == nil {
			return nil, fmt.Errorf("scenario: read_did requires did")
		}
		return ReadDID{DID: uint16(*raw.DID)}, nil

	case "read_supported_dtc":
		return ReadSupportedDTC{}, nil

	case "sleep_ms":
		if raw.Ms == nil {
			return nil, fmt.Errorf("scenario: sleep_ms requires ms")
		}
		return SleepMs{Ms: *raw.Ms}, nil

	case "while_loop":
		return WhileLoop{Condition: raw.Condition, Steps: raw.Steps}, nil

	case "write_did":
		if raw.DID == nil {
			return nil, fmt.Errorf("scenario: write_did requires did")
		}
		bs, err := decodeByteSource(&raw.Data)
		if err != nil {
			return nil, err
		}
		return WriteDID{DID: uint16(*raw.DID), Data: bs}, nil

	case "transfer_download":
		if raw.MemoryAddress == nil || raw.MemorySize == nil {
			return nil, fmt.Errorf("scenario: transfer_download requires addr and memorysize")
		}
		return TransferDownload{
			CompressionMethod: intPtrToByte(raw.CompressionMethod),
			EncryptMethod:     intPtrToByte(raw.EncryptMethod),
			MemoryAddress:     *raw.MemoryAddress,
			MemorySize:        *raw.MemorySize,
			Filename:          raw.Filename,
		}, nil

	default:
		return nil, fmt.Errorf("scenario: unknown step type %q", raw.Type)
	}
}

// decodeByteSource interprets a "data" field: a bare scalar is inline
// hex syntax; a mapping carries either bin_file_name or
// eval_expr_varname.
func decodeByteSource(n *yaml.Node) (ByteSource, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		data, err := ParseInlineHex(n.Value)
		if err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
		return Bytes{Data: data}, nil

	case yaml.MappingNode:
		var m struct {
			BinFileName     string `yaml:"bin_file_name"`
			EvalExprVarname string `yaml:"eval_expr_varname"`
		}
		if err := n.Decode(&m); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
		if m.BinFileName != "" {
			return BinFileName{Path: m.BinFileName}, nil
		}
		if m.EvalExprVarname != "" {
			return EvalExprVarname{Name: m.EvalExprVarname}, nil
		}
		return nil, fmt.Errorf("scenario: data mapping needs bin_file_name or eval_expr_varname")

	default:
		return nil, fmt.Errorf("scenario: unsupported data node kind %v", n.Kind)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (sl StepList) MarshalYAML() (interface{}, error) {
	out := make([]interface{}, len(sl))
	for i, step := range sl {
		raw, err := encodeStep(step)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func encodeStep(step Step) (interface{}, error) {
	switch s := step.(type) {
	case AbortIfNrc:
		return map[string]interface{}{"type": "abort_if_nrc", "nrc": bytePtrToIntPtr(s.Nrc)}, nil

	case DisconnectDoIp:
		m := map[string]interface{}{"type": "disconnect_doip"}
		if s.WaitAfterMs != nil {
			m["wait_after_ms"] = *s.WaitAfterMs
		}
		return m, nil

	case EvalExpr:
		return map[string]interface{}{"type": "eval_expr", "expression": s.Expression}, nil

	case PrintLastReply:
		return map[string]interface{}{"type": "print_last_reply"}, nil

	case RawUds:
		return map[string]interface{}{"type": "raw_uds", "data": encodeByteSource(s.Data)}, nil

	case ReadDID:
		return map[string]interface{}{"type": "read_did", "did": int(s.DID)}, nil

	case ReadSupportedDTC:
		return map[string]interface{}{"type": "read_supported_dtc"}, nil

	case SleepMs:
		return map[string]interface{}{"type": "sleep_ms", "ms": s.Ms}, nil

	case WhileLoop:
		return map[string]interface{}{"type": "while_loop", "condition": s.Condition, "steps": StepList(s.Steps)}, nil

	case WriteDID:
		return map[string]interface{}{"type": "write_did", "did": int(s.DID), "data": encodeByteSource(s.Data)}, nil

	case TransferDownload:
		return map[string]interface{}{
			"type":               "transfer_download",
			"compression_method": int(s.CompressionMethod),
			"encrypt_method":     int(s.EncryptMethod),
			"addr":               s.MemoryAddress,
			"memorysize":         s.MemorySize,
			"filename":           s.Filename,
		}, nil

	default:
		return nil, fmt.Errorf("scenario: cannot encode step of type %T", step)
	}
}

func encodeByteSource(bs ByteSource) interface{} {
	switch v := bs.(type) {
	case Bytes:
		return FormatInlineHex(v.Data)
	case BinFileName:
		return map[string]interface{}{"bin_file_name": v.Path}
	case EvalExprVarname:
		return map[string]interface{}{"eval_expr_varname": v.Name}
	default:
		return nil
	}
}

func intPtrToBytePtr(p *int) *byte {
	if p == nil {
		return nil
	}
	b := byte(*p)
	return &b
}

func bytePtrToIntPtr(p *byte) *int {
	if p == nil {
		return nil
	}
	i := int(*p)
	return &i
}

func intPtrToByte(p *int) byte {
	if p == nil {
		return 0
	}
	return byte(*p)
}
