// SPDX-License-Identifier: GPL-3.0-or-later

// Package scenario implements the declarative scenario document: a
// typed step program (with loops and embedded expressions) loaded from
// YAML, plus the inline hex byte syntax steps use to embed literal UDS
// payloads.
package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSource is the tagged variant of places a step can pull payload
// bytes from: inline bytes decoded once at load time, a file read at
// execution time, or an expression-context variable.
type ByteSource interface {
	isByteSource()
}

// Bytes is an inline byte sequence, already decoded from its
// whitespace-separated hex-with-repetition source syntax.
type Bytes struct {
	Data []byte
}

func (Bytes) isByteSource() {}

// BinFileName names a file whose contents are read at execution time.
type BinFileName struct {
	Path string
}

func (BinFileName) isByteSource() {}

// EvalExprVarname names an expression-context variable whose value is
// projected to bytes at execution time.
type EvalExprVarname struct {
	Name string
}

func (EvalExprVarname) isByteSource() {}

// ParseInlineHex decodes the inline byte syntax: whitespace-separated
// lowercase hex bytes, each optionally followed by "*N" to repeat that
// byte N times (e.g. "22 ff ff*12").
func ParseInlineHex(s string) ([]byte, error) {
	fields := strings.Fields(s)
	var out []byte
	for _, field := range fields {
		hexPart := field
		count := 1
		if idx := strings.IndexByte(field, '*'); idx >= 0 {
			hexPart = field[:idx]
			n, err := strconv.Atoi(field[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid repeat count in %q: %w", field, err)
			}
			count = n
		}
		if len(hexPart) != 2 {
			return nil, fmt.Errorf("invalid hex byte %q: must be exactly 2 hex digits", hexPart)
		}
		b, err := strconv.ParseUint(hexPart, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q: %w", hexPart, err)
		}
		for i := 0; i < count; i++ {
			out = append(out, byte(b))
		}
	}
	return out, nil
}

// FormatInlineHex renders b back to the inline hex syntax, without
// using the repetition shorthand (round-tripping through the
// shorthand is not required: parse(format(b)) == b holds regardless).
func FormatInlineHex(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%02x", x)
	}
	return strings.Join(parts, " ")
}
