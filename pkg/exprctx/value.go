// SPDX-License-Identifier: GPL-3.0-or-later

// Package exprctx implements the scenario expression language: a small,
// side-effecting expression evaluator with mutable named variables, a
// `reply` variable auto-bound after each UDS exchange, and built-ins for
// byte-level inspection, file loading, and pretty printing.
//
// This is a hand-written recursive-descent tokenizer/parser/evaluator
// over the standard library. See DESIGN.md for why the already-wired
// mvdan.cc/sh/v3 shell interpreter was not reused here instead: its
// execution model targets whole POSIX shell programs against OS-level
// environment state, not an embeddable grammar over Int/Float/Bool/
// String/Tuple/Empty values with custom builtins.
package exprctx

import "fmt"

// Kind tags the variant held by a [Value].
type Kind int

const (
	KindEmpty Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindTuple
)

// Value is the tagged union of expression-context value kinds.
type Value struct {
	kind  Kind
	i     int64
	f     float64
	b     bool
	s     string
	tuple []Value
}

// Empty returns the empty value.
func Empty() Value { return Value{kind: KindEmpty} }

// Int wraps an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float wraps a floating-point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool wraps a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String wraps a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Tuple wraps a list of values.
func Tuple(vs []Value) Value { return Value{kind: KindTuple, tuple: vs} }

// TupleOfBytes builds a tuple of Int values, one per byte, matching the
// representation `reply` is bound to after a committed UDS exchange.
func TupleOfBytes(b []byte) Value {
	vs := make([]Value, len(b))
	for i, x := range b {
		vs[i] = Int(int64(x))
	}
	return Tuple(vs)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns v as a boolean, or an error if v is not [KindBool].
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("expected bool, got %s", v.kind)
	}
	return v.b, nil
}

// AsInt returns v as an integer, or an error if v is not [KindInt].
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("expected int, got %s", v.kind)
	}
	return v.i, nil
}

// AsFloat returns v as a float, coercing an int if needed.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, fmt.Errorf("expected number, got %s", v.kind)
	}
}

// AsString returns v as a string, or an error if v is not [KindString].
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("expected string, got %s", v.kind)
	}
	return v.s, nil
}

// AsTuple returns v's elements, or an error if v is not [KindTuple].
func (v Value) AsTuple() ([]Value, error) {
	if v.kind != KindTuple {
		return nil, fmt.Errorf("expected tuple, got %s", v.kind)
	}
	return v.tuple, nil
}

// String implements fmt.Stringer, used by the print builtin for
// non-tuple values.
func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return "()"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindString:
		return v.s
	case KindTuple:
		return fmt.Sprintf("%v", v.tuple)
	default:
		return "<invalid>"
	}
}

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// flattenBytes recursively flattens a tuple (nested tuples and strings
// included) into a byte slice, truncating each leaf integer to 8 bits.
func flattenBytes(v Value) ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte{byte(v.i)}, nil
	case KindString:
		return []byte(v.s), nil
	case KindTuple:
		var out []byte
		for _, elem := range v.tuple {
			b, err := flattenBytes(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot flatten %s to bytes", v.kind)
	}
}
