// SPDX-License-Identifier: GPL-3.0-or-later

package exprctx

import (
	"fmt"
	"io"

	"github.com/doipkit/doipkit/internal/fsx"
)

func (c *Context) eval(n node) (Value, error) {
	switch e := n.(type) {
	case nAssign:
		v, err := c.eval(e.rhs)
		if err != nil {
			return Value{}, err
		}
		c.vars[e.name] = v
		return v, nil

	case nIntLit:
		return Int(e.v), nil

	case nFloatLit:
		return Float(e.v), nil

	case nStringLit:
		return String(e.v), nil

	case nIdent:
		v, ok := c.vars[e.name]
		if !ok {
			return Value{}, fmt.Errorf("undefined variable %q", e.name)
		}
		return v, nil

	case nUnaryMinus:
		v, err := c.eval(e.operand)
		if err != nil {
			return Value{}, err
		}
		switch v.Kind() {
		case KindInt:
			i, _ := v.AsInt()
			return Int(-i), nil
		case KindFloat:
			f, _ := v.AsFloat()
			return Float(-f), nil
		default:
			return Value{}, fmt.Errorf("cannot negate %s", v.Kind())
		}

	case nBinOp:
		return c.evalBinOp(e)

	case nCall:
		return c.evalCall(e)

	default:
		return Value{}, fmt.Errorf("internal error: unknown node %T", n)
	}
}

func (c *Context) evalBinOp(e nBinOp) (Value, error) {
	left, err := c.eval(e.left)
	if err != nil {
		return Value{}, err
	}
	right, err := c.eval(e.right)
	if err != nil {
		return Value{}, err
	}

	switch e.op {
	case "+", "-", "*", "/":
		return arith(e.op, left, right)
	case "<", ">", "<=", ">=", "==", "!=":
		return compare(e.op, left, right)
	default:
		return Value{}, fmt.Errorf("internal error: unknown operator %q", e.op)
	}
}

func arith(op string, left, right Value) (Value, error) {
	if left.Kind() == KindString || right.Kind() == KindString {
		if op != "+" {
			return Value{}, fmt.Errorf("operator %q not defined for strings", op)
		}
		ls, err := left.AsString()
		if err != nil {
			return Value{}, err
		}
		rs, err := right.AsString()
		if err != nil {
			return Value{}, err
		}
		return String(ls + rs), nil
	}

	if left.Kind() == KindFloat || right.Kind() == KindFloat {
		lf, err := left.AsFloat()
		if err != nil {
			return Value{}, err
		}
		rf, err := right.AsFloat()
		if err != nil {
			return Value{}, err
		}
		switch op {
		case "+":
			return Float(lf + rf), nil
		case "-":
			return Float(lf - rf), nil
		case "*":
			return Float(lf * rf), nil
		case "/":
			return Float(lf / rf), nil
		}
	}

	li, err := left.AsInt()
	if err != nil {
		return Value{}, err
	}
	ri, err := right.AsInt()
	if err != nil {
		return Value{}, err
	}
	switch op {
	case "+":
		return Int(li + ri), nil
	case "-":
		return Int(li - ri), nil
	case "*":
		return Int(li * ri), nil
	case "/":
		if ri == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return Int(li / ri), nil
	}
	return Value{}, fmt.Errorf("internal error: unreachable")
}

func compare(op string, left, right Value) (Value, error) {
	lf, err := left.AsFloat()
	if err != nil {
		ls, lerr := left.AsString()
		rs, rerr := right.AsString()
		if lerr != nil || rerr != nil {
			return Value{}, fmt.Errorf("cannot compare %s and %s", left.Kind(), right.Kind())
		}
		switch op {
		case "==":
			return Bool(ls == rs), nil
		case "!=":
			return Bool(ls != rs), nil
		default:
			return Value{}, fmt.Errorf("operator %q not defined for strings", op)
		}
	}
	rf, err := right.AsFloat()
	if err != nil {
		return Value{}, fmt.Errorf("cannot compare %s and %s", left.Kind(), right.Kind())
	}
	switch op {
	case "<":
		return Bool(lf < rf), nil
	case ">":
		return Bool(lf > rf), nil
	case "<=":
		return Bool(lf <= rf), nil
	case ">=":
		return Bool(lf >= rf), nil
	case "==":
		return Bool(lf == rf), nil
	case "!=":
		return Bool(lf != rf), nil
	}
	return Value{}, fmt.Errorf("internal error: unreachable")
}

func (c *Context) evalCall(e nCall) (Value, error) {
	args := make([]Value, len(e.args))
	for i, a := range e.args {
		v, err := c.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	switch e.name {
	case "reply_nth":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("reply_nth takes exactly one argument")
		}
		idx, err := args[0].AsInt()
		if err != nil {
			return Value{}, err
		}
		b := c.reply.get()
		if idx < 0 || int(idx) >= len(b) {
			return Value{}, fmt.Errorf("reply_nth(%d): out of bounds (reply has %d bytes)", idx, len(b))
		}
		return Int(int64(b[idx])), nil

	case "loadfile":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("loadfile takes exactly one argument")
		}
		path, err := args[0].AsString()
		if err != nil {
			return Value{}, err
		}
		data, err := fsx.ReadFile(c.fs, path)
		if err != nil {
			return Value{}, fmt.Errorf("loadfile(%q): %w", path, err)
		}
		return TupleOfBytes(data), nil

	case "print":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("print takes exactly one argument")
		}
		printValue(c.stdout, args[0])
		return Empty(), nil

	default:
		return Value{}, fmt.Errorf("undefined function %q", e.name)
	}
}

// printValue renders v to w; a tuple that [flattenBytes] accepts (ints,
// each truncated to 8 bits, strings, and nested tuples of those) is
// rendered as a hex dump, matching the executor's human-readable reply
// rendering. Any other value is rendered with [Value.String].
func printValue(w io.Writer, v Value) {
	if v.Kind() == KindTuple {
		b, err := flattenBytes(v)
		if err == nil {
			fmt.Fprintf(w, "% x\n", b)
			return
		}
	}
	fmt.Fprintf(w, "%s\n", v.String())
}
