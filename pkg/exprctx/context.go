// SPDX-License-Identifier: GPL-3.0-or-later

package exprctx

import (
	"io"
	"sync"

	"github.com/doipkit/doipkit/internal/fsx"
	"github.com/doipkit/doipkit/pkg/doiperrors"
)

// replyMirror is the small shared reference the executor writes
// through [Context.SetReply] and the reply_nth builtin reads. A mutex
// is sufficient: writes are infrequent and reads need only a
// consistent snapshot, not true concurrency.
type replyMirror struct {
	mu    sync.Mutex
	bytes []byte
}

func (m *replyMirror) set(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes = append([]byte(nil), b...)
}

func (m *replyMirror) get() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

// Context is the mutable expression-evaluation environment: named
// variables, the reply byte mirror, and the collaborators the
// loadfile/print builtins need.
//
// Variables persist for the lifetime of the scenario run; a Context is
// owned exclusively by the step executor.
type Context struct {
	vars   map[string]Value
	reply  *replyMirror
	fs     fsx.FS
	stdout io.Writer
}

// NewContext constructs an empty expression context. fs resolves
// loadfile() paths; stdout receives print() output.
func NewContext(fs fsx.FS, stdout io.Writer) *Context {
	return &Context{
		vars:   make(map[string]Value),
		reply:  &replyMirror{},
		fs:     fs,
		stdout: stdout,
	}
}

// EvalVoid evaluates expr for its side effects (typically an
// assignment). Errors are [doiperrors.EvalError].
func (c *Context) EvalVoid(expr string) error {
	n, err := parse(expr)
	if err != nil {
		return &doiperrors.EvalError{Source: expr, Detail: err.Error()}
	}
	if _, err := c.eval(n); err != nil {
		return &doiperrors.EvalError{Source: expr, Detail: err.Error()}
	}
	return nil
}

// EvalBool evaluates expr and requires the result to be a boolean,
// used for while-loop conditions.
func (c *Context) EvalBool(expr string) (bool, error) {
	n, err := parse(expr)
	if err != nil {
		return false, &doiperrors.EvalError{Source: expr, Detail: err.Error()}
	}
	v, err := c.eval(n)
	if err != nil {
		return false, &doiperrors.EvalError{Source: expr, Detail: err.Error()}
	}
	b, err := v.AsBool()
	if err != nil {
		return false, &doiperrors.TypeError{Expected: "bool", Got: v.Kind().String()}
	}
	return b, nil
}

// SetReply serializes replyBytes to the `reply` variable as a tuple of
// byte-valued ints, and updates the shared mirror read by reply_nth.
func (c *Context) SetReply(replyBytes []byte) {
	c.vars["reply"] = TupleOfBytes(replyBytes)
	c.reply.set(replyBytes)
}

// GetTupleVariable fetches the named variable and projects it to
// bytes: a tuple is flattened recursively (nested tuples and strings),
// truncating each leaf integer to 8 bits; a string yields its raw
// UTF-8 bytes; any other kind fails with [doiperrors.NotFoundError].
func (c *Context) GetTupleVariable(name string) ([]byte, error) {
	v, ok := c.vars[name]
	if !ok {
		return nil, &doiperrors.NotFoundError{Name: name}
	}
	b, err := flattenBytes(v)
	if err != nil {
		return nil, &doiperrors.NotFoundError{Name: name}
	}
	return b, nil
}
