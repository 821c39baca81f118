// SPDX-License-Identifier: GPL-3.0-or-later

// Package doiperrors implements the error taxonomy of the DoIP/UDS
// session manager (spec §7): the handful of conditions the multiplexer
// recovers from locally, and the ones the executor propagates.
package doiperrors

import (
	"errors"
	"fmt"
)

// ErrNetworkConnectorDead indicates a transport-layer fault, a
// queue-closed condition, or an I/O timeout during send. The
// multiplexer reconnects on this error; the executor propagates it.
var ErrNetworkConnectorDead = errors.New("doip: network connector dead")

// ErrRoutingActivationFailed indicates the initial or reconnect
// DoIP routing-activation handshake was refused.
var ErrRoutingActivationFailed = errors.New("doip: routing activation failed")

// ErrIoTimeout indicates a send operation exceeded its deadline.
var ErrIoTimeout = errors.New("doip: I/O timeout")

// ErrIo indicates a local file I/O failure (scenario/config/binfile
// reads, transfer-download source file reads).
var ErrIo = errors.New("doip: local I/O error")

// ErrUnexpectedUdsMessage indicates a reply did not match the expected
// SID and was not an NRC.
type ErrUnexpectedUdsMessage struct {
	// Msg is a human-readable rendering of the unexpected message.
	Msg string
}

func (e *ErrUnexpectedUdsMessage) Error() string {
	return fmt.Sprintf("doip: unexpected UDS message: %s", e.Msg)
}

// ErrNrc wraps a UDS negative-response code bubbled up by an
// exchange's expected-SID check.
type ErrNrc struct {
	// Code is the NRC byte carried by the 0x7F response.
	Code byte
}

func (e *ErrNrc) Error() string {
	return fmt.Sprintf("doip: negative response code 0x%02x", e.Code)
}

// ErrUdsCodec indicates a UDS codec failure (malformed request/response).
var ErrUdsCodec = errors.New("doip: UDS codec error")

// EvalError is returned by the expression context on parse or
// evaluation failure.
type EvalError struct {
	// Source is the expression text that failed to evaluate.
	Source string

	// Detail describes what went wrong.
	Detail string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval error in %q: %s", e.Source, e.Detail)
}

// TypeError is returned when an expression evaluates to an unexpected
// value kind (e.g. eval_bool on a non-boolean result).
type TypeError struct {
	Expected string
	Got      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Got)
}

// NotFoundError is returned when a referenced variable does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("variable not found: %s", e.Name)
}
