// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package testable provides thread-safe singletons for overriding
fundamental doipkit dependencies in integration tests.

The zero value of each singleton is ready to use and typically
uses the standard library. Overriding to a different value allows
redirecting TCP dials (for example to a loopback stub ECU) without
touching global state outside of this one seam.
*/
package testable

import (
	"context"
	"io"
	"net"
	"os"
	"sync"

	"github.com/doipkit/doipkit/internal/cliutils"
	"github.com/doipkit/doipkit/internal/fsx"
)

// DialContextFunc is the type of the low-level dial function.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContextProvider provides a thread-safe way to override the dial function.
//
// The zero value is ready to use and dials with the standard library.
type DialContextProvider struct {
	fx DialContextFunc
	mu sync.Mutex
}

// DialContext is the singleton allowing to override the function used
// to establish network connections without data races.
//
// By default, we use the standard library to dial connections.
var DialContext = &DialContextProvider{}

// Set sets the dial function to use to establish a new network connection.
func (dcp *DialContextProvider) Set(fx DialContextFunc) {
	dcp.mu.Lock()
	defer dcp.mu.Unlock()
	dcp.fx = fx
}

// Get returns the dial function to use to establish a new network connection.
func (dcp *DialContextProvider) Get() DialContextFunc {
	dcp.mu.Lock()
	defer dcp.mu.Unlock()
	fx := dcp.fx
	if fx == nil {
		fx = (&net.Dialer{}).DialContext
	}
	return fx
}

// FSProvider provides a thread-safe way to override the filesystem.
//
// The zero value is ready to use and reads from the real filesystem.
type FSProvider struct {
	fsys fsx.FS
	mu   sync.Mutex
}

// FS is the singleton allowing to override the filesystem used to
// resolve scenario files, config files, and loadfile()/BinFileName paths.
var FS = &FSProvider{}

// Set sets the filesystem to use.
func (fsp *FSProvider) Set(fsys fsx.FS) {
	fsp.mu.Lock()
	defer fsp.mu.Unlock()
	fsp.fsys = fsys
}

// Get returns the filesystem to use.
func (fsp *FSProvider) Get() fsx.FS {
	fsp.mu.Lock()
	defer fsp.mu.Unlock()
	fsys := fsp.fsys
	if fsys == nil {
		fsys = fsx.OsFS{}
	}
	return fsys
}

// Environment implements a testable [cliutils.Environment].
//
// Use [NewEnvironment] to construct.
type Environment struct {
	mu     sync.Mutex
	stdin  io.Reader
	stderr io.Writer
	stdout io.Writer
}

// NewEnvironment creates a new [*Environment] instance.
func NewEnvironment() *Environment {
	return &Environment{
		stdin:  os.Stdin,
		stderr: os.Stderr,
		stdout: os.Stdout,
	}
}

// SetStdin sets the standard input stream.
func (env *Environment) SetStdin(r io.Reader) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.stdin = r
}

// SetStderr sets the standard error stream.
func (env *Environment) SetStderr(w io.Writer) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.stderr = w
}

// SetStdout sets the standard output stream.
func (env *Environment) SetStdout(w io.Writer) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.stdout = w
}

var _ cliutils.Environment = (*Environment)(nil)

// FS implements [cliutils.Environment]. It always reflects the current
// value of the package-level [FS] provider, so tests can swap the
// filesystem after constructing the environment.
func (env *Environment) FS() fsx.FS {
	return FS.Get()
}

// Stdin implements [cliutils.Environment].
func (env *Environment) Stdin() io.Reader {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.stdin
}

// Stderr implements [cliutils.Environment].
func (env *Environment) Stderr() io.Writer {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.stderr
}

// Stdout implements [cliutils.Environment].
func (env *Environment) Stdout() io.Writer {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.stdout
}
