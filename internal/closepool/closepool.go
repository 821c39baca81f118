// SPDX-License-Identifier: GPL-3.0-or-later

// Package closepool accumulates [io.Closer] instances created while a
// task runs (dialed connections, opened files) so they can all be torn
// down together when the task exits, regardless of which error path was
// taken. Reimplemented from the usage contract observed at the
// teacher's pkg/cli/{nc,dig}/task.go call sites — the package they
// import it from is not itself importable from this module.
package closepool

import (
	"io"
	"sync"
)

// Pool accumulates closers and closes them all exactly once.
//
// The zero value is ready to use.
type Pool struct {
	mu      sync.Mutex
	closers []io.Closer
}

// Add registers a closer with the pool.
func (p *Pool) Add(c io.Closer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closers = append(p.closers, c)
}

// Close closes every registered closer, in reverse registration order,
// and clears the pool so a second call is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	closers := p.closers
	p.closers = nil
	p.mu.Unlock()

	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
