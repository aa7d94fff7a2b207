/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package event implements the level triggered I/O loop the manager core
// runs on. Sources register a file descriptor, an interest mask and a
// priority; ready sources are dispatched in priority order, one loop
// iteration at a time. Everything the core mutates is mutated from inside
// a dispatch, which is what makes the core single threaded.
package event

import (
	"context"

	liberr "github.com/nabbar/golib/errors"
)

// Source is one registered event source. Lower priority values dispatch
// first inside a single loop iteration.
type Source interface {
	// Fd returns the watched file descriptor. A source whose descriptor
	// becomes invalid must be removed from the loop before closing it.
	Fd() int

	// Events returns the epoll interest mask (EPOLLIN, ...).
	Events() uint32

	// Priority orders ready sources inside one iteration; lower first.
	Priority() int8

	// Dispatch handles readiness. A returned error does not stop the
	// other ready sources: RunOnce reports it after dispatching them, and
	// Run ignores it and keeps looping.
	Dispatch(l Loop) error
}

// Loop multiplexes I/O readiness over registered sources.
type Loop interface {
	// AddSource registers a source, initially enabled.
	AddSource(s Source) liberr.Error

	// DelSource removes a source from the loop. Removing an unknown
	// source is a no-op.
	DelSource(s Source)

	// SetEnabled pauses or resumes readiness watching for a registered
	// source without losing its registration.
	SetEnabled(s Source, enable bool) liberr.Error

	// Defer schedules a function to run at the start of the next loop
	// iteration, before polling. This is the zero-timer scheduling used
	// by state machines to bound their call stack.
	Defer(fct func())

	// RunOnce waits up to the given timeout in milliseconds (-1 blocks)
	// and dispatches every ready source once, in priority order.
	RunOnce(timeout int) liberr.Error

	// Run iterates RunOnce until the context ends.
	Run(ctx context.Context) liberr.Error

	// Close releases the poll descriptor. Registered sources are not
	// closed; their owners keep the descriptors.
	Close() error
}

// New returns a new epoll backed Loop.
func New() (Loop, liberr.Error) {
	return newLoop()
}
