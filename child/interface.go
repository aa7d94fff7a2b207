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

// Package child maintains the pid to unit index and routes reaped child
// results back to their owning unit. The index and the per-unit child sets
// form a bijection: every attributed pid maps back to exactly one unit.
package child

import (
	"syscall"

	liblog "github.com/nabbar/golib/logger"

	libunt "github.com/sabouaram/sysinit/unit"
)

// Exit is one reaped child result.
type Exit struct {
	// Pid is the reaped process id.
	Pid int

	// Code is the exit status when the process exited.
	Code int

	// Signal is the terminating signal, 0 when the process exited.
	Signal syscall.Signal

	// Core reports whether the termination produced a core dump.
	Core bool
}

// Manager is the pid to unit index.
type Manager interface {
	// Watch attributes a pid to a unit. A wait result buffered before
	// the attribution is delivered immediately.
	Watch(u libunt.Unit, pid int)

	// Unwatch removes a pid attribution.
	Unwatch(u libunt.Unit, pid int)

	// UnitByPid returns the owning unit of a pid, nil when unknown.
	UnitByPid(pid int) libunt.Unit

	// Reap drains every waitable child without blocking, in reap order.
	Reap() []Exit

	// Dispatch routes one reaped result to its owning unit, or buffers
	// it until the pid becomes known. Unknown pids that never become
	// known are evicted from the bounded buffer in arrival order.
	Dispatch(e Exit)

	// DropUnit removes every pid attribution of a unit. Buffered results
	// of pids not yet attributed are left in place.
	DropUnit(u libunt.Unit)

	// Snapshot returns the unit to pids mapping for the journal.
	Snapshot() map[string][]int

	// Restore rebuilds the index from a journal snapshot, resolving
	// unit names through the given function.
	Restore(data map[string][]int, resolve func(name string) libunt.Unit)

	// Clear drops the whole index and buffer.
	Clear()
}

// New returns an empty child manager.
func New(log liblog.FuncLog) Manager {
	return newManager(log)
}
