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

// Package service implements the service unit sub-kind contract the
// socket activation core relies on: starting the main process with the
// listening descriptors collected from its triggering sockets, tracking
// the main pid, and reporting wait results through the common frame.
//
// Only the skeletal lifecycle is implemented; service internals beyond
// the contract (templates of exec phases, watchdog, notify-readiness
// semantics) stay out of the core.
package service

import (
	liblog "github.com/nabbar/golib/logger"

	libunt "github.com/sabouaram/sysinit/unit"
)

// Universe is the narrow manager surface a service unit needs.
type Universe interface {
	// WatchPid attributes a spawned pid to the unit.
	WatchPid(u libunt.Unit, pid int)

	// UnwatchPid drops a pid attribution.
	UnwatchPid(u libunt.Unit, pid int)

	// StateSaved asks the manager to persist the unit sub state.
	StateSaved(u libunt.Unit)

	// TriggerStateChange lets the sockets triggering this service
	// observe its state, so shared listeners resume after it dies.
	TriggerStateChange(serviceID string)
}

// ServiceUnit is the service sub-kind surface.
type ServiceUnit interface {
	libunt.SubUnit

	// MainPid returns the tracked main pid, 0 when none.
	MainPid() int

	// SetInheritedFds installs the listening descriptors the next start
	// passes to the child, lowest descriptor first.
	SetInheritedFds(fds []int)
}

// New returns a service sub unit attached to the given frame.
func New(u libunt.Unit, um Universe, log liblog.FuncLog) ServiceUnit {
	return newService(u, um, log)
}
