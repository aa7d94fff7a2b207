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

// Package socket implements the socket unit sub-kind: it binds the
// declared listeners, watches them in the event loop while listening, and
// triggers the associated service on incoming traffic, handing the
// listening descriptors over.
//
// The supervisor is an explicit state machine: every move goes through a
// single transition entry point validated against the allowed-edge table,
// and chained steps are scheduled through the event loop instead of
// recursing, so the call stack stays bounded and signals preempt between
// steps only.
package socket

import (
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libevt "github.com/sabouaram/sysinit/event"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

// Universe is the narrow manager surface a socket unit needs. The socket
// never holds other units directly: every cross-unit effect re-resolves
// through the manager.
type Universe interface {
	// Events returns the manager event loop.
	Events() libevt.Loop

	// HasStopJob reports whether the unit has a committed stop-effect job.
	HasStopJob(unitID string) bool

	// HasRestartJob reports whether the unit has a committed restart job.
	HasRestartJob(unitID string) bool

	// ActiveOrPending reports whether the unit is active or has a
	// committed start-effect job.
	ActiveOrPending(unitID string) bool

	// StartTriggered starts the service a socket triggers. With a
	// non-negative connection descriptor the manager instantiates a
	// per-connection unit owning that descriptor; otherwise the plain
	// target service starts and inherits the shared listeners.
	StartTriggered(socketID, serviceID string, connFd int) liberr.Error

	// WatchPid attributes a spawned control pid to the unit.
	WatchPid(u libunt.Unit, pid int)

	// UnwatchPid drops a control pid attribution.
	UnwatchPid(u libunt.Unit, pid int)

	// StateSaved asks the manager to persist the unit sub state. Called
	// after every state mutation.
	StateSaved(u libunt.Unit)

	// FrameListen brackets the trigger side effect with a reliability
	// frame marker so a crash replay can tell whether the start ran.
	FrameListen(u libunt.Unit, started bool)

	// FrameClear closes the reliability frame opened by FrameListen.
	FrameClear(u libunt.Unit)
}

// SocketUnit is the socket sub-kind surface, extending the common
// capability set with socket specific inspection.
type SocketUnit interface {
	libunt.SubUnit

	// State returns the internal socket state.
	State() State

	// Result returns the recorded result of the current cycle.
	Result() Result

	// Refused returns the persisted count of refused connections.
	Refused() int

	// Ports returns the declared ports.
	Ports() []*Port

	// TriggerNotify observes the triggered service state so a shared
	// listener goes back to listening when the service dies.
	TriggerNotify(to untsts.Active)
}

// New returns a socket sub unit attached to the given frame.
func New(u libunt.Unit, um Universe, log liblog.FuncLog) SocketUnit {
	return newSocket(u, um, log)
}
