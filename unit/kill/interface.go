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

// Package kill bundles the per-unit termination policy: which processes a
// stop affects and which signals are used for the terminate and kill steps.
package kill

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Mode selects the process set a termination affects.
type Mode uint8

const (
	// ControlGroup signals every process in the unit's control group.
	ControlGroup Mode = iota

	// Process signals only the main / control pid.
	Process

	// Mixed signals the main pid with SIGTERM and the group with SIGKILL.
	Mixed

	// None sends no signal at all; the unit is expected to stop by itself.
	None
)

// Operation is the reason a signal is delivered, mapped to a concrete
// signal through the Context.
type Operation uint8

const (
	// Terminate delivers the configured terminate signal (default SIGTERM).
	Terminate Operation = iota

	// Kill delivers the configured kill signal (default SIGKILL).
	Kill

	// Watchdog delivers the watchdog signal (default SIGABRT).
	Watchdog

	// Abort delivers SIGABRT.
	Abort
)

// Context is the termination policy attached to a unit.
type Context struct {
	Mode    Mode
	SigTerm unix.Signal
	SigKill unix.Signal
}

// ParseMode returns the Mode matching the given configuration value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "control-group", "cgroup":
		return ControlGroup, nil
	case "process":
		return Process, nil
	case "mixed":
		return Mixed, nil
	case "none":
		return None, nil
	}

	return ControlGroup, fmt.Errorf("invalid kill mode '%s'", s)
}

// String returns the canonical form of the mode.
func (m Mode) String() string {
	switch m {
	case ControlGroup:
		return "control-group"
	case Process:
		return "process"
	case Mixed:
		return "mixed"
	case None:
		return "none"
	}

	return "control-group"
}

// Default returns the default termination policy: control group scope,
// SIGTERM then SIGKILL.
func Default() Context {
	return Context{
		Mode:    ControlGroup,
		SigTerm: unix.SIGTERM,
		SigKill: unix.SIGKILL,
	}
}

// Signal returns the concrete signal the given operation maps to under
// this context.
func (c Context) Signal(op Operation) unix.Signal {
	switch op {
	case Terminate:
		if c.SigTerm != 0 {
			return c.SigTerm
		}
		return unix.SIGTERM
	case Kill:
		if c.SigKill != 0 {
			return c.SigKill
		}
		return unix.SIGKILL
	case Watchdog, Abort:
		return unix.SIGABRT
	}

	return unix.SIGTERM
}
