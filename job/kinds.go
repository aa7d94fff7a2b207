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

package job

import (
	"fmt"
	"strings"
)

// Kind is the action a job performs on its unit.
type Kind uint8

const (
	// Start activates the unit.
	Start Kind = iota

	// Verify checks the unit is already active without acting on it.
	Verify

	// Nop does nothing; used to keep transaction shape without effect.
	Nop

	// Reload re-reads runtime data of an active unit.
	Reload

	// Restart stops then starts the unit; internally two run phases.
	Restart

	// RestartOrReload restarts an active unit, starts an inactive one.
	// Only produced by merging Start with a reload flavor.
	RestartOrReload

	// TryReload reloads the unit only when it is active.
	TryReload

	// TryRestart restarts the unit only when it is active.
	TryRestart

	// Stop deactivates the unit.
	Stop
)

// Mode controls how a transaction interacts with already queued jobs.
type Mode uint8

const (
	// ModeFail refuses any conflict with the run table.
	ModeFail Mode = iota

	// ModeReplace replaces conflicting replaceable jobs.
	ModeReplace

	// ModeReplaceIrreversibly replaces and marks the new jobs as not
	// replaceable by later transactions.
	ModeReplaceIrreversibly

	// ModeIsolate stops every unit not part of the transaction.
	ModeIsolate

	// ModeFlush clears the run table before committing.
	ModeFlush

	// ModeIgnoreDependencies skips the dependency expansion.
	ModeIgnoreDependencies

	// ModeIgnoreRequirements skips the requirement expansion.
	ModeIgnoreRequirements

	// ModeTrigger stops the units that trigger the target.
	ModeTrigger
)

// Result is the final outcome of a job.
type Result uint8

const (
	// ResultDone means the job completed successfully.
	ResultDone Result = iota

	// ResultCancelled means the job was cancelled or replaced.
	ResultCancelled

	// ResultTimeout means the job ran past its deadline.
	ResultTimeout

	// ResultFailed means the unit action failed.
	ResultFailed

	// ResultDependency means a prerequisite job failed.
	ResultDependency

	// ResultSkipped means a condition test skipped the action.
	ResultSkipped

	// ResultInvalid means the unit state refused the action.
	ResultInvalid

	// ResultAssert means an assert test failed.
	ResultAssert

	// ResultUnsupported means the unit kind cannot perform the action.
	ResultUnsupported

	// ResultCollected means the job was garbage collected.
	ResultCollected

	// ResultOnce means the job already ran in this boot.
	ResultOnce
)

// State is the runtime phase of a committed job.
type State uint8

const (
	// StateWaiting means the job sits in the run table, not started.
	StateWaiting State = iota

	// StateRunning means the unit action is in flight.
	StateRunning
)

// ParseMode returns the Mode matching the given string.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return ModeReplace, nil
	case "fail":
		return ModeFail, nil
	case "replace-irreversibly":
		return ModeReplaceIrreversibly, nil
	case "isolate":
		return ModeIsolate, nil
	case "flush":
		return ModeFlush, nil
	case "ignore-dependencies":
		return ModeIgnoreDependencies, nil
	case "ignore-requirements":
		return ModeIgnoreRequirements, nil
	case "trigger":
		return ModeTrigger, nil
	}

	return ModeReplace, fmt.Errorf("invalid job mode '%s'", s)
}

// String returns the canonical form of the kind.
func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Verify:
		return "verify"
	case Nop:
		return "nop"
	case Reload:
		return "reload"
	case Restart:
		return "restart"
	case RestartOrReload:
		return "restart-or-reload"
	case TryReload:
		return "try-reload"
	case TryRestart:
		return "try-restart"
	case Stop:
		return "stop"
	}

	return "nop"
}

// String returns the canonical form of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFail:
		return "fail"
	case ModeReplace:
		return "replace"
	case ModeReplaceIrreversibly:
		return "replace-irreversibly"
	case ModeIsolate:
		return "isolate"
	case ModeFlush:
		return "flush"
	case ModeIgnoreDependencies:
		return "ignore-dependencies"
	case ModeIgnoreRequirements:
		return "ignore-requirements"
	case ModeTrigger:
		return "trigger"
	}

	return "replace"
}

// String returns the canonical form of the result.
func (r Result) String() string {
	switch r {
	case ResultDone:
		return "done"
	case ResultCancelled:
		return "cancelled"
	case ResultTimeout:
		return "timeout"
	case ResultFailed:
		return "failed"
	case ResultDependency:
		return "dependency"
	case ResultSkipped:
		return "skipped"
	case ResultInvalid:
		return "invalid"
	case ResultAssert:
		return "assert"
	case ResultUnsupported:
		return "unsupported"
	case ResultCollected:
		return "collected"
	case ResultOnce:
		return "once"
	}

	return "done"
}

// String returns the canonical form of the state.
func (s State) String() string {
	if s == StateRunning {
		return "running"
	}

	return "waiting"
}

// isStartLike reports whether the kind contains a start effect.
func (k Kind) isStartLike() bool {
	switch k {
	case Start, Restart, RestartOrReload, TryRestart, Verify:
		return true
	}

	return false
}

// isStopLike reports whether the kind contains a stop effect.
func (k Kind) isStopLike() bool {
	switch k {
	case Stop, Restart, TryRestart, RestartOrReload:
		return true
	}

	return false
}

// Conflicting reports whether two job kinds cannot coexist on the same
// unit. The relation is symmetric: the canonical pair is Start versus
// Stop, with restart flavors counting as both.
func Conflicting(a, b Kind) bool {
	if a == b {
		return false
	}

	if a == Stop {
		return b.isStartLike() || b == Reload
	}

	if b == Stop {
		return a.isStartLike() || a == Reload
	}

	return false
}

// Merge returns the kind resulting from merging a suspended job of kind a
// with a new job of kind b on the same unit. The second return reports
// whether the two kinds are mergeable at all.
func Merge(a, b Kind) (Kind, bool) {
	if a == b {
		return a, true
	}

	if a == Nop {
		return b, true
	} else if b == Nop {
		return a, true
	}

	if Conflicting(a, b) {
		return a, false
	}

	switch {
	case pair(a, b, Start, Reload), pair(a, b, Start, TryReload):
		return RestartOrReload, true
	case pair(a, b, Start, Restart), pair(a, b, Start, TryRestart):
		return Restart, true
	case pair(a, b, Start, Verify):
		return pick(a, b, Verify), true
	case pair(a, b, Start, RestartOrReload):
		return RestartOrReload, true
	case pair(a, b, Verify, Reload), pair(a, b, Verify, TryReload),
		pair(a, b, Verify, Restart), pair(a, b, Verify, TryRestart),
		pair(a, b, Verify, RestartOrReload):
		return pick(a, b, Verify), true
	case pair(a, b, Reload, Restart), pair(a, b, Reload, TryRestart):
		return Restart, true
	case pair(a, b, Reload, TryReload):
		return Reload, true
	case pair(a, b, Restart, TryRestart), pair(a, b, Restart, RestartOrReload):
		return Restart, true
	case pair(a, b, TryReload, TryRestart):
		return TryRestart, true
	case pair(a, b, RestartOrReload, Reload), pair(a, b, RestartOrReload, TryReload):
		return RestartOrReload, true
	case pair(a, b, RestartOrReload, TryRestart):
		return Restart, true
	}

	return a, false
}

// pair reports whether {a, b} equals {x, y} in any order.
func pair(a, b, x, y Kind) bool {
	return (a == x && b == y) || (a == y && b == x)
}

// pick returns the element of {a, b} that is not the given kind; when the
// merge keeps the stronger half of the pair, the excluded kind names the
// weaker one.
func pick(a, b, excluded Kind) Kind {
	if a == excluded {
		return b
	}

	return a
}
