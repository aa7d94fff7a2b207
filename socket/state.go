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

package socket

import (
	untkil "github.com/sabouaram/sysinit/unit/kill"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

// State is the internal state of a socket unit.
type State uint8

const (
	// Dead means no resource is held and nothing is in flight.
	Dead State = iota

	// StartPre means an ExecStartPre command is running.
	StartPre

	// StartChown means the listening descriptors are being opened.
	StartChown

	// StartPost means an ExecStartPost command is running.
	StartPost

	// Listening means the ports are bound and watched for traffic.
	Listening

	// Running means the triggered service owns the traffic.
	Running

	// StopPre means an ExecStopPre command is running.
	StopPre

	// StopPreSigterm means the stop-pre processes got the terminate signal.
	StopPreSigterm

	// StopPreSigkill means the stop-pre processes got the kill signal.
	StopPreSigkill

	// StopPost means an ExecStopPost command is running.
	StopPost

	// FinalSigterm means remaining processes got the terminate signal.
	FinalSigterm

	// FinalSigkill means remaining processes got the kill signal.
	FinalSigkill

	// FailedState means the last cycle ended with a failure result.
	FailedState

	// Cleaning means unit resources are being cleaned.
	Cleaning
)

// Result is the terminal outcome recorded for a socket cycle.
type Result uint8

const (
	// ResultSuccess means the cycle concluded normally.
	ResultSuccess Result = iota

	// ResultFailureResources means a fork, bind or trigger failed.
	ResultFailureResources

	// ResultFailureExitCode means a control command exited non zero.
	ResultFailureExitCode

	// ResultFailureSignal means a control command died on a signal.
	ResultFailureSignal

	// ResultFailureCoreDump means a control command dumped core.
	ResultFailureCoreDump

	// ResultFailureStartLimit means the start rate limit was hit.
	ResultFailureStartLimit
)

// String returns the canonical form of the state.
func (s State) String() string {
	switch s {
	case Dead:
		return "dead"
	case StartPre:
		return "start-pre"
	case StartChown:
		return "start-chown"
	case StartPost:
		return "start-post"
	case Listening:
		return "listening"
	case Running:
		return "running"
	case StopPre:
		return "stop-pre"
	case StopPreSigterm:
		return "stop-pre-sigterm"
	case StopPreSigkill:
		return "stop-pre-sigkill"
	case StopPost:
		return "stop-post"
	case FinalSigterm:
		return "final-sigterm"
	case FinalSigkill:
		return "final-sigkill"
	case FailedState:
		return "failed"
	case Cleaning:
		return "cleaning"
	}

	return "dead"
}

// ToActive maps the socket state to the common active state enum.
func (s State) ToActive() untsts.Active {
	switch s {
	case Dead:
		return untsts.UnitInactive
	case StartPre, StartChown, StartPost:
		return untsts.UnitActivating
	case Listening, Running:
		return untsts.UnitActive
	case StopPre, StopPreSigterm, StopPreSigkill, StopPost, FinalSigterm, FinalSigkill:
		return untsts.UnitDeactivating
	case FailedState:
		return untsts.UnitFailed
	case Cleaning:
		return untsts.UnitMaintenance
	}

	return untsts.UnitInactive
}

// ToKillOperation maps a signal delivering state to the kill operation it
// uses. StopPreSigterm downgrades to kill only when a restart job is
// queued for the unit, to shorten the window before the restart.
func (s State) ToKillOperation(hasRestartJob bool) untkil.Operation {
	switch s {
	case StopPreSigterm:
		if hasRestartJob {
			return untkil.Kill
		}
		return untkil.Terminate
	case FinalSigterm:
		return untkil.Terminate
	}

	return untkil.Kill
}

// watchesControl reports whether the state runs a control command whose
// pid must stay watched.
func (s State) watchesControl() bool {
	switch s {
	case StartPre, StartChown, StartPost,
		StopPre, StopPreSigterm, StopPreSigkill,
		StopPost, FinalSigterm, FinalSigkill:
		return true
	}

	return false
}

// keepsFds reports whether the state may hold open port descriptors.
func (s State) keepsFds() bool {
	switch s {
	case StartChown, StartPost, Listening, Running,
		StopPre, StopPreSigterm, StopPreSigkill:
		return true
	}

	return false
}

// allowedEdges is the transition table of the socket state machine. Every
// transition request is validated against it before entry actions run.
var allowedEdges = map[State][]State{
	Dead:           {StartPre, Cleaning},
	StartPre:       {StartChown, StopPre, StopPreSigterm, FinalSigterm, Dead, FailedState},
	StartChown:     {StartPost, StopPre, StopPreSigterm},
	StartPost:      {Listening, StopPre, StopPreSigterm},
	Listening:      {Running, StopPre, StopPreSigterm, Dead, FailedState},
	Running:        {Listening, StopPre, StopPreSigterm, Dead, FailedState},
	StopPre:        {StopPreSigterm, StopPreSigkill, StopPost, FinalSigterm, Dead, FailedState},
	StopPreSigterm: {StopPreSigkill, StopPost, FinalSigterm, Dead, FailedState},
	StopPreSigkill: {StopPost, FinalSigterm, Dead, FailedState},
	StopPost:       {FinalSigterm, FinalSigkill, Dead, FailedState},
	FinalSigterm:   {FinalSigkill, Dead, FailedState},
	FinalSigkill:   {Dead, FailedState},
	FailedState:    {StartPre, Dead, Cleaning},
	Cleaning:       {Dead, FailedState},
}

// canTransition reports whether moving from one state to the other is an
// allowed edge.
func canTransition(from, to State) bool {
	if from == to {
		return true
	}

	for _, s := range allowedEdges[from] {
		if s == to {
			return true
		}
	}

	return false
}
