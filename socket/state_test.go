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
	"testing"

	untkil "github.com/sabouaram/sysinit/unit/kill"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

func TestStateToActive(t *testing.T) {
	tests := []struct {
		sts State
		act untsts.Active
	}{
		{Dead, untsts.UnitInactive},
		{StartPre, untsts.UnitActivating},
		{StartChown, untsts.UnitActivating},
		{StartPost, untsts.UnitActivating},
		{Listening, untsts.UnitActive},
		{Running, untsts.UnitActive},
		{StopPre, untsts.UnitDeactivating},
		{StopPreSigterm, untsts.UnitDeactivating},
		{StopPreSigkill, untsts.UnitDeactivating},
		{StopPost, untsts.UnitDeactivating},
		{FinalSigterm, untsts.UnitDeactivating},
		{FinalSigkill, untsts.UnitDeactivating},
		{FailedState, untsts.UnitFailed},
		{Cleaning, untsts.UnitMaintenance},
	}

	for _, tt := range tests {
		if got := tt.sts.ToActive(); got != tt.act {
			t.Errorf("%s: active = %s, want %s", tt.sts.String(), got.String(), tt.act.String())
		}
	}
}

func TestStateToKillOperation(t *testing.T) {
	if op := StopPreSigterm.ToKillOperation(false); op != untkil.Terminate {
		t.Errorf("stop-pre-sigterm without restart job: %v", op)
	}

	if op := StopPreSigterm.ToKillOperation(true); op != untkil.Kill {
		t.Errorf("stop-pre-sigterm with restart job: %v", op)
	}

	if op := FinalSigterm.ToKillOperation(false); op != untkil.Terminate {
		t.Errorf("final-sigterm: %v", op)
	}

	if op := StopPreSigkill.ToKillOperation(false); op != untkil.Kill {
		t.Errorf("stop-pre-sigkill: %v", op)
	}

	if op := FinalSigkill.ToKillOperation(false); op != untkil.Kill {
		t.Errorf("final-sigkill: %v", op)
	}
}

// The activation and deactivation chains of the supervisor must stay
// inside the allowed-edge table.
func TestAllowedEdges(t *testing.T) {
	chains := [][]State{
		{Dead, StartPre, StartChown, StartPost, Listening, Running},
		{Running, StopPre, StopPreSigterm, StopPreSigkill, StopPost, FinalSigterm, FinalSigkill, Dead},
		{Listening, StopPre, StopPost, FinalSigterm, Dead},
		{StartPre, FinalSigterm, FinalSigkill, FailedState, StartPre},
		{Running, Listening},
	}

	for _, chain := range chains {
		for i := 1; i < len(chain); i++ {
			if !canTransition(chain[i-1], chain[i]) {
				t.Errorf("edge %s -> %s refused", chain[i-1].String(), chain[i].String())
			}
		}
	}

	refused := [][2]State{
		{Dead, Running},
		{Dead, Listening},
		{StopPost, Listening},
		{FinalSigkill, StartPre},
		{Listening, StartPre},
	}

	for _, e := range refused {
		if canTransition(e[0], e[1]) {
			t.Errorf("edge %s -> %s accepted", e[0].String(), e[1].String())
		}
	}
}

// Descriptor retention per state follows the close rule of the state
// machine: serving and stop-pre states keep ports, all others drop them.
func TestStateKeepsFds(t *testing.T) {
	keep := []State{StartChown, StartPost, Listening, Running, StopPre, StopPreSigterm, StopPreSigkill}
	drop := []State{Dead, StartPre, StopPost, FinalSigterm, FinalSigkill, FailedState, Cleaning}

	for _, s := range keep {
		if !s.keepsFds() {
			t.Errorf("%s should keep fds", s.String())
		}
	}

	for _, s := range drop {
		if s.keepsFds() {
			t.Errorf("%s should drop fds", s.String())
		}
	}
}
