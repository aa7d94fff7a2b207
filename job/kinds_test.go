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

package job_test

import (
	"testing"

	libjob "github.com/sabouaram/sysinit/job"
)

var allKinds = []libjob.Kind{
	libjob.Start, libjob.Verify, libjob.Nop, libjob.Reload, libjob.Restart,
	libjob.RestartOrReload, libjob.TryReload, libjob.TryRestart, libjob.Stop,
}

// The conflict relation must be symmetric and anchored on the canonical
// start versus stop pair.
func TestConflictingSymmetric(t *testing.T) {
	for _, a := range allKinds {
		for _, b := range allKinds {
			if libjob.Conflicting(a, b) != libjob.Conflicting(b, a) {
				t.Errorf("conflict not symmetric for %s / %s", a.String(), b.String())
			}
		}
	}

	if !libjob.Conflicting(libjob.Start, libjob.Stop) {
		t.Error("start / stop must conflict")
	}

	if !libjob.Conflicting(libjob.Restart, libjob.Stop) {
		t.Error("restart counts as start and must conflict with stop")
	}

	if libjob.Conflicting(libjob.Start, libjob.Start) {
		t.Error("identical kinds never conflict")
	}

	if libjob.Conflicting(libjob.Start, libjob.Reload) {
		t.Error("start / reload must be mergeable, not conflicting")
	}
}

func TestMergeMatrix(t *testing.T) {
	tests := []struct {
		a, b libjob.Kind
		out  libjob.Kind
		ok   bool
	}{
		{libjob.Start, libjob.Start, libjob.Start, true},
		{libjob.Stop, libjob.Stop, libjob.Stop, true},
		{libjob.Start, libjob.Reload, libjob.RestartOrReload, true},
		{libjob.Reload, libjob.Start, libjob.RestartOrReload, true},
		{libjob.Start, libjob.Restart, libjob.Restart, true},
		{libjob.Restart, libjob.Start, libjob.Restart, true},
		{libjob.Start, libjob.Verify, libjob.Start, true},
		{libjob.Reload, libjob.TryReload, libjob.Reload, true},
		{libjob.Restart, libjob.TryRestart, libjob.Restart, true},
		{libjob.Nop, libjob.Stop, libjob.Stop, true},
		{libjob.Stop, libjob.Start, 0, false},
		{libjob.Stop, libjob.Restart, 0, false},
		{libjob.Stop, libjob.Reload, 0, false},
	}

	for _, tt := range tests {
		out, ok := libjob.Merge(tt.a, tt.b)

		if ok != tt.ok {
			t.Errorf("merge %s + %s: ok = %v, want %v", tt.a.String(), tt.b.String(), ok, tt.ok)
			continue
		}

		if ok && out != tt.out {
			t.Errorf("merge %s + %s = %s, want %s", tt.a.String(), tt.b.String(), out.String(), tt.out.String())
		}
	}
}

// Merging is commutative over the mergeable pairs.
func TestMergeCommutative(t *testing.T) {
	for _, a := range allKinds {
		for _, b := range allKinds {
			ra, ka := libjob.Merge(a, b)
			rb, kb := libjob.Merge(b, a)

			if ka != kb {
				t.Errorf("mergeability differs for %s / %s", a.String(), b.String())
			} else if ka && ra != rb {
				t.Errorf("merge result differs for %s / %s: %s vs %s", a.String(), b.String(), ra.String(), rb.String())
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	for s, m := range map[string]libjob.Mode{
		"":                     libjob.ModeReplace,
		"replace":              libjob.ModeReplace,
		"fail":                 libjob.ModeFail,
		"replace-irreversibly": libjob.ModeReplaceIrreversibly,
		"isolate":              libjob.ModeIsolate,
		"flush":                libjob.ModeFlush,
		"ignore-dependencies":  libjob.ModeIgnoreDependencies,
		"ignore-requirements":  libjob.ModeIgnoreRequirements,
		"trigger":              libjob.ModeTrigger,
	} {
		if got, e := libjob.ParseMode(s); e != nil || got != m {
			t.Errorf("parse %q = %v / %v", s, got, e)
		}
	}

	if _, e := libjob.ParseMode("nosuch"); e == nil {
		t.Error("expected error for unknown mode")
	}
}
