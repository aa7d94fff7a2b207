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

package unit_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	liberr "github.com/nabbar/golib/errors"

	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

type gateSub struct {
	sts     untsts.Active
	started int
	stopped int
}

func (s *gateSub) Load(*libufl.File) liberr.Error { return nil }

func (s *gateSub) Start() liberr.Error {
	s.started++
	s.sts = untsts.UnitActivating
	return nil
}

func (s *gateSub) Stop(bool) liberr.Error {
	s.stopped++
	s.sts = untsts.UnitDeactivating
	return nil
}

func (s *gateSub) Reload() liberr.Error                                 { return nil }
func (s *gateSub) SigchldEvent(int, int, syscall.Signal)                {}
func (s *gateSub) CurrentActiveState() untsts.Active                    { return s.sts }
func (s *gateSub) CollectFds() []int                                    { return nil }
func (s *gateSub) NotifyMessage(int, map[string]string, []int) liberr.Error { return nil }
func (s *gateSub) Snapshot() ([]byte, liberr.Error)                     { return []byte{}, nil }
func (s *gateSub) Restore([]byte) liberr.Error                          { return nil }
func (s *gateSub) Coldplug() liberr.Error                               { return nil }
func (s *gateSub) Clear()                                               {}

func newLoaded(t *testing.T, body string) (libunt.Unit, *gateSub) {
	t.Helper()

	dir := t.TempDir()
	if e := os.WriteFile(filepath.Join(dir, "a.mount"), []byte(body), 0644); e != nil {
		t.Fatalf("write: %v", e)
	}

	u, err := libunt.New("a.mount", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	s := &gateSub{sts: untsts.UnitInactive}
	u.AttachSub(s)

	if err = u.Load([]string{dir}); err != nil {
		t.Fatalf("load: %v", err)
	}

	return u, s
}

func TestStartGates(t *testing.T) {
	u, s := newLoaded(t, "[Unit]\nDescription=gate test\n")

	if err := u.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if s.started != 1 {
		t.Fatalf("sub started %d times", s.started)
	}

	// activating: a second start is a no-op reported as already
	err := u.Start()
	if err == nil || !err.HasCode(libunt.ErrorAlreadyActive) {
		t.Fatalf("start while activating: %v", err)
	}

	s.sts = untsts.UnitActive

	err = u.Start()
	if err == nil || !err.HasCode(libunt.ErrorAlreadyActive) {
		t.Fatalf("start while active: %v", err)
	}

	if s.started != 1 {
		t.Fatalf("gated start reached the sub, count = %d", s.started)
	}

	s.sts = untsts.UnitMaintenance

	err = u.Start()
	if err == nil || !err.HasCode(libunt.ErrorAgain) {
		t.Fatalf("start while maintenance: %v", err)
	}
}

func TestStartNotLoaded(t *testing.T) {
	u, err := libunt.New("b.mount", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	u.AttachSub(&gateSub{sts: untsts.UnitInactive})

	e := u.Start()
	if e == nil || !e.HasCode(libunt.ErrorNotLoaded) {
		t.Fatalf("start unloaded: %v", e)
	}
}

func TestStopAlreadyInactive(t *testing.T) {
	u, s := newLoaded(t, "[Unit]\n")

	err := u.Stop(false)
	if err == nil || !err.HasCode(libunt.ErrorAlreadyInactive) {
		t.Fatalf("stop inactive: %v", err)
	}

	if s.stopped != 0 {
		t.Fatal("gated stop reached the sub")
	}

	if err = u.Stop(true); err != nil {
		t.Fatalf("forced stop: %v", err)
	}

	if s.stopped != 1 {
		t.Fatal("forced stop did not reach the sub")
	}
}

func TestConditionSkipsStart(t *testing.T) {
	u, s := newLoaded(t, "[Unit]\nConditionPathExists=/does/not/exist/anywhere\n")

	err := u.Start()
	if err == nil || !err.HasCode(libunt.ErrorConditionFailed) {
		t.Fatalf("condition start: %v", err)
	}

	if s.started != 0 {
		t.Fatal("skipped start reached the sub")
	}

	if u.ActiveState() != untsts.UnitInactive {
		t.Fatal("condition failure changed the unit state")
	}
}

func TestAssertFailsStart(t *testing.T) {
	u, s := newLoaded(t, "[Unit]\nAssertPathExists=/does/not/exist/anywhere\n")

	err := u.Start()
	if err == nil || !err.HasCode(libunt.ErrorAssertFailed) {
		t.Fatalf("assert start: %v", err)
	}

	if s.started != 0 {
		t.Fatal("asserted start reached the sub")
	}
}

func TestNegatedCondition(t *testing.T) {
	u, _ := newLoaded(t, "[Unit]\nConditionPathExists=!/does/not/exist/anywhere\n")

	if err := u.Start(); err != nil {
		t.Fatalf("negated condition blocked the start: %v", err)
	}
}

func TestStartLimit(t *testing.T) {
	u, s := newLoaded(t, "[Unit]\nStartLimitIntervalSec=60\nStartLimitBurst=2\n")

	for i := 0; i < 2; i++ {
		if err := u.Start(); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		// back to inactive for the next attempt
		u.Notify(untsts.UnitActivating, untsts.UnitInactive, 0)
		s.sts = untsts.UnitInactive
	}

	err := u.Start()
	if err == nil || !err.HasCode(libunt.ErrorStartLimit) {
		t.Fatalf("start over the limit: %v", err)
	}
}
