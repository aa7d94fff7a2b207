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

package child_test

import (
	"sync"
	"syscall"
	"testing"

	liberr "github.com/nabbar/golib/errors"

	libchd "github.com/sabouaram/sysinit/child"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

// recordSub records routed child exits.
type recordSub struct {
	m    sync.Mutex
	seen []libchd.Exit
}

func (s *recordSub) events() []libchd.Exit {
	s.m.Lock()
	defer s.m.Unlock()

	res := make([]libchd.Exit, len(s.seen))
	copy(res, s.seen)
	return res
}

func (s *recordSub) Load(*libufl.File) liberr.Error { return nil }
func (s *recordSub) Start() liberr.Error            { return nil }
func (s *recordSub) Stop(bool) liberr.Error         { return nil }
func (s *recordSub) Reload() liberr.Error           { return nil }

func (s *recordSub) SigchldEvent(pid int, code int, sig syscall.Signal) {
	s.m.Lock()
	defer s.m.Unlock()
	s.seen = append(s.seen, libchd.Exit{Pid: pid, Code: code, Signal: sig})
}

func (s *recordSub) CurrentActiveState() untsts.Active                     { return untsts.UnitActive }
func (s *recordSub) CollectFds() []int                                     { return nil }
func (s *recordSub) NotifyMessage(int, map[string]string, []int) liberr.Error { return nil }
func (s *recordSub) Snapshot() ([]byte, liberr.Error)                      { return []byte{}, nil }
func (s *recordSub) Restore([]byte) liberr.Error                           { return nil }
func (s *recordSub) Coldplug() liberr.Error                                { return nil }
func (s *recordSub) Clear()                                                {}

func newUnit(t *testing.T, name string) (libunt.Unit, *recordSub) {
	t.Helper()

	u, err := libunt.New(name, nil)
	if err != nil {
		t.Fatalf("unit: %v", err)
	}

	s := &recordSub{}
	u.AttachSub(s)

	return u, s
}

// Every attributed pid must map back to its owning unit, and the unit
// child set must mirror the index.
func TestWatchBijection(t *testing.T) {
	cm := libchd.New(nil)

	a, _ := newUnit(t, "a.mount")
	b, _ := newUnit(t, "b.mount")

	cm.Watch(a, 101)
	cm.Watch(a, 102)
	cm.Watch(b, 201)

	for _, p := range a.ChildPids() {
		if cm.UnitByPid(p) != a {
			t.Errorf("pid %d not mapped back to its unit", p)
		}
	}

	if got := a.ChildPids(); len(got) != 2 || got[0] != 101 || got[1] != 102 {
		t.Fatalf("unexpected child set: %v", got)
	}

	cm.Unwatch(a, 101)

	if cm.UnitByPid(101) != nil {
		t.Error("unwatched pid still indexed")
	}

	if got := a.ChildPids(); len(got) != 1 || got[0] != 102 {
		t.Fatalf("unexpected child set after unwatch: %v", got)
	}

	if cm.UnitByPid(201) != b {
		t.Error("other unit attribution lost")
	}
}

func TestDispatchRoutes(t *testing.T) {
	cm := libchd.New(nil)

	a, sub := newUnit(t, "a.mount")
	cm.Watch(a, 300)

	cm.Dispatch(libchd.Exit{Pid: 300, Code: 1})

	ev := sub.events()
	if len(ev) != 1 || ev[0].Pid != 300 || ev[0].Code != 1 {
		t.Fatalf("unexpected events: %v", ev)
	}

	if cm.UnitByPid(300) != nil {
		t.Error("dispatched pid still indexed")
	}

	if len(a.ChildPids()) != 0 {
		t.Error("dispatched pid still attributed")
	}
}

// A wait result arriving before the pid is attributed is buffered and
// delivered at attribution time.
func TestDispatchBuffersUnknownPid(t *testing.T) {
	cm := libchd.New(nil)

	cm.Dispatch(libchd.Exit{Pid: 400, Signal: syscall.SIGKILL})

	a, sub := newUnit(t, "a.mount")
	cm.Watch(a, 400)

	ev := sub.events()
	if len(ev) != 1 || ev[0].Pid != 400 || ev[0].Signal != syscall.SIGKILL {
		t.Fatalf("buffered exit not delivered: %v", ev)
	}
}

func TestDispatchUnknownPidBounded(t *testing.T) {
	cm := libchd.New(nil)

	for p := 1000; p < 1200; p++ {
		cm.Dispatch(libchd.Exit{Pid: p})
	}

	// the oldest entries were evicted; a late watch on them sees nothing
	a, sub := newUnit(t, "a.mount")
	cm.Watch(a, 1000)

	if len(sub.events()) != 0 {
		t.Error("evicted exit was delivered")
	}
}

func TestSnapshotRestore(t *testing.T) {
	cm := libchd.New(nil)

	a, _ := newUnit(t, "a.mount")
	cm.Watch(a, 501)
	cm.Watch(a, 502)

	snap := cm.Snapshot()
	if len(snap["a.mount"]) != 2 {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	// restore into a fresh manager; the pids are long gone, so the
	// restore synthesizes failed exits instead of keeping dead entries
	b, sub := newUnit(t, "a.mount")
	cm2 := libchd.New(nil)
	cm2.Restore(snap, func(name string) libunt.Unit { return b })

	if got := len(sub.events()); got != 2 {
		t.Fatalf("expected 2 synthesized exits, got %d", got)
	}

	if len(b.ChildPids()) != 0 {
		t.Error("dead pids still attributed after restore")
	}
}
