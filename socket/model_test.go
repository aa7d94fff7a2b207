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
	"net"
	"path/filepath"
	"testing"
	"time"

	liberr "github.com/nabbar/golib/errors"

	libevt "github.com/sabouaram/sysinit/event"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

type fakeUm struct {
	loop    libevt.Loop
	started []string
	stopJob bool
}

func (f *fakeUm) Events() libevt.Loop             { return f.loop }
func (f *fakeUm) HasStopJob(string) bool          { return f.stopJob }
func (f *fakeUm) HasRestartJob(string) bool       { return false }
func (f *fakeUm) ActiveOrPending(id string) bool {
	for _, s := range f.started {
		if s == id {
			return true
		}
	}
	return false
}

func (f *fakeUm) StartTriggered(socketID, serviceID string, connFd int) liberr.Error {
	f.started = append(f.started, serviceID)
	return nil
}

func (f *fakeUm) WatchPid(libunt.Unit, int)   {}
func (f *fakeUm) UnwatchPid(libunt.Unit, int) {}
func (f *fakeUm) StateSaved(libunt.Unit)      {}
func (f *fakeUm) FrameListen(libunt.Unit, bool) {}
func (f *fakeUm) FrameClear(libunt.Unit)      {}

func newListeningSocket(t *testing.T) (SocketUnit, *fakeUm, string) {
	t.Helper()

	loop, err := libevt.New()
	if err != nil {
		t.Fatalf("loop: %v", err)
	}

	t.Cleanup(func() { _ = loop.Close() })

	um := &fakeUm{loop: loop}

	u, err := libunt.New("app.socket", nil)
	if err != nil {
		t.Fatalf("unit: %v", err)
	}

	sck := New(u, um, nil)
	u.AttachSub(sck)

	path := filepath.Join(t.TempDir(), "app.sock")

	f := &libufl.File{
		Name: "app.socket",
		Socket: &libufl.SectionSocket{
			ListenStream: []string{path},
			Service:      "app.service",
		},
	}

	if err = sck.Load(f); err != nil {
		t.Fatalf("load: %v", err)
	}

	u.SetLoadState(untsts.UnitLoaded)

	if err = u.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// drive the activation chain through the loop until listening
	waitState(t, loop, sck, Listening)

	return sck, um, path
}

func waitState(t *testing.T, loop libevt.Loop, sck SocketUnit, want State) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if sck.State() == want {
			return
		}

		if err := loop.RunOnce(20); err != nil {
			t.Fatalf("loop: %v", err)
		}
	}

	t.Fatalf("state = %s, want %s", sck.State().String(), want.String())
}

// Start binds the declared listener, reaches the listening state and a
// first connection triggers the associated service and moves the unit to
// running with the listener handed over.
func TestSocketActivation(t *testing.T) {
	sck, um, path := newListeningSocket(t)
	loop := um.loop

	if sck.CurrentActiveState() != untsts.UnitActive {
		t.Fatalf("active state = %s", sck.CurrentActiveState().String())
	}

	fds := sck.CollectFds()
	if len(fds) != 1 || fds[0] < 0 {
		t.Fatalf("collected fds = %v", fds)
	}

	conn, e := net.Dial("unix", path)
	if e != nil {
		t.Fatalf("dial: %v", e)
	}

	defer func() { _ = conn.Close() }()

	waitState(t, loop, sck, Running)

	if len(um.started) != 1 || um.started[0] != "app.service" {
		t.Fatalf("triggered services = %v", um.started)
	}

	// the triggered service dying while the socket stays active brings
	// the listener back
	sck.TriggerNotify(untsts.UnitFailed)
	waitState(t, loop, sck, Listening)
}

func TestSocketStopChain(t *testing.T) {
	sck, um, _ := newListeningSocket(t)

	u := sck.(*mng).unt

	if err := u.Stop(false); err != nil {
		t.Fatalf("stop: %v", err)
	}

	waitState(t, um.loop, sck, Dead)

	if sck.Result() != ResultSuccess {
		t.Fatalf("result = %d", sck.Result())
	}

	for _, p := range sck.Ports() {
		if p.Fd() >= 0 {
			t.Fatalf("port %s still owns fd %d after dead", p.Listen(), p.Fd())
		}
	}
}

// While a stop job is queued for the socket, traffic does not trigger the
// service: the queue is flushed and nothing starts.
func TestSocketBackPressure(t *testing.T) {
	sck, um, path := newListeningSocket(t)
	um.stopJob = true

	conn, e := net.Dial("unix", path)
	if e != nil {
		t.Fatalf("dial: %v", e)
	}

	defer func() { _ = conn.Close() }()

	// give the loop a few rounds to observe and flush
	for i := 0; i < 10; i++ {
		if err := um.loop.RunOnce(20); err != nil {
			t.Fatalf("loop: %v", err)
		}
	}

	if len(um.started) != 0 {
		t.Fatalf("triggered services = %v", um.started)
	}

	if sck.State() != Listening {
		t.Fatalf("state = %s", sck.State().String())
	}
}
