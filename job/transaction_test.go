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
	"os"
	"path/filepath"
	"sync"
	"syscall"

	liberr "github.com/nabbar/golib/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libjob "github.com/sabouaram/sysinit/job"
	libreg "github.com/sabouaram/sysinit/registry"
	libunt "github.com/sabouaram/sysinit/unit"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

// stubSub is an asynchronously activating sub unit: lifecycle verbs only
// move it to the transitional state, the test drives the completion.
type stubSub struct {
	m   sync.Mutex
	unt libunt.Unit
	sts untsts.Active
}

func (s *stubSub) set(to untsts.Active) {
	s.m.Lock()
	old := s.sts
	s.sts = to
	s.m.Unlock()

	if old != to {
		s.unt.Notify(old, to, 0)
	}
}

func (s *stubSub) complete() {
	switch s.CurrentActiveState() {
	case untsts.UnitActivating:
		s.set(untsts.UnitActive)
	case untsts.UnitDeactivating:
		s.set(untsts.UnitInactive)
	}
}

func (s *stubSub) fail() {
	s.set(untsts.UnitFailed)
}

func (s *stubSub) Load(f *libufl.File) liberr.Error { return nil }

func (s *stubSub) Start() liberr.Error {
	s.set(untsts.UnitActivating)
	return nil
}

func (s *stubSub) Stop(force bool) liberr.Error {
	s.set(untsts.UnitDeactivating)
	return nil
}

func (s *stubSub) Reload() liberr.Error { return nil }

func (s *stubSub) SigchldEvent(pid int, code int, sig syscall.Signal) {}

func (s *stubSub) CurrentActiveState() untsts.Active {
	s.m.Lock()
	defer s.m.Unlock()
	return s.sts
}

func (s *stubSub) CollectFds() []int { return nil }

func (s *stubSub) NotifyMessage(pid int, kv map[string]string, fds []int) liberr.Error {
	return nil
}

func (s *stubSub) Snapshot() ([]byte, liberr.Error) { return []byte{}, nil }

func (s *stubSub) Restore(data []byte) liberr.Error { return nil }

func (s *stubSub) Coldplug() liberr.Error { return nil }

func (s *stubSub) Clear() {
	s.m.Lock()
	defer s.m.Unlock()

	if s.sts == untsts.UnitFailed {
		s.sts = untsts.UnitInactive
	}
}

type world struct {
	reg  libreg.Registry
	eng  libjob.Engine
	subs map[string]*stubSub
	done map[string][]libjob.Result
}

func newWorld(files map[string]string) *world {
	dir := GinkgoT().TempDir()

	for name, body := range files {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(body), 0644)).To(Succeed())
	}

	w := &world{
		subs: make(map[string]*stubSub),
		done: make(map[string][]libjob.Result),
	}

	w.reg = libreg.New(globalCtx, nil)
	w.reg.SetSearchPaths(dir)
	w.reg.RegisterKind(untknd.Mount, func(u libunt.Unit) libunt.SubUnit {
		s := &stubSub{unt: u, sts: untsts.UnitInactive}
		w.subs[u.ID()] = s
		return s
	})

	w.eng = libjob.New(w.reg, nil)
	w.eng.RegisterFuncDone(func(i libjob.Info, res libjob.Result) {
		w.done[i.Unit] = append(w.done[i.Unit], res)
	})

	w.reg.RegisterNotify(func(u libunt.Unit, from, to untsts.Active, flags libunt.NotifyFlags) {
		w.eng.UnitNotify(u, from, to, flags)
	})

	return w
}

func (w *world) unit(name string) libunt.Unit {
	u, err := w.reg.Load(name)
	Expect(err).ToNot(HaveOccurred())
	return u
}

func (w *world) activate(name string) {
	u := w.unit(name)
	Expect(w.eng.Exec(libjob.Conf{Unit: u, Kind: libjob.Start}, libjob.ModeReplace)).To(Succeed())
	w.subs[name].complete()
	Expect(u.ActiveState()).To(Equal(untsts.UnitActive))
}

func (w *world) jobKinds() map[string]libjob.Kind {
	res := make(map[string]libjob.Kind)
	for _, j := range w.eng.Jobs() {
		res[j.Unit] = j.Kind
	}
	return res
}

const plainUnit = "[Unit]\nDescription=test unit\n"

var _ = Describe("Job Transaction Engine", func() {
	Context("conflicting transactions", func() {
		It("should refuse a fail-mode stop over a running start", func() {
			w := newWorld(map[string]string{"a.mount": plainUnit})
			a := w.unit("a.mount")

			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Start}, libjob.ModeReplace)).To(Succeed())
			Expect(w.eng.HasStartJob("a.mount")).To(BeTrue())

			before := w.eng.Jobs()

			err := w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Stop}, libjob.ModeFail)
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libjob.ErrorJobConflict)).To(BeTrue())

			// failed verification leaves the run table untouched
			Expect(w.eng.Jobs()).To(Equal(before))
		})

		It("should replace a running start when the mode permits it", func() {
			w := newWorld(map[string]string{"a.mount": plainUnit})
			a := w.unit("a.mount")

			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Start}, libjob.ModeReplace)).To(Succeed())
			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Stop}, libjob.ModeReplace)).To(Succeed())

			Expect(w.eng.HasStopJob("a.mount")).To(BeTrue())
			Expect(w.done["a.mount"]).To(ContainElement(libjob.ResultCancelled))
		})

		It("should protect an irreversible job from replacement", func() {
			w := newWorld(map[string]string{"a.mount": plainUnit})
			w.activate("a.mount")
			a := w.unit("a.mount")

			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Stop}, libjob.ModeReplaceIrreversibly)).To(Succeed())
			Expect(w.eng.HasStopJob("a.mount")).To(BeTrue())

			err := w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Start}, libjob.ModeReplace)
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libjob.ErrorJobConflict)).To(BeTrue())
		})
	})

	Context("isolate", func() {
		It("should stop everything except opted-out units", func() {
			w := newWorld(map[string]string{
				"a.mount": plainUnit,
				"b.mount": "[Unit]\nDescription=opted out\nIgnoreOnIsolate=true\n",
				"c.mount": plainUnit,
				"d.mount": plainUnit,
			})

			w.activate("a.mount")
			w.activate("b.mount")
			w.activate("c.mount")

			d := w.unit("d.mount")
			Expect(w.eng.Exec(libjob.Conf{Unit: d, Kind: libjob.Start}, libjob.ModeIsolate)).To(Succeed())

			kinds := w.jobKinds()
			Expect(kinds).To(HaveKeyWithValue("d.mount", libjob.Start))
			Expect(kinds).To(HaveKeyWithValue("a.mount", libjob.Stop))
			Expect(kinds).To(HaveKeyWithValue("c.mount", libjob.Stop))
			Expect(kinds).ToNot(HaveKey("b.mount"))
			Expect(kinds).To(HaveLen(3))
		})
	})

	Context("restart propagation", func() {
		It("should propagate restart as try-restart and no-op on inactive units", func() {
			w := newWorld(map[string]string{
				"x.mount": plainUnit,
				"y.mount": plainUnit,
			})

			x := w.unit("x.mount")
			y := w.unit("y.mount")
			x.DepAdd(untrel.PropagateRestart, y.ID())

			Expect(w.eng.Exec(libjob.Conf{Unit: x, Kind: libjob.Restart}, libjob.ModeReplace)).To(Succeed())

			// y is inactive: its try-restart concluded without effect
			Expect(w.done["y.mount"]).To(Equal([]libjob.Result{libjob.ResultDone}))
			Expect(y.ActiveState()).To(Equal(untsts.UnitInactive))

			// x went straight to its start phase
			Expect(x.ActiveState()).To(Equal(untsts.UnitActivating))
			w.subs["x.mount"].complete()

			Expect(w.done["x.mount"]).To(Equal([]libjob.Result{libjob.ResultDone}))
			Expect(x.ActiveState()).To(Equal(untsts.UnitActive))
			Expect(w.eng.Jobs()).To(BeEmpty())
		})
	})

	Context("dependency expansion", func() {
		It("should pull required units into the transaction", func() {
			w := newWorld(map[string]string{
				"a.mount": "[Unit]\nDescription=top\nRequires=b.mount\n",
				"b.mount": plainUnit,
			})

			a := w.unit("a.mount")
			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Start}, libjob.ModeReplace)).To(Succeed())

			kinds := w.jobKinds()
			Expect(kinds).To(HaveKeyWithValue("a.mount", libjob.Start))
			Expect(kinds).To(HaveKeyWithValue("b.mount", libjob.Start))
		})

		It("should remove dependent start jobs when the requirement fails", func() {
			w := newWorld(map[string]string{
				"a.mount": "[Unit]\nDescription=top\nRequires=b.mount\nAfter=b.mount\n",
				"b.mount": plainUnit,
			})

			a := w.unit("a.mount")
			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Start}, libjob.ModeReplace)).To(Succeed())

			// a waits for b through its ordering edge
			Expect(w.subs["b.mount"].CurrentActiveState()).To(Equal(untsts.UnitActivating))
			Expect(w.subs["a.mount"].CurrentActiveState()).To(Equal(untsts.UnitInactive))

			w.subs["b.mount"].fail()

			Expect(w.done["b.mount"]).To(Equal([]libjob.Result{libjob.ResultFailed}))
			Expect(w.done["a.mount"]).To(Equal([]libjob.Result{libjob.ResultDependency}))
			Expect(w.eng.Jobs()).To(BeEmpty())
		})

		It("should skip expansion when dependencies are ignored", func() {
			w := newWorld(map[string]string{
				"a.mount": "[Unit]\nDescription=top\nRequires=b.mount\n",
				"b.mount": plainUnit,
			})

			a := w.unit("a.mount")
			Expect(w.eng.Exec(libjob.Conf{Unit: a, Kind: libjob.Start}, libjob.ModeIgnoreDependencies)).To(Succeed())

			kinds := w.jobKinds()
			Expect(kinds).To(HaveKeyWithValue("a.mount", libjob.Start))
			Expect(kinds).ToNot(HaveKey("b.mount"))
		})
	})
})
