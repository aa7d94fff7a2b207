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

// registry_test.go validates the unit registry lifecycle: creation on
// first reference, load completion, translation of configuration
// relations into expansion edges (including inverse edges) and cross-unit
// resolution.
package registry_test

import (
	"os"
	"path/filepath"
	"syscall"

	liberr "github.com/nabbar/golib/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libreg "github.com/sabouaram/sysinit/registry"
	libunt "github.com/sabouaram/sysinit/unit"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

type nopSub struct{}

func (nopSub) Load(*libufl.File) liberr.Error                           { return nil }
func (nopSub) Start() liberr.Error                                      { return nil }
func (nopSub) Stop(bool) liberr.Error                                   { return nil }
func (nopSub) Reload() liberr.Error                                     { return nil }
func (nopSub) SigchldEvent(int, int, syscall.Signal)                    {}
func (nopSub) CurrentActiveState() untsts.Active                        { return untsts.UnitInactive }
func (nopSub) CollectFds() []int                                        { return nil }
func (nopSub) NotifyMessage(int, map[string]string, []int) liberr.Error { return nil }
func (nopSub) Snapshot() ([]byte, liberr.Error)                         { return []byte{}, nil }
func (nopSub) Restore([]byte) liberr.Error                              { return nil }
func (nopSub) Coldplug() liberr.Error                                   { return nil }
func (nopSub) Clear()                                                   {}

func newTestRegistry(files map[string]string) libreg.Registry {
	dir := GinkgoT().TempDir()

	for name, body := range files {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(body), 0644)).To(Succeed())
	}

	reg := libreg.New(globalCtx, nil)
	reg.SetSearchPaths(dir)
	reg.RegisterKind(untknd.Mount, func(u libunt.Unit) libunt.SubUnit { return nopSub{} })
	reg.RegisterKind(untknd.Target, func(u libunt.Unit) libunt.SubUnit { return nopSub{} })

	return reg
}

var _ = Describe("Unit Registry", func() {
	Context("unit identity", func() {
		It("should create a unit on first reference and keep its identity", func() {
			reg := newTestRegistry(nil)

			Expect(reg.Has("a.mount")).To(BeFalse())

			u, err := reg.Ref("a.mount")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).ToNot(BeNil())
			Expect(reg.Has("a.mount")).To(BeTrue())
			Expect(u.LoadState()).To(Equal(untsts.UnitStub))

			v, err := reg.Ref("a.mount")
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(BeIdenticalTo(u))
		})

		It("should refuse a kind without a registered factory", func() {
			reg := newTestRegistry(nil)

			_, err := reg.Ref("a.timer")
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libreg.ErrorKindUnsupported)).To(BeTrue())
		})

		It("should list and drop units", func() {
			reg := newTestRegistry(nil)

			_, err := reg.Ref("a.mount")
			Expect(err).ToNot(HaveOccurred())
			_, err = reg.Ref("b.mount")
			Expect(err).ToNot(HaveOccurred())

			Expect(reg.Keys()).To(Equal([]string{"a.mount", "b.mount"}))

			reg.Del("a.mount")
			Expect(reg.Has("a.mount")).To(BeFalse())

			reg.Clear()
			Expect(reg.Keys()).To(BeEmpty())
		})
	})

	Context("loading", func() {
		It("should reach the loaded state and apply expansion edges", func() {
			reg := newTestRegistry(map[string]string{
				"a.mount": "[Unit]\nRequires=b.mount\nWants=c.mount\nConflicts=d.mount\nAfter=b.mount\n",
			})

			a, err := reg.Load("a.mount")
			Expect(err).ToNot(HaveOccurred())
			Expect(a.LoadState()).To(Equal(untsts.UnitLoaded))

			Expect(a.DepHas(untrel.PullInStart, "b.mount")).To(BeTrue())
			Expect(a.DepHas(untrel.PullInStartIgnored, "c.mount")).To(BeTrue())
			Expect(a.DepHas(untrel.PullInStop, "d.mount")).To(BeTrue())
			Expect(a.DepHas(untrel.After, "b.mount")).To(BeTrue())
		})

		It("should record inverse edges on the pointed units", func() {
			reg := newTestRegistry(map[string]string{
				"a.mount": "[Unit]\nRequires=b.mount\nConflicts=d.mount\n",
			})

			_, err := reg.Load("a.mount")
			Expect(err).ToNot(HaveOccurred())

			b := reg.Get("b.mount")
			Expect(b).ToNot(BeNil())
			Expect(b.DepHas(untrel.PropagateStartFailure, "a.mount")).To(BeTrue())

			d := reg.Get("d.mount")
			Expect(d).ToNot(BeNil())
			Expect(d.DepHas(untrel.PullInStopIgnored, "a.mount")).To(BeTrue())
		})

		It("should record the trigger edges of a socket unit", func() {
			reg := newTestRegistry(map[string]string{
				"app.socket": "[Socket]\nListenStream=/tmp/app.sock\nService=app.service\n",
			})

			// the socket kind factory is what the manager installs; a
			// placeholder suffices for dependency application
			reg.RegisterKind(untknd.Socket, func(u libunt.Unit) libunt.SubUnit { return nopSub{} })
			reg.RegisterKind(untknd.Service, func(u libunt.Unit) libunt.SubUnit { return nopSub{} })

			s, err := reg.Load("app.socket")
			Expect(err).ToNot(HaveOccurred())

			Expect(s.DepHas(untrel.Triggers, "app.service")).To(BeTrue())
			Expect(s.DepHas(untrel.Before, "app.service")).To(BeTrue())

			svc := reg.Get("app.service")
			Expect(svc).ToNot(BeNil())
			Expect(svc.DepHas(untrel.TriggeredBy, "app.socket")).To(BeTrue())
		})

		It("should keep the frame on a missing description", func() {
			reg := newTestRegistry(nil)

			u, err := reg.Load("missing.mount")
			Expect(err).To(HaveOccurred())
			Expect(u).ToNot(BeNil())
			Expect(u.LoadState()).To(Equal(untsts.UnitNotFound))
		})

		It("should not reload an already loaded unit", func() {
			reg := newTestRegistry(map[string]string{"a.mount": "[Unit]\nDescription=one\n"})

			a, err := reg.Load("a.mount")
			Expect(err).ToNot(HaveOccurred())

			cfg := a.Config()

			b, err := reg.Load("a.mount")
			Expect(err).ToNot(HaveOccurred())
			Expect(b).To(BeIdenticalTo(a))
			Expect(b.Config()).To(BeIdenticalTo(cfg))
		})
	})

	Context("cross-unit resolution", func() {
		It("should resolve dependency sets in insertion order", func() {
			reg := newTestRegistry(map[string]string{
				"a.mount": "[Unit]\nRequires=b.mount c.mount\n",
			})

			a, err := reg.Load("a.mount")
			Expect(err).ToNot(HaveOccurred())

			lst := reg.DepsRelation(a, untrel.PullInStart)
			Expect(lst).To(HaveLen(2))
			Expect(lst[0].ID()).To(Equal("b.mount"))
			Expect(lst[1].ID()).To(Equal("c.mount"))
		})

		It("should attach observers to present and future units", func() {
			reg := newTestRegistry(nil)

			var seen []string

			_, err := reg.Ref("a.mount")
			Expect(err).ToNot(HaveOccurred())

			reg.RegisterNotify(func(u libunt.Unit, from, to untsts.Active, flags libunt.NotifyFlags) {
				seen = append(seen, u.ID())
			})

			b, err := reg.Ref("b.mount")
			Expect(err).ToNot(HaveOccurred())

			a := reg.Get("a.mount")
			a.Notify(untsts.UnitInactive, untsts.UnitActivating, 0)
			b.Notify(untsts.UnitInactive, untsts.UnitActivating, 0)

			Expect(seen).To(Equal([]string{"a.mount", "b.mount"}))
		})
	})
})
