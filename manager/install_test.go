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

// install_test.go validates the unit file verbs: cat, the enable and
// disable symlink layout, masking and the default target link.
package manager

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libprt "github.com/sabouaram/sysinit/proto"
)

const installTarget = "[Unit]\nDescription=installable\n\n[Install]\nWantedBy=multi-user.target\nRequiredBy=base.target\n"

var _ = Describe("Manager Unit File Verbs", func() {
	var (
		mgr Manager
		dir string
	)

	BeforeEach(func() {
		mgr, dir = newTestManager(map[string]string{"app.target": installTarget})
	})

	AfterEach(func() {
		if mgr != nil {
			_ = mgr.Close()
			mgr = nil
		}
	})

	fileReq := func(action uint8, name string) libprt.Response {
		return mgr.Dispatch(libprt.Request{Ufile: &libprt.UnitFile{
			Action: action,
			Name:   name,
		}})
	}

	Context("cat", func() {
		It("should return the file content", func() {
			rsp := fileReq(libprt.FileActionCat, "app.target")
			Expect(rsp.Status).To(Equal(libprt.StatusOk))
			Expect(rsp.Message).To(Equal(installTarget))
		})

		It("should answer not-found for a missing file", func() {
			rsp := fileReq(libprt.FileActionCat, "missing.target")
			Expect(rsp.Status).To(Equal(libprt.StatusNotFound))
		})
	})

	Context("enable and disable", func() {
		It("should lay out the install symlinks", func() {
			rsp := fileReq(libprt.FileActionEnable, "app.target")
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			wants := filepath.Join(dir, "multi-user.target.wants", "app.target")
			requires := filepath.Join(dir, "base.target.requires", "app.target")

			for _, l := range []string{wants, requires} {
				t, e := os.Readlink(l)
				Expect(e).ToNot(HaveOccurred())
				Expect(t).To(Equal(filepath.Join(dir, "app.target")))
			}
		})

		It("should be idempotent", func() {
			Expect(fileReq(libprt.FileActionEnable, "app.target").Status).To(Equal(libprt.StatusOk))
			Expect(fileReq(libprt.FileActionEnable, "app.target").Status).To(Equal(libprt.StatusOk))
		})

		It("should remove the symlinks on disable", func() {
			Expect(fileReq(libprt.FileActionEnable, "app.target").Status).To(Equal(libprt.StatusOk))
			Expect(fileReq(libprt.FileActionDisable, "app.target").Status).To(Equal(libprt.StatusOk))

			wants := filepath.Join(dir, "multi-user.target.wants", "app.target")
			_, e := os.Lstat(wants)
			Expect(os.IsNotExist(e)).To(BeTrue())
		})
	})

	Context("mask", func() {
		It("should shadow the unit with a null link", func() {
			rsp := fileReq(libprt.FileActionMask, "other.target")
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			t, e := os.Readlink(filepath.Join(dir, "other.target"))
			Expect(e).ToNot(HaveOccurred())
			Expect(t).To(Equal(os.DevNull))
		})
	})

	Context("default target", func() {
		It("should answer not-found before any default is set", func() {
			rsp := fileReq(libprt.FileActionGetDef, "")
			Expect(rsp.Status).To(Equal(libprt.StatusNotFound))
		})

		It("should set then return the default target", func() {
			Expect(fileReq(libprt.FileActionSetDef, "app.target").Status).To(Equal(libprt.StatusOk))

			rsp := fileReq(libprt.FileActionGetDef, "")
			Expect(rsp.Status).To(Equal(libprt.StatusOk))
			Expect(rsp.Message).To(Equal("app.target"))
		})
	})
})
