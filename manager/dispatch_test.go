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

// dispatch_test.go validates the control request routing: every member of
// the request union reaches its verb, outcomes map to HTTP-like statuses,
// and the unit lifecycle verbs drive real units from the registry.
package manager

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libprt "github.com/sabouaram/sysinit/proto"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

const plainTarget = "[Unit]\nDescription=test target\n"

var _ = Describe("Manager Dispatch", func() {
	var mgr Manager

	AfterEach(func() {
		if mgr != nil {
			_ = mgr.Close()
			mgr = nil
		}
	})

	Context("request union routing", func() {
		It("should refuse an empty request", func() {
			mgr, _ = newTestManager(nil)

			rsp := mgr.Dispatch(libprt.Request{})
			Expect(rsp.Status).To(Equal(libprt.StatusBadReq))
		})

		It("should refuse unknown actions on every member", func() {
			mgr, _ = newTestManager(nil)

			for _, req := range []libprt.Request{
				{Ucomm: &libprt.UnitComm{Action: 99, Name: "a.target"}},
				{Ufile: &libprt.UnitFile{Action: 99, Name: "a.target"}},
				{Jcomm: &libprt.JobComm{Action: 99}},
				{Mcomm: &libprt.MngrComm{Action: 99}},
				{Syscomm: &libprt.SysComm{Action: 99}},
			} {
				rsp := mgr.Dispatch(req)
				Expect(rsp.Status).To(Equal(libprt.StatusBadReq))
			}
		})
	})

	Context("unit lifecycle verbs", func() {
		It("should start and stop a unit", func() {
			mgr, _ = newTestManager(map[string]string{"app.target": plainTarget})

			rsp := mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStart,
				Name:   "app.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			u := mgr.Registry().Get("app.target")
			Expect(u).ToNot(BeNil())
			Expect(u.ActiveState()).To(Equal(untsts.UnitActive))

			rsp = mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStop,
				Name:   "app.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))
			Expect(u.ActiveState()).To(Equal(untsts.UnitInactive))
		})

		It("should answer not-found for a missing unit", func() {
			mgr, _ = newTestManager(nil)

			rsp := mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStart,
				Name:   "missing.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusNotFound))
		})

		It("should refuse an invalid job mode", func() {
			mgr, _ = newTestManager(map[string]string{"app.target": plainTarget})

			rsp := mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStart,
				Name:   "app.target",
				Mode:   "bogus",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusBadReq))
		})

		It("should format the unit status", func() {
			mgr, _ = newTestManager(map[string]string{"app.target": plainTarget})

			rsp := mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStart,
				Name:   "app.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			rsp = mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStatus,
				Name:   "app.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))
			Expect(rsp.Message).To(ContainSubstring("app.target - test target"))
			Expect(rsp.Message).To(ContainSubstring("Loaded: loaded"))
			Expect(rsp.Message).To(ContainSubstring("Active: active"))
		})

		It("should answer not-found for the status of an unknown unit", func() {
			mgr, _ = newTestManager(nil)

			rsp := mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStatus,
				Name:   "missing.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusNotFound))
		})
	})

	Context("job verbs", func() {
		It("should list an empty run table", func() {
			mgr, _ = newTestManager(nil)

			rsp := mgr.Dispatch(libprt.Request{Jcomm: &libprt.JobComm{
				Action: libprt.JobActionList,
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))
			Expect(rsp.Message).To(BeEmpty())
		})

		It("should answer not-found when cancelling an unknown job", func() {
			mgr, _ = newTestManager(nil)

			rsp := mgr.Dispatch(libprt.Request{Jcomm: &libprt.JobComm{
				Action: libprt.JobActionCancel,
				JobId:  4242,
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusNotFound))
		})
	})

	Context("manager verbs", func() {
		It("should reload loaded units", func() {
			mgr, _ = newTestManager(map[string]string{"app.target": plainTarget})

			rsp := mgr.Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStart,
				Name:   "app.target",
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			rsp = mgr.Dispatch(libprt.Request{Mcomm: &libprt.MngrComm{
				Action: libprt.MngrActionReload,
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			// the unit stays loaded and active across the reload
			u := mgr.Registry().Get("app.target")
			Expect(u.LoadState()).To(Equal(untsts.UnitLoaded))
			Expect(u.ActiveState()).To(Equal(untsts.UnitActive))
		})

		It("should accept a re-execution request", func() {
			mgr, _ = newTestManager(nil)

			rsp := mgr.Dispatch(libprt.Request{Mcomm: &libprt.MngrComm{
				Action: libprt.MngrActionReexec,
			}})
			Expect(rsp.Status).To(Equal(libprt.StatusOk))

			o := mgr.(*model)
			Expect(o.sts.Load()).To(Equal(StateReexec))
		})
	})

	Context("system verbs", func() {
		It("should record the requested terminal state", func() {
			for _, tt := range []struct {
				act uint8
				sts State
			}{
				{act: libprt.SysActionReboot, sts: StateReboot},
				{act: libprt.SysActionPoweroff, sts: StatePowerOff},
				{act: libprt.SysActionHalt, sts: StateHalt},
				{act: libprt.SysActionSuspend, sts: StateSuspend},
			} {
				m, _ := newTestManager(nil)

				rsp := m.Dispatch(libprt.Request{Syscomm: &libprt.SysComm{Action: tt.act}})
				Expect(rsp.Status).To(Equal(libprt.StatusOk))

				o := m.(*model)
				Expect(o.sts.Load()).To(Equal(tt.sts))

				_ = m.Close()
			}
		})
	})
})
