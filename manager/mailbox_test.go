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

// mailbox_test.go validates the loop mailbox: connection goroutines post
// requests and poke the pipe, the loop drains the queue and produces the
// responses with every verb executed on the loop thread.
package manager

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libprt "github.com/sabouaram/sysinit/proto"
)

var _ = Describe("Manager Mailbox", func() {
	var (
		mgr Manager
		o   *model
		mb  *mailbox
	)

	BeforeEach(func() {
		mgr, _ = newTestManager(map[string]string{"app.target": plainTarget})
		o = mgr.(*model)

		var err error
		mb, err = o.newMailbox()
		Expect(err).ToNot(HaveOccurred())

		Expect(o.evt.AddSource(mb)).To(Succeed())
	})

	AfterEach(func() {
		if mb != nil {
			o.evt.DelSource(mb)
			mb.close()
			mb = nil
		}

		if mgr != nil {
			_ = mgr.Close()
			mgr = nil
		}
	})

	// pump drives the loop until the response channel yields or the
	// deadline passes.
	pump := func(rsp <-chan libprt.Response) libprt.Response {
		deadline := time.Now().Add(2 * time.Second)

		for time.Now().Before(deadline) {
			Expect(o.evt.RunOnce(20)).To(Succeed())

			select {
			case r := <-rsp:
				return r
			default:
			}
		}

		Fail("no response before the deadline")
		return libprt.Response{}
	}

	It("should execute a posted request on the loop thread", func() {
		rsp := make(chan libprt.Response, 1)

		go func() {
			rsp <- mb.Handler().Dispatch(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: libprt.UnitActionStart,
				Name:   "app.target",
			}})
		}()

		r := pump(rsp)
		Expect(r.Status).To(Equal(libprt.StatusOk))

		u := mgr.Registry().Get("app.target")
		Expect(u).ToNot(BeNil())
	})

	It("should drain every queued request in one wakeup", func() {
		const n = 8

		rsp := make(chan libprt.Response, n)

		for i := 0; i < n; i++ {
			go func() {
				rsp <- mb.Handler().Dispatch(libprt.Request{Jcomm: &libprt.JobComm{
					Action: libprt.JobActionList,
				}})
			}()
		}

		deadline := time.Now().Add(2 * time.Second)
		var got int

		for got < n && time.Now().Before(deadline) {
			Expect(o.evt.RunOnce(20)).To(Succeed())

			for {
				select {
				case r := <-rsp:
					Expect(r.Status).To(Equal(libprt.StatusOk))
					got++
					continue
				default:
				}
				break
			}
		}

		Expect(got).To(Equal(n))
	})

	It("should answer shutting-down once the manager context ends", func() {
		o.cnl()

		r := mb.Handler().Dispatch(libprt.Request{Jcomm: &libprt.JobComm{
			Action: libprt.JobActionList,
		}})

		Expect(r.Status).To(Equal(libprt.StatusInternal))
	})
})
