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

package manager

import (
	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"

	libevt "github.com/sabouaram/sysinit/event"
	libprt "github.com/sabouaram/sysinit/proto"
)

type apiCall struct {
	req libprt.Request
	rsp chan libprt.Response
}

// mailbox serializes control requests into the loop thread: connection
// goroutines enqueue and poke the pipe, the loop drains the queue and
// executes the verbs with no concurrent mutation anywhere.
type mailbox struct {
	o   *model
	r   int
	w   int
	chn chan apiCall
}

func (o *model) newMailbox() (*mailbox, liberr.Error) {
	var p [2]int

	if e := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); e != nil {
		return nil, ErrorControlMailbox.Error(e)
	}

	return &mailbox{
		o:   o,
		r:   p[0],
		w:   p[1],
		chn: make(chan apiCall, 16),
	}, nil
}

// handler adapts the mailbox to the proto handler surface on the
// connection side.
type handler struct {
	m *mailbox
}

// Handler returns the connection side dispatch surface of the mailbox.
func (m *mailbox) Handler() libprt.Handler {
	return &handler{m: m}
}

// Dispatch posts the request to the loop and waits for the loop produced
// response.
func (h *handler) Dispatch(req libprt.Request) libprt.Response {
	m := h.m
	if m.o.ctx.Err() != nil {
		return libprt.Response{Status: libprt.StatusInternal, Message: "manager is shutting down"}
	}

	c := apiCall{
		req: req,
		rsp: make(chan libprt.Response, 1),
	}

	select {
	case m.chn <- c:
	case <-m.o.ctx.Done():
		return libprt.Response{Status: libprt.StatusInternal, Message: "manager is shutting down"}
	}

	_, _ = unix.Write(m.w, []byte{1})

	select {
	case r := <-c.rsp:
		return r
	case <-m.o.ctx.Done():
		return libprt.Response{Status: libprt.StatusInternal, Message: "manager is shutting down"}
	}
}

func (m *mailbox) Fd() int {
	return m.r
}

func (m *mailbox) Events() uint32 {
	return unix.EPOLLIN
}

func (m *mailbox) Priority() int8 {
	return 10
}

// Dispatch drains the queue on the loop thread.
func (m *mailbox) Dispatch(l libevt.Loop) error {
	var buf = make([]byte, 64)
	_, _ = unix.Read(m.r, buf)

	for {
		select {
		case c := <-m.chn:
			c.rsp <- m.o.Dispatch(c.req)
		default:
			return nil
		}
	}
}

func (m *mailbox) close() {
	_ = unix.Close(m.r)
	_ = unix.Close(m.w)
}
