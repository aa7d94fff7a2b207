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

package event

import (
	"context"
	"sort"
	"sync"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

const maxEvents = 64

type entry struct {
	src Source
	ena bool
}

type loop struct {
	m   sync.Mutex
	pfd int
	reg map[int]*entry
	dfr []func()
}

func newLoop() (Loop, liberr.Error) {
	fd, e := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if e != nil {
		return nil, ErrorLoopCreate.Error(e)
	}

	return &loop{
		pfd: fd,
		reg: make(map[int]*entry),
		dfr: make([]func(), 0),
	}, nil
}

func (o *loop) AddSource(s Source) liberr.Error {
	if s == nil || s.Fd() < 0 {
		return ErrorParamEmpty.Error(nil)
	}

	o.m.Lock()
	defer o.m.Unlock()

	ev := unix.EpollEvent{
		Events: s.Events(),
		Fd:     int32(s.Fd()),
	}

	if e := unix.EpollCtl(o.pfd, unix.EPOLL_CTL_ADD, s.Fd(), &ev); e != nil {
		return ErrorSourceRegister.Error(e)
	}

	o.reg[s.Fd()] = &entry{src: s, ena: true}
	return nil
}

func (o *loop) DelSource(s Source) {
	if s == nil || s.Fd() < 0 {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()

	if _, k := o.reg[s.Fd()]; !k {
		return
	}

	_ = unix.EpollCtl(o.pfd, unix.EPOLL_CTL_DEL, s.Fd(), nil)
	delete(o.reg, s.Fd())
}

func (o *loop) SetEnabled(s Source, enable bool) liberr.Error {
	if s == nil || s.Fd() < 0 {
		return ErrorParamEmpty.Error(nil)
	}

	o.m.Lock()
	defer o.m.Unlock()

	r, k := o.reg[s.Fd()]
	if !k {
		return ErrorSourceUnknown.Error(nil)
	} else if r.ena == enable {
		return nil
	}

	var e error

	if enable {
		ev := unix.EpollEvent{
			Events: s.Events(),
			Fd:     int32(s.Fd()),
		}
		e = unix.EpollCtl(o.pfd, unix.EPOLL_CTL_ADD, s.Fd(), &ev)
	} else {
		e = unix.EpollCtl(o.pfd, unix.EPOLL_CTL_DEL, s.Fd(), nil)
	}

	if e != nil {
		return ErrorSourceRegister.Error(e)
	}

	r.ena = enable
	return nil
}

func (o *loop) Defer(fct func()) {
	if fct == nil {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()

	o.dfr = append(o.dfr, fct)
}

func (o *loop) runDeferred() bool {
	o.m.Lock()
	lst := o.dfr
	o.dfr = make([]func(), 0)
	o.m.Unlock()

	for _, f := range lst {
		f()
	}

	return len(lst) > 0
}

func (o *loop) RunOnce(timeout int) liberr.Error {
	if o.runDeferred() {
		// pending work may have been queued by the deferred calls,
		// do not block on poll this round
		timeout = 0
	}

	var evs = make([]unix.EpollEvent, maxEvents)

	n, e := unix.EpollWait(o.pfd, evs, timeout)
	if e == unix.EINTR {
		return nil
	} else if e != nil {
		return ErrorLoopWait.Error(e)
	}

	var ready = make([]Source, 0, n)

	o.m.Lock()
	for i := 0; i < n; i++ {
		if r, k := o.reg[int(evs[i].Fd)]; k && r.ena {
			ready = append(ready, r.src)
		}
	}
	o.m.Unlock()

	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Priority() < ready[j].Priority()
	})

	err := ErrorSourceDispatch.Error(nil)

	for _, s := range ready {
		if e := s.Dispatch(o); e != nil {
			err.Add(e)
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

func (o *loop) Run(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if e := o.RunOnce(200); e != nil {
			if !liberr.Has(e, ErrorSourceDispatch) {
				return e
			}
		}
	}
}

func (o *loop) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	o.reg = make(map[int]*entry)
	return unix.Close(o.pfd)
}
