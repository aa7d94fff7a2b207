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

package child

import (
	"sync"
	"syscall"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	gopsp "github.com/shirou/gopsutil/process"
	"golang.org/x/sys/unix"

	libunt "github.com/sabouaram/sysinit/unit"
)

const maxPending = 64

type model struct {
	m sync.Mutex

	log liblog.FuncLog
	idx map[int]libunt.Unit
	buf []Exit
}

func newManager(log liblog.FuncLog) Manager {
	return &model{
		log: log,
		idx: make(map[int]libunt.Unit),
		buf: make([]Exit, 0, maxPending),
	}
}

func (o *model) logger() liblog.Logger {
	if o.log == nil {
		return liblog.GetDefault()
	} else if l := o.log(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *model) Watch(u libunt.Unit, pid int) {
	if u == nil || pid < 1 {
		return
	}

	if ok, _ := gopsp.PidExists(int32(pid)); !ok {
		o.logger().Entry(loglvl.DebugLevel, "watching an already gone pid").
			FieldAdd("unit", u.ID()).
			FieldAdd("pid", pid).
			Log()
	}

	o.m.Lock()
	o.idx[pid] = u
	u.ChildAdd(pid)

	var late []Exit
	var keep = make([]Exit, 0, len(o.buf))

	for _, e := range o.buf {
		if e.Pid == pid {
			late = append(late, e)
		} else {
			keep = append(keep, e)
		}
	}

	o.buf = keep
	o.m.Unlock()

	for _, e := range late {
		o.Dispatch(e)
	}
}

func (o *model) Unwatch(u libunt.Unit, pid int) {
	o.m.Lock()
	defer o.m.Unlock()

	delete(o.idx, pid)

	if u != nil {
		u.ChildDel(pid)
	}
}

func (o *model) UnitByPid(pid int) libunt.Unit {
	o.m.Lock()
	defer o.m.Unlock()
	return o.idx[pid]
}

func (o *model) Reap() []Exit {
	var res = make([]Exit, 0)

	for {
		var sts unix.WaitStatus

		pid, e := unix.Wait4(-1, &sts, unix.WNOHANG, nil)
		if e == unix.EINTR {
			continue
		} else if pid < 1 || e != nil {
			return res
		}

		if !sts.Exited() && !sts.Signaled() {
			// stop / continue notifications are not lifecycle events
			continue
		}

		x := Exit{Pid: pid}

		if sts.Exited() {
			x.Code = sts.ExitStatus()
		} else {
			x.Signal = sts.Signal()
			x.Core = sts.CoreDump()
		}

		res = append(res, x)
	}
}

func (o *model) Dispatch(e Exit) {
	o.m.Lock()
	u := o.idx[e.Pid]

	if u == nil {
		if len(o.buf) >= maxPending {
			o.buf = o.buf[1:]
		}
		o.buf = append(o.buf, e)
		o.m.Unlock()
		return
	}

	delete(o.idx, e.Pid)
	o.m.Unlock()

	u.ChildDel(e.Pid)

	if s := u.Sub(); s != nil {
		s.SigchldEvent(e.Pid, e.Code, e.Signal)
	}
}

func (o *model) DropUnit(u libunt.Unit) {
	if u == nil {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()

	for p, v := range o.idx {
		if v == u {
			delete(o.idx, p)
			u.ChildDel(p)
		}
	}
}

func (o *model) Snapshot() map[string][]int {
	o.m.Lock()
	defer o.m.Unlock()

	var res = make(map[string][]int)

	for p, u := range o.idx {
		res[u.ID()] = append(res[u.ID()], p)
	}

	return res
}

func (o *model) Restore(data map[string][]int, resolve func(name string) libunt.Unit) {
	if resolve == nil {
		return
	}

	for n, pids := range data {
		u := resolve(n)
		if u == nil {
			continue
		}

		for _, p := range pids {
			if ok, _ := gopsp.PidExists(int32(p)); !ok {
				// the child died while the manager was away; synthesize
				// a failed exit so the unit state machine moves on
				o.m.Lock()
				o.idx[p] = u
				u.ChildAdd(p)
				o.m.Unlock()
				o.Dispatch(Exit{Pid: p, Signal: syscall.SIGKILL})
				continue
			}

			o.Watch(u, p)
		}
	}
}

func (o *model) Clear() {
	o.m.Lock()
	defer o.m.Unlock()

	o.idx = make(map[int]libunt.Unit)
	o.buf = make([]Exit, 0, maxPending)
}
