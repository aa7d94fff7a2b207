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

package service

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fxamacker/cbor/v2"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	libunt "github.com/sabouaram/sysinit/unit"
	untkil "github.com/sabouaram/sysinit/unit/kill"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

type state uint8

const (
	dead state = iota
	starting
	running
	stopping
	failed
)

func (s state) toActive() untsts.Active {
	switch s {
	case dead:
		return untsts.UnitInactive
	case starting:
		return untsts.UnitActivating
	case running:
		return untsts.UnitActive
	case stopping:
		return untsts.UnitDeactivating
	case failed:
		return untsts.UnitFailed
	}

	return untsts.UnitInactive
}

type mdl struct {
	m sync.Mutex

	unt libunt.Unit
	um  Universe
	log liblog.FuncLog

	cfg *libufl.File
	sts state
	pid int
	fds []int
}

func newService(u libunt.Unit, um Universe, log liblog.FuncLog) ServiceUnit {
	return &mdl{
		unt: u,
		um:  um,
		log: log,
		sts: dead,
		fds: make([]int, 0),
	}
}

func (o *mdl) logger() liblog.Logger {
	if o.log == nil {
		return liblog.GetDefault()
	} else if l := o.log(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *mdl) setState(next state) {
	o.m.Lock()
	old := o.sts
	o.sts = next
	o.m.Unlock()

	o.um.StateSaved(o.unt)

	if old != next {
		o.unt.Notify(old.toActive(), next.toActive(), 0)
		o.um.TriggerStateChange(o.unt.ID())
	}
}

func (o *mdl) state() state {
	o.m.Lock()
	defer o.m.Unlock()
	return o.sts
}

func (o *mdl) MainPid() int {
	o.m.Lock()
	defer o.m.Unlock()
	return o.pid
}

func (o *mdl) SetInheritedFds(fds []int) {
	o.m.Lock()
	defer o.m.Unlock()

	o.fds = make([]int, len(fds))
	copy(o.fds, fds)
}

func (o *mdl) Load(f *libufl.File) liberr.Error {
	if f == nil || f.Service == nil {
		return ErrorConfigInvalid.Error(nil)
	}

	if strings.TrimSpace(f.Service.ExecStart) == "" {
		return ErrorConfigNoExec.Error(nil)
	}

	o.m.Lock()
	o.cfg = f
	o.m.Unlock()

	return nil
}

func (o *mdl) Start() liberr.Error {
	o.m.Lock()
	cfg := o.cfg
	fds := make([]int, len(o.fds))
	copy(fds, o.fds)
	o.m.Unlock()

	if cfg == nil || cfg.Service == nil {
		return ErrorConfigInvalid.Error(nil)
	}

	o.setState(starting)

	args := strings.Fields(cfg.Service.ExecStart)

	c := exec.Command(args[0], args[1:]...)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// hand the collected listeners over: they become fd 3..n in the
	// child, advertised through the usual listen-fds environment
	for _, fd := range fds {
		c.ExtraFiles = append(c.ExtraFiles, os.NewFile(uintptr(fd), "listen-fd"))
	}

	c.Env = append(os.Environ(),
		"LISTEN_FDS="+strconv.Itoa(len(fds)),
		"LISTEN_PID=0",
	)

	if e := c.Start(); e != nil {
		o.setState(failed)
		return ErrorSpawnFailed.Error(e)
	}

	o.m.Lock()
	o.pid = c.Process.Pid
	o.m.Unlock()

	o.um.WatchPid(o.unt, c.Process.Pid)
	o.setState(running)

	o.logger().Entry(loglvl.InfoLevel, "service started").
		FieldAdd("unit", o.unt.ID()).
		FieldAdd("pid", c.Process.Pid).
		Log()

	return nil
}

func (o *mdl) Stop(force bool) liberr.Error {
	switch o.state() {
	case dead, failed:
		if !force {
			return libunt.ErrorAlreadyInactive.Error(nil)
		}
		o.setState(dead)
		return nil
	case stopping:
		return nil
	}

	o.m.Lock()
	pid := o.pid
	o.m.Unlock()

	if pid < 1 {
		o.setState(dead)
		return nil
	}

	o.setState(stopping)

	if err := o.unt.Kill(untkil.Terminate, pid, 0); err != nil {
		o.setState(failed)
		return err
	}

	return nil
}

func (o *mdl) Reload() liberr.Error {
	o.m.Lock()
	cfg := o.cfg
	pid := o.pid
	o.m.Unlock()

	if cfg == nil || cfg.Service == nil || cfg.Service.ExecReload == "" {
		return nil
	}

	args := strings.Fields(cfg.Service.ExecReload)
	args = replacePidToken(args, pid)

	c := exec.Command(args[0], args[1:]...)

	if e := c.Run(); e != nil {
		return ErrorReloadFailed.Error(e)
	}

	return nil
}

func replacePidToken(args []string, pid int) []string {
	for i, a := range args {
		if strings.Contains(a, "$MAINPID") {
			args[i] = strings.ReplaceAll(a, "$MAINPID", strconv.Itoa(pid))
		}
	}

	return args
}

func (o *mdl) SigchldEvent(pid int, code int, sig syscall.Signal) {
	o.m.Lock()
	if pid != o.pid {
		o.m.Unlock()
		return
	}
	o.pid = 0
	o.m.Unlock()

	if code == 0 && sig == 0 {
		o.setState(dead)
	} else if o.state() == stopping && sig == syscall.SIGTERM {
		o.setState(dead)
	} else {
		o.setState(failed)
	}
}

func (o *mdl) CurrentActiveState() untsts.Active {
	return o.state().toActive()
}

func (o *mdl) CollectFds() []int {
	o.m.Lock()
	defer o.m.Unlock()

	var res = make([]int, len(o.fds))
	copy(res, o.fds)

	return res
}

func (o *mdl) NotifyMessage(pid int, kv map[string]string, fds []int) liberr.Error {
	if v, k := kv["MAINPID"]; k {
		if p, e := strconv.Atoi(v); e == nil && p > 0 {
			o.m.Lock()
			old := o.pid
			o.pid = p
			o.m.Unlock()

			if old > 0 && old != p {
				o.um.UnwatchPid(o.unt, old)
			}

			o.um.WatchPid(o.unt, p)
		}
	}

	if _, k := kv["READY"]; k && o.state() == starting {
		o.setState(running)
	}

	return nil
}

type dbRecord struct {
	State   uint8 `cbor:"1,keyasint"`
	MainPid int32 `cbor:"2,keyasint"`
}

func (o *mdl) Snapshot() ([]byte, liberr.Error) {
	o.m.Lock()
	rec := dbRecord{State: uint8(o.sts), MainPid: int32(o.pid)}
	o.m.Unlock()

	b, e := cbor.Marshal(rec)
	if e != nil {
		return nil, ErrorSnapshotEncode.Error(e)
	}

	return b, nil
}

func (o *mdl) Restore(data []byte) liberr.Error {
	var rec dbRecord

	if e := cbor.Unmarshal(data, &rec); e != nil {
		return ErrorSnapshotDecode.Error(e)
	}

	o.m.Lock()
	o.sts = state(rec.State)
	o.pid = int(rec.MainPid)
	o.m.Unlock()

	return nil
}

func (o *mdl) Coldplug() liberr.Error {
	return nil
}

func (o *mdl) Clear() {
	o.m.Lock()
	defer o.m.Unlock()

	if o.sts == failed {
		o.sts = dead
	}

	o.fds = make([]int, 0)
}
