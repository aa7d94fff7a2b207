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
	"fmt"
	"strings"

	liberr "github.com/nabbar/golib/errors"

	libjob "github.com/sabouaram/sysinit/job"
	libprt "github.com/sabouaram/sysinit/proto"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

// Dispatch executes one decoded control request on the loop thread and
// maps the outcome to an HTTP-like status.
func (o *model) Dispatch(req libprt.Request) libprt.Response {
	switch {
	case req.Ucomm != nil:
		return o.dispatchUnit(req.Ucomm)
	case req.Ufile != nil:
		return o.dispatchFile(req.Ufile)
	case req.Jcomm != nil:
		return o.dispatchJob(req.Jcomm)
	case req.Mcomm != nil:
		return o.dispatchMngr(req.Mcomm)
	case req.Syscomm != nil:
		return o.dispatchSys(req.Syscomm)
	}

	return libprt.Response{Status: libprt.StatusBadReq, Message: "empty request"}
}

func (o *model) dispatchUnit(c *libprt.UnitComm) libprt.Response {
	var err liberr.Error

	switch c.Action {
	case libprt.UnitActionStatus:
		s, e := o.UnitStatus(c.Name)
		if e != nil {
			return errResponse(e)
		}
		return libprt.Response{Status: libprt.StatusOk, Message: s}

	case libprt.UnitActionStart:
		err = o.UnitStart(c.Name, c.Mode)
	case libprt.UnitActionStop:
		err = o.UnitStop(c.Name, c.Mode)
	case libprt.UnitActionRestart:
		err = o.UnitRestart(c.Name, c.Mode)
	case libprt.UnitActionReload:
		err = o.UnitReload(c.Name, c.Mode)
	case libprt.UnitActionKill:
		err = o.UnitKill(c.Name)
	default:
		return libprt.Response{Status: libprt.StatusBadReq, Message: "unknown unit action"}
	}

	if err != nil {
		return errResponse(err)
	}

	return libprt.Response{Status: libprt.StatusOk, Message: "ok"}
}

func (o *model) dispatchJob(c *libprt.JobComm) libprt.Response {
	switch c.Action {
	case libprt.JobActionList:
		var b strings.Builder

		for _, j := range o.eng.Jobs() {
			b.WriteString(fmt.Sprintf("%d %s %s %s\n", j.Id, j.Unit, j.Kind.String(), j.State.String()))
		}

		return libprt.Response{Status: libprt.StatusOk, Message: b.String()}

	case libprt.JobActionCancel:
		if err := o.eng.Cancel(c.JobId); err != nil {
			return errResponse(err)
		}
		return libprt.Response{Status: libprt.StatusOk, Message: "ok"}
	}

	return libprt.Response{Status: libprt.StatusBadReq, Message: "unknown job action"}
}

func (o *model) dispatchMngr(c *libprt.MngrComm) libprt.Response {
	switch c.Action {
	case libprt.MngrActionReload:
		if err := o.Reload(); err != nil {
			return errResponse(err)
		}
		return libprt.Response{Status: libprt.StatusOk, Message: "ok"}

	case libprt.MngrActionReexec:
		o.RequestState(StateReexec)
		return libprt.Response{Status: libprt.StatusOk, Message: "re-executing"}
	}

	return libprt.Response{Status: libprt.StatusBadReq, Message: "unknown manager action"}
}

func (o *model) dispatchSys(c *libprt.SysComm) libprt.Response {
	switch c.Action {
	case libprt.SysActionReboot:
		o.RequestState(StateReboot)
	case libprt.SysActionPoweroff, libprt.SysActionShutdown:
		o.RequestState(StatePowerOff)
	case libprt.SysActionHalt:
		o.RequestState(StateHalt)
	case libprt.SysActionSuspend, libprt.SysActionHibernate:
		o.RequestState(StateSuspend)
	default:
		return libprt.Response{Status: libprt.StatusBadReq, Message: "unknown system action"}
	}

	return libprt.Response{Status: libprt.StatusOk, Message: "ok"}
}

func (o *model) execVerb(name, mode string, kind libjob.Kind) liberr.Error {
	m, e := libjob.ParseMode(mode)
	if e != nil {
		return ErrorVerbMode.Error(e)
	}

	u, err := o.reg.Load(name)
	if err != nil && kind != libjob.Stop {
		return err
	} else if u == nil {
		if u, err = o.reg.Ref(name); err != nil {
			return err
		}
	}

	if err = o.eng.Exec(libjob.Conf{Unit: u, Kind: kind}, m); err != nil {
		return err
	}

	o.saveJobs()
	return nil
}

func (o *model) UnitStart(name, mode string) liberr.Error {
	return o.execVerb(name, mode, libjob.Start)
}

func (o *model) UnitStop(name, mode string) liberr.Error {
	return o.execVerb(name, mode, libjob.Stop)
}

func (o *model) UnitRestart(name, mode string) liberr.Error {
	return o.execVerb(name, mode, libjob.Restart)
}

func (o *model) UnitReload(name, mode string) liberr.Error {
	return o.execVerb(name, mode, libjob.Reload)
}

func (o *model) UnitStatus(name string) (string, liberr.Error) {
	u := o.reg.Get(name)
	if u == nil {
		return "", ErrorUnitNotFound.Errorf(name)
	}

	var b strings.Builder

	b.WriteString(u.ID())

	if c := u.Config(); c != nil {
		if c.Unit.Description != "" {
			b.WriteString(" - " + c.Unit.Description)
		}
		b.WriteString(fmt.Sprintf("\nLoaded: %s (%s)", u.LoadState().String(), c.Path))
	} else {
		b.WriteString(fmt.Sprintf("\nLoaded: %s", u.LoadState().String()))
	}

	b.WriteString(fmt.Sprintf("\nActive: %s", u.ActiveState().String()))

	if pids := u.ChildPids(); len(pids) > 0 {
		b.WriteString(fmt.Sprintf("\nPids: %v", pids))
	}

	return b.String(), nil
}

// Reload re-reads the description of every loaded unit, keeping runtime
// state untouched.
func (o *model) Reload() liberr.Error {
	err := ErrorReloadFailed.Error(nil)

	o.reg.Walk(func(u libunt.Unit) bool {
		if u.LoadState() != untsts.UnitLoaded {
			return true
		}

		if e := u.Load(o.reg.SearchPaths()); e != nil {
			err.Add(e)
		}

		return true
	})

	o.m.Lock()
	o.drt = make(map[string]bool)
	o.m.Unlock()

	if err.HasParent() {
		return err
	}

	return nil
}

// errResponse maps the error taxonomy to HTTP-like statuses.
func errResponse(err liberr.Error) libprt.Response {
	st := libprt.StatusInternal

	switch {
	case err.HasCode(ErrorUnitNotFound),
		err.HasCode(libjob.ErrorJobNotFound),
		err.HasCode(libufl.ErrorFileNotFound):
		st = libprt.StatusNotFound
	case err.HasCode(libjob.ErrorJobConflict):
		st = libprt.StatusConflict
	case err.HasCode(libjob.ErrorJobBadRequest),
		err.HasCode(libjob.ErrorJobInput),
		err.HasCode(libufl.ErrorFileParse),
		err.HasCode(libufl.ErrorValidatorError),
		err.HasCode(libunt.ErrorNotLoaded),
		err.HasCode(ErrorVerbMode):
		st = libprt.StatusBadReq
	}

	return libprt.Response{Status: st, Message: err.Error()}
}
