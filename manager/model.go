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
	"context"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	uuid "github.com/hashicorp/go-uuid"
	libatm "github.com/nabbar/golib/atomic"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	libchd "github.com/sabouaram/sysinit/child"
	libevt "github.com/sabouaram/sysinit/event"
	libjob "github.com/sabouaram/sysinit/job"
	libprs "github.com/sabouaram/sysinit/persist"
	libreg "github.com/sabouaram/sysinit/registry"
	libsvc "github.com/sabouaram/sysinit/service"
	libsck "github.com/sabouaram/sysinit/socket"
	libtgt "github.com/sabouaram/sysinit/target"
	libunt "github.com/sabouaram/sysinit/unit"
	untkil "github.com/sabouaram/sysinit/unit/kill"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

type model struct {
	m sync.Mutex

	cfg Config
	log liblog.FuncLog

	ctx context.Context
	cnl context.CancelFunc

	evt libevt.Loop
	reg libreg.Registry
	eng libjob.Engine
	chd libchd.Manager
	jnl libprs.Journal
	wtc *fsnotify.Watcher

	sts libatm.Value[State]
	drt map[string]bool // units whose file changed since load
}

func newManager(cfg Config, log liblog.FuncLog) (Manager, liberr.Error) {
	if len(cfg.UnitPaths) < 1 || cfg.StateDir == "" || cfg.ControlSocket == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	ctx, cnl := context.WithCancel(context.Background())

	evt, err := libevt.New()
	if err != nil {
		cnl()
		return nil, err
	}

	jnl, err := libprs.Open(cfg.StateDir, log)
	if err != nil {
		cnl()
		_ = evt.Close()
		return nil, err
	}

	o := &model{
		cfg: cfg,
		log: log,
		ctx: ctx,
		cnl: cnl,
		evt: evt,
		reg: libreg.New(ctx, log),
		chd: libchd.New(log),
		jnl: jnl,
		sts: libatm.NewValue[State](),
		drt: make(map[string]bool),
	}

	o.sts.Store(StateInit)
	o.eng = libjob.New(o.reg, log)

	o.reg.SetSearchPaths(cfg.UnitPaths...)
	o.reg.RegisterKind(untknd.Socket, func(u libunt.Unit) libunt.SubUnit {
		return libsck.New(u, o, log)
	})
	o.reg.RegisterKind(untknd.Service, func(u libunt.Unit) libunt.SubUnit {
		return libsvc.New(u, o, log)
	})
	o.reg.RegisterKind(untknd.Target, func(u libunt.Unit) libunt.SubUnit {
		return libtgt.New(u)
	})

	o.reg.RegisterNotify(o.unitNotify)
	o.eng.RegisterFuncDone(o.jobDone)

	if w, e := fsnotify.NewWatcher(); e == nil {
		o.wtc = w
		for _, p := range cfg.UnitPaths {
			_ = w.Add(p)
		}
		go o.watchUnitDirs()
	}

	return o, nil
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

func (o *model) Registry() libreg.Registry {
	return o.reg
}

func (o *model) Engine() libjob.Engine {
	return o.eng
}

func (o *model) Events() libevt.Loop {
	return o.evt
}

func (o *model) Journal() libprs.Journal {
	return o.jnl
}

func (o *model) RequestState(s State) {
	o.sts.Store(s)
	if s >= StateReload {
		o.cnl()
	}
}

// unitNotify fans a unit state change out: the job engine advances its
// waiters, the triggering sockets observe their service, and the change
// is persisted.
func (o *model) unitNotify(u libunt.Unit, from, to untsts.Active, flags libunt.NotifyFlags) {
	o.eng.UnitNotify(u, from, to, flags)

	if u.Kind() == untknd.Service {
		o.TriggerStateChange(u.ID())
	}

	o.StateSaved(u)
}

func (o *model) jobDone(i libjob.Info, res libjob.Result) {
	o.saveJobs()
}

// watchUnitDirs marks units whose description changed on disk, so a
// manager reload knows what to re-read.
func (o *model) watchUnitDirs() {
	for {
		select {
		case e, ok := <-o.wtc.Events:
			if !ok {
				return
			}

			if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			name := e.Name
			if i := strings.LastIndex(name, "/"); i >= 0 {
				name = name[i+1:]
			}

			if _, _, err := untknd.SplitName(name); err != nil {
				continue
			}

			o.m.Lock()
			o.drt[name] = true
			o.m.Unlock()

			o.logger().Entry(loglvl.DebugLevel, "unit description changed on disk").
				FieldAdd("unit", name).
				Log()

		case <-o.ctx.Done():
			return
		}
	}
}

/*
 * socket.Universe and service.Universe implementation
 */

func (o *model) HasStopJob(unitID string) bool {
	return o.eng.HasStopJob(unitID)
}

func (o *model) HasRestartJob(unitID string) bool {
	for _, j := range o.eng.Jobs() {
		if j.Unit == unitID && (j.Kind == libjob.Restart || j.Kind == libjob.TryRestart) {
			return true
		}
	}

	return false
}

func (o *model) ActiveOrPending(unitID string) bool {
	if u := o.reg.Get(unitID); u != nil && u.ActiveState().IsActiveOrActivating() {
		return true
	}

	return o.eng.HasStartJob(unitID)
}

// StartTriggered starts the service a socket triggers. A non negative
// connection descriptor selects per-connection instantiation: a fresh
// instance unit named "<stem>@<conn-id>.service" borrows the template
// description and owns the accepted descriptor.
func (o *model) StartTriggered(socketID, serviceID string, connFd int) liberr.Error {
	if connFd < 0 {
		u, err := o.reg.Load(serviceID)
		if err != nil {
			return err
		}

		o.installTriggerFds(u)

		return o.eng.Exec(libjob.Conf{Unit: u, Kind: libjob.Start}, libjob.ModeReplace)
	}

	tpl, err := o.reg.Load(serviceID)
	if err != nil {
		return err
	}

	id, e := uuid.GenerateUUID()
	if e != nil {
		return ErrorInstanceName.Error(e)
	}

	name := untknd.Stem(serviceID) + "@" + id[:8] + ".service"

	ins, err := o.reg.Ref(name)
	if err != nil {
		return err
	}

	sub, k := ins.Sub().(libsvc.ServiceUnit)
	if !k {
		return ErrorInstanceKind.Errorf(name)
	}

	if err = sub.Load(tpl.Config()); err != nil {
		return err
	}

	ins.SetLoadState(untsts.UnitLoaded)
	sub.SetInheritedFds([]int{connFd})

	return ins.Start()
}

// installTriggerFds hands every listening descriptor of the sockets
// triggering the service to its sub unit before the start.
func (o *model) installTriggerFds(svc libunt.Unit) {
	sub, k := svc.Sub().(libsvc.ServiceUnit)
	if !k {
		return
	}

	var fds = make([]int, 0)

	for _, n := range svc.DepSet(untrel.TriggeredBy) {
		s := o.reg.Get(n)
		if s == nil {
			continue
		}

		if sck, ok := s.Sub().(libsck.SocketUnit); ok {
			fds = append(fds, sck.CollectFds()...)
		}
	}

	sub.SetInheritedFds(fds)
}

func (o *model) WatchPid(u libunt.Unit, pid int) {
	o.chd.Watch(u, pid)
	o.saveChild()
}

func (o *model) UnwatchPid(u libunt.Unit, pid int) {
	o.chd.Unwatch(u, pid)
	o.saveChild()
}

func (o *model) StateSaved(u libunt.Unit) {
	pids := u.ChildPids()
	rec := libprs.UnitRecord{
		Load:   uint8(u.LoadState()),
		Active: uint8(u.ActiveState()),
		Pids:   make([]int32, 0, len(pids)),
	}

	for _, p := range pids {
		rec.Pids = append(rec.Pids, int32(p))
	}

	if err := o.jnl.UnitPut(u.ID(), rec); err != nil {
		o.logger().Entry(loglvl.ErrorLevel, "cannot persist unit record").
			FieldAdd("unit", u.ID()).
			ErrorAdd(true, err).
			Log()
	}

	if s := u.Sub(); s != nil {
		if b, err := s.Snapshot(); err == nil {
			_ = o.jnl.SubPut(u.ID(), b)
		}
	}
}

func (o *model) FrameListen(u libunt.Unit, started bool) {
	_ = o.jnl.SetLastFrame(libprs.Frame{
		Kind:    libprs.FrameFdListen,
		Unit:    u.ID(),
		Started: started,
	})
}

func (o *model) FrameClear(u libunt.Unit) {
	o.jnl.ClearLastFrame()
}

func (o *model) TriggerStateChange(serviceID string) {
	svc := o.reg.Get(serviceID)
	if svc == nil {
		return
	}

	to := svc.ActiveState()

	for _, n := range svc.DepSet(untrel.TriggeredBy) {
		s := o.reg.Get(n)
		if s == nil {
			continue
		}

		if sck, ok := s.Sub().(libsck.SocketUnit); ok {
			sck.TriggerNotify(to)
		}
	}
}

func (o *model) saveJobs() {
	if err := o.jnl.JobsPut(o.eng.Snapshot()); err != nil {
		o.logger().Entry(loglvl.ErrorLevel, "cannot persist job table").
			ErrorAdd(true, err).
			Log()
	}
}

func (o *model) saveChild() {
	if err := o.jnl.ChildPut(o.chd.Snapshot()); err != nil {
		o.logger().Entry(loglvl.ErrorLevel, "cannot persist child index").
			ErrorAdd(true, err).
			Log()
	}
}

func (o *model) UnitKill(name string) liberr.Error {
	u := o.reg.Get(name)
	if u == nil {
		return ErrorUnitNotFound.Errorf(name)
	}

	var main int
	if s, k := u.Sub().(libsvc.ServiceUnit); k {
		main = s.MainPid()
	}

	return u.Kill(untkil.Terminate, main, 0)
}

func (o *model) Close() error {
	o.cnl()

	if o.wtc != nil {
		_ = o.wtc.Close()
	}

	e := o.evt.Close()

	if er := o.jnl.Close(); er != nil && e == nil {
		e = er
	}

	return e
}
