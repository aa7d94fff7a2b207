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

package unit

import (
	"sort"
	"sync"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	untkil "github.com/sabouaram/sysinit/unit/kill"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

const (
	defStartLimitBurst    = 5
	defStartLimitInterval = 10 * time.Second
)

type model struct {
	m sync.RWMutex

	id  string
	knd untknd.Kind
	log liblog.FuncLog

	sub SubUnit
	cfg *libufl.File

	lds untsts.Load
	dep map[untrel.Relation][]string
	pid map[int]bool
	obs []FuncNotify

	kil untkil.Context
	cgp string

	ldc bool // a load attempt concluded
	cdc bool // conditions evaluated for the pending activation

	lim []time.Time
}

func newUnit(name string, log liblog.FuncLog) (Unit, liberr.Error) {
	_, knd, e := untknd.SplitName(name)
	if e != nil {
		return nil, ErrorNameInvalid.Error(e)
	}

	return &model{
		id:  name,
		knd: knd,
		log: log,
		lds: untsts.UnitStub,
		dep: make(map[untrel.Relation][]string),
		pid: make(map[int]bool),
		obs: make([]FuncNotify, 0),
		kil: untkil.Default(),
		lim: make([]time.Time, 0),
	}, nil
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

func (o *model) ID() string {
	return o.id
}

func (o *model) Kind() untknd.Kind {
	return o.knd
}

func (o *model) Sub() SubUnit {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.sub
}

func (o *model) AttachSub(s SubUnit) {
	o.m.Lock()
	defer o.m.Unlock()
	o.sub = s
}

func (o *model) Config() *libufl.File {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.cfg
}

func (o *model) LoadState() untsts.Load {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.lds
}

func (o *model) SetLoadState(l untsts.Load) {
	o.m.Lock()
	defer o.m.Unlock()
	o.lds = l
	o.ldc = true
}

func (o *model) LoadComplete() bool {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.ldc
}

func (o *model) ActiveState() untsts.Active {
	if s := o.Sub(); s != nil {
		return s.CurrentActiveState()
	}

	return untsts.UnitInactive
}

func (o *model) Load(paths []string) liberr.Error {
	sub := o.Sub()
	if sub == nil {
		return ErrorSubMissing.Error(nil)
	}

	f, err := libufl.Load(o.id, paths)

	if err != nil {
		switch {
		case err.HasCode(libufl.ErrorFileNotFound):
			o.SetLoadState(untsts.UnitNotFound)
		default:
			o.SetLoadState(untsts.UnitLoadError)
		}

		return ErrorLoadFailed.Error(err)
	}

	o.m.Lock()
	o.cfg = f
	if f.Socket != nil && f.Socket.KillMode != "" {
		if m, e := untkil.ParseMode(f.Socket.KillMode); e == nil {
			o.kil.Mode = m
		}
	} else if f.Service != nil && f.Service.KillMode != "" {
		if m, e := untkil.ParseMode(f.Service.KillMode); e == nil {
			o.kil.Mode = m
		}
	}
	o.m.Unlock()

	if err = sub.Load(f); err != nil {
		o.SetLoadState(untsts.UnitLoadError)
		sub.Clear()
		return err
	}

	o.SetLoadState(untsts.UnitLoaded)
	return nil
}

func (o *model) Start() liberr.Error {
	sub := o.Sub()
	if sub == nil {
		return ErrorSubMissing.Error(nil)
	}

	switch s := o.ActiveState(); s {
	case untsts.UnitActive, untsts.UnitReloading, untsts.UnitActivating:
		return ErrorAlreadyActive.Error(nil)
	case untsts.UnitMaintenance:
		return ErrorAgain.Error(nil)
	}

	if o.LoadState() != untsts.UnitLoaded {
		return ErrorNotLoaded.Error(nil)
	}

	// conditions run once before the first transition into activating,
	// not again on internal retries
	if !o.conditionsDone() {
		if err := o.checkConditions(); err != nil {
			return err
		}
	}

	if !o.TestStartLimit() {
		o.logger().Entry(loglvl.WarnLevel, "unit start limit hit").FieldAdd("unit", o.id).Log()
		return ErrorStartLimit.Error(nil)
	}

	return sub.Start()
}

func (o *model) Stop(force bool) liberr.Error {
	sub := o.Sub()
	if sub == nil {
		return ErrorSubMissing.Error(nil)
	}

	if !force && o.ActiveState().IsInactiveOrFailed() {
		return ErrorAlreadyInactive.Error(nil)
	}

	return sub.Stop(force)
}

func (o *model) Reload() liberr.Error {
	sub := o.Sub()
	if sub == nil {
		return ErrorSubMissing.Error(nil)
	}

	if !o.ActiveState().IsActiveOrReloading() {
		return ErrorNotActive.Error(nil)
	}

	return sub.Reload()
}

func (o *model) Kill(op untkil.Operation, mainPid, ctlPid int) liberr.Error {
	if e := o.KillContext().Apply(op, mainPid, ctlPid, o.CGroupPath()); e != nil {
		return ErrorKillFailed.Error(e)
	}

	return nil
}

func (o *model) KillContext() untkil.Context {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.kil
}

func (o *model) SetKillContext(c untkil.Context) {
	o.m.Lock()
	defer o.m.Unlock()
	o.kil = c
}

func (o *model) CGroupPath() string {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.cgp
}

func (o *model) SetCGroupPath(p string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.cgp = p
}

func (o *model) DepAdd(rel untrel.Relation, names ...string) {
	o.m.Lock()
	defer o.m.Unlock()

	for _, n := range names {
		if n == "" || n == o.id {
			continue
		}

		var found bool
		for _, v := range o.dep[rel] {
			if v == n {
				found = true
				break
			}
		}

		if !found {
			o.dep[rel] = append(o.dep[rel], n)
		}
	}
}

func (o *model) DepSet(rel untrel.Relation) []string {
	o.m.RLock()
	defer o.m.RUnlock()

	var res = make([]string, len(o.dep[rel]))
	copy(res, o.dep[rel])

	return res
}

func (o *model) DepHas(rel untrel.Relation, name string) bool {
	o.m.RLock()
	defer o.m.RUnlock()

	for _, v := range o.dep[rel] {
		if v == name {
			return true
		}
	}

	return false
}

func (o *model) ChildAdd(pid int) {
	if pid < 1 {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()
	o.pid[pid] = true
}

func (o *model) ChildDel(pid int) {
	o.m.Lock()
	defer o.m.Unlock()
	delete(o.pid, pid)
}

func (o *model) ChildPids() []int {
	o.m.RLock()
	defer o.m.RUnlock()

	var res = make([]int, 0, len(o.pid))
	for p := range o.pid {
		res = append(res, p)
	}

	sort.Ints(res)
	return res
}

func (o *model) Notify(from, to untsts.Active, flags NotifyFlags) {
	o.m.RLock()
	lst := make([]FuncNotify, len(o.obs))
	copy(lst, o.obs)
	o.m.RUnlock()

	ent := o.logger().Entry(loglvl.DebugLevel, "unit state change")
	ent.FieldAdd("unit", o.id)
	ent.FieldAdd("from", from.String())
	ent.FieldAdd("to", to.String())
	ent.Log()

	if to.IsInactiveOrFailed() {
		// the activation cycle ended, conditions run again on the next one
		o.setConditionsDone(false)
	}

	for _, f := range lst {
		f(o, from, to, flags)
	}
}

func (o *model) RegisterNotify(fct FuncNotify) {
	if fct == nil {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()
	o.obs = append(o.obs, fct)
}

func (o *model) IgnoreOnIsolate() bool {
	if c := o.Config(); c != nil {
		return c.Unit.IgnoreOnIsolate
	}

	return false
}

func (o *model) AllowIsolate() bool {
	if c := o.Config(); c != nil {
		return c.Unit.AllowIsolate
	}

	return false
}

func (o *model) TestStartLimit() bool {
	var (
		brs = uint(defStartLimitBurst)
		itv = defStartLimitInterval
	)

	if c := o.Config(); c != nil {
		if c.Unit.StartLimitBurst > 0 {
			brs = c.Unit.StartLimitBurst
		}
		if c.Unit.StartLimitInterval > 0 {
			itv = time.Duration(c.Unit.StartLimitInterval) * time.Second
		}
	}

	o.m.Lock()
	defer o.m.Unlock()

	now := time.Now()
	lst := make([]time.Time, 0, len(o.lim))

	for _, t := range o.lim {
		if now.Sub(t) < itv {
			lst = append(lst, t)
		}
	}

	if uint(len(lst)) >= brs {
		o.lim = lst
		return false
	}

	o.lim = append(lst, now)
	return true
}

func (o *model) ResetFailed() {
	if o.ActiveState() != untsts.UnitFailed {
		return
	}

	if s := o.Sub(); s != nil {
		s.Clear()
	}

	o.setConditionsDone(false)
}

func (o *model) conditionsDone() bool {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.cdc
}

func (o *model) setConditionsDone(v bool) {
	o.m.Lock()
	defer o.m.Unlock()
	o.cdc = v
}
