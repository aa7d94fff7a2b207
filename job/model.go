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

package job

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libreg "github.com/sabouaram/sysinit/registry"
	libunt "github.com/sabouaram/sysinit/unit"
)

const (
	phaseStop  uint8 = 0
	phaseStart uint8 = 1
)

type job struct {
	id    uint32
	unt   libunt.Unit
	knd   Kind
	mod   Mode
	sts   State
	phs   uint8
	irr   bool // not replaceable by later transactions
	fresh bool // inserted by the current expansion, not merged
}

func (j *job) info() Info {
	return Info{
		Id:     j.id,
		Unit:   j.unt.ID(),
		Kind:   j.knd,
		Mode:   j.mod,
		State:  j.sts,
		Phase:  j.phs,
		Irrevo: j.irr,
	}
}

// alloc hands out job ids from a bitmap so ids stay small and reusable
// across the life of the manager.
type alloc struct {
	bs *bitset.BitSet
}

func newAlloc() *alloc {
	return &alloc{bs: bitset.New(256)}
}

func (a *alloc) next() uint32 {
	i, ok := a.bs.NextClear(1)
	if !ok {
		i = a.bs.Len()
	}

	a.bs.Set(i)
	return uint32(i)
}

func (a *alloc) free(id uint32) {
	a.bs.Clear(uint(id))
}

// stage is the suspend partition: at most one job per unit, merge
// enforced at insertion.
type stage struct {
	byUnit map[string]*job
	order  []string
}

func newStage() *stage {
	return &stage{
		byUnit: make(map[string]*job),
		order:  make([]string, 0),
	}
}

func (s *stage) get(unitID string) *job {
	return s.byUnit[unitID]
}

func (s *stage) put(j *job) {
	if _, k := s.byUnit[j.unt.ID()]; !k {
		s.order = append(s.order, j.unt.ID())
	}

	s.byUnit[j.unt.ID()] = j
}

func (s *stage) list() []*job {
	var res = make([]*job, 0, len(s.order))

	for _, id := range s.order {
		if j, k := s.byUnit[id]; k {
			res = append(res, j)
		}
	}

	return res
}

type engine struct {
	m sync.Mutex

	reg libreg.Registry
	log liblog.FuncLog
	ja  *alloc

	runs  map[string]*job // run table: one installed job per unit
	order []string
	done  []FuncDone
}

func newEngine(reg libreg.Registry, log liblog.FuncLog) Engine {
	return &engine{
		reg:   reg,
		log:   log,
		ja:    newAlloc(),
		runs:  make(map[string]*job),
		order: make([]string, 0),
		done:  make([]FuncDone, 0),
	}
}

func (o *engine) logger() liblog.Logger {
	if o.log == nil {
		return liblog.GetDefault()
	} else if l := o.log(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *engine) runGet(unitID string) *job {
	o.m.Lock()
	defer o.m.Unlock()
	return o.runs[unitID]
}

func (o *engine) runPut(j *job) {
	o.m.Lock()
	defer o.m.Unlock()

	if _, k := o.runs[j.unt.ID()]; !k {
		o.order = append(o.order, j.unt.ID())
	}

	o.runs[j.unt.ID()] = j
}

func (o *engine) runDel(j *job) {
	o.m.Lock()
	defer o.m.Unlock()

	if c, k := o.runs[j.unt.ID()]; !k || c != j {
		return
	}

	delete(o.runs, j.unt.ID())

	for i, id := range o.order {
		if id == j.unt.ID() {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}

	o.ja.free(j.id)
}

func (o *engine) runList() []*job {
	o.m.Lock()
	defer o.m.Unlock()

	var res = make([]*job, 0, len(o.order))

	for _, id := range o.order {
		if j, k := o.runs[id]; k {
			res = append(res, j)
		}
	}

	return res
}

func (o *engine) RegisterFuncDone(fct FuncDone) {
	if fct == nil {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()
	o.done = append(o.done, fct)
}

func (o *engine) notifyDone(j *job, res Result) {
	o.m.Lock()
	lst := make([]FuncDone, len(o.done))
	copy(lst, o.done)
	o.m.Unlock()

	for _, f := range lst {
		f(j.info(), res)
	}
}

func (o *engine) Jobs() []Info {
	var res = make([]Info, 0)

	for _, j := range o.runList() {
		res = append(res, j.info())
	}

	return res
}

func (o *engine) JobGet(id uint32) (Info, liberr.Error) {
	for _, j := range o.runList() {
		if j.id == id {
			return j.info(), nil
		}
	}

	return Info{}, ErrorJobNotFound.Errorf(id)
}

func (o *engine) HasJob(unitID string) bool {
	return o.runGet(unitID) != nil
}

func (o *engine) HasStopJob(unitID string) bool {
	if j := o.runGet(unitID); j != nil {
		return j.knd.isStopLike()
	}

	return false
}

func (o *engine) HasStartJob(unitID string) bool {
	if j := o.runGet(unitID); j != nil {
		return j.knd.isStartLike()
	}

	return false
}

func (o *engine) Snapshot() []Record {
	var res = make([]Record, 0)

	for _, j := range o.runList() {
		res = append(res, Record{
			Id:    j.id,
			Unit:  j.unt.ID(),
			Kind:  uint8(j.knd),
			Mode:  uint8(j.mod),
			State: uint8(j.sts),
			Phase: j.phs,
		})
	}

	return res
}

func (o *engine) Restore(recs []Record) {
	for _, r := range recs {
		u, e := o.reg.Ref(r.Unit)
		if e != nil || u == nil {
			continue
		}

		j := &job{
			id:  r.Id,
			unt: u,
			knd: Kind(r.Kind),
			mod: Mode(r.Mode),
			sts: StateWaiting, // restored jobs re-run their action
			phs: r.Phase,
			irr: Mode(r.Mode) == ModeReplaceIrreversibly,
		}

		o.m.Lock()
		o.ja.bs.Set(uint(r.Id))
		o.m.Unlock()

		o.runPut(j)
	}
}

func (o *engine) Clear() {
	o.m.Lock()
	defer o.m.Unlock()

	o.runs = make(map[string]*job)
	o.order = make([]string, 0)
	o.ja = newAlloc()
}
