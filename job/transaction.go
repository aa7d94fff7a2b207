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
	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"

	libunt "github.com/sabouaram/sysinit/unit"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

func (o *engine) Exec(conf Conf, mode Mode) liberr.Error {
	if conf.Unit == nil {
		return ErrorParamEmpty.Error(nil)
	}

	stg := newStage()

	if err := o.transExpand(stg, conf, mode); err != nil {
		return err
	}

	if err := o.transAffect(stg, conf, mode); err != nil {
		return err
	}

	if err := o.transVerify(stg, mode); err != nil {
		return err
	}

	o.transCommit(stg, mode)
	o.Pump()

	return nil
}

// transExpand records the requested job in the suspend partition and
// recursively expands it over the dependency relations keyed by the job
// kind. Expansion failures other than bad-request abort the transaction;
// bad-request is tolerated on non-ignored edges and logged.
func (o *engine) transExpand(stg *stage, conf Conf, mode Mode) liberr.Error {
	if err := o.transCheckInput(conf); err != nil {
		return err
	}

	j, fresh, err := o.recordSuspend(stg, conf, mode)
	if err != nil {
		return err
	}

	if !o.transIsExpand(j, fresh, mode) {
		return nil
	}

	switch conf.Kind {
	case Start, RestartOrReload:
		return o.transExpandStart(stg, conf, mode)
	case Stop:
		return o.transExpandStop(stg, conf, mode)
	case Reload:
		return o.transExpandReload(stg, conf, mode)
	case Restart:
		if err = o.transExpandStart(stg, conf, mode); err != nil {
			return err
		}
		return o.transExpandRestart(stg, conf, mode)
	}

	// Verify, TryRestart, TryReload and Nop are terminal
	return nil
}

func (o *engine) transCheckInput(conf Conf) liberr.Error {
	if conf.Kind == Stop {
		if !conf.Unit.LoadComplete() {
			_, _ = o.reg.Load(conf.Unit.ID())
		}
		return nil
	}

	if _, err := o.reg.Load(conf.Unit.ID()); err != nil {
		if err.HasCode(libufl.ErrorFileParse) || err.HasCode(libufl.ErrorValidatorError) {
			return ErrorJobBadRequest.Error(err)
		}
		return ErrorJobInput.Error(err)
	}

	return nil
}

// recordSuspend inserts the configuration in the suspend partition, or
// merges it with the suspended job already targeting the unit. A merge
// failure is a transaction conflict.
func (o *engine) recordSuspend(stg *stage, conf Conf, mode Mode) (*job, bool, liberr.Error) {
	if cur := stg.get(conf.Unit.ID()); cur != nil {
		if cur.knd == conf.Kind {
			return cur, false, nil
		}

		mrg, ok := Merge(cur.knd, conf.Kind)
		if !ok {
			return nil, false, ErrorJobConflict.Errorf(conf.Unit.ID(), cur.knd.String(), conf.Kind.String())
		}

		cur.knd = mrg
		return cur, false, nil
	}

	j := &job{
		unt:   conf.Unit,
		knd:   conf.Kind,
		mod:   mode,
		sts:   StateWaiting,
		irr:   mode == ModeReplaceIrreversibly,
		fresh: true,
	}

	stg.put(j)
	return j, true, nil
}

func (o *engine) transIsExpand(j *job, fresh bool, mode Mode) bool {
	if j.knd == Nop {
		return false
	}

	if !fresh {
		return false
	}

	if mode == ModeIgnoreDependencies || mode == ModeIgnoreRequirements {
		return false
	}

	return true
}

type expandEdge struct {
	rel      untrel.Relation
	kind     Kind
	tolerant bool
}

func (o *engine) transExpandStart(stg *stage, conf Conf, mode Mode) liberr.Error {
	var edges = []expandEdge{
		{rel: untrel.PullInStart, kind: Start},
		{rel: untrel.PullInStartIgnored, kind: Start, tolerant: true},
		{rel: untrel.PullInVerify, kind: Verify},
		{rel: untrel.PullInStop, kind: Stop},
		{rel: untrel.PullInStopIgnored, kind: Stop, tolerant: true},
	}

	for _, edge := range edges {
		for _, other := range o.reg.DepsRelation(conf.Unit, edge.rel) {
			err := o.transExpand(stg, Conf{Unit: other, Kind: edge.kind}, mode)

			if err == nil {
				continue
			}

			if edge.tolerant || err.HasCode(ErrorJobBadRequest) {
				o.logger().Entry(loglvl.DebugLevel, "tolerated expansion failure").
					FieldAdd("unit", other.ID()).
					FieldAdd("relation", edge.rel.String()).
					ErrorAdd(true, err).
					Log()
				continue
			}

			return err
		}
	}

	return nil
}

func (o *engine) transExpandStop(stg *stage, conf Conf, mode Mode) liberr.Error {
	return o.transExpandPropagate(stg, conf, mode, untrel.PropagateStop, Stop)
}

func (o *engine) transExpandRestart(stg *stage, conf Conf, mode Mode) liberr.Error {
	return o.transExpandPropagate(stg, conf, mode, untrel.PropagateRestart, TryRestart)
}

func (o *engine) transExpandPropagate(stg *stage, conf Conf, mode Mode, rel untrel.Relation, kind Kind) liberr.Error {
	for _, other := range o.reg.DepsRelation(conf.Unit, rel) {
		err := o.transExpand(stg, Conf{Unit: other, Kind: kind}, mode)

		if err != nil && !err.HasCode(ErrorJobBadRequest) {
			return err
		}
	}

	return nil
}

func (o *engine) transExpandReload(stg *stage, conf Conf, mode Mode) liberr.Error {
	for _, other := range o.reg.DepsRelation(conf.Unit, untrel.PropagatesReloadTo) {
		if err := o.transExpand(stg, Conf{Unit: other, Kind: TryReload}, mode); err != nil {
			o.logger().Entry(loglvl.DebugLevel, "tolerated reload propagation failure").
				FieldAdd("unit", other.ID()).
				ErrorAdd(true, err).
				Log()
		}
	}

	return nil
}

// transAffect applies the mode specific phase: isolate appends a stop job
// for every unit not yet part of the transaction and not opted out, and
// trigger appends a stop job to every unit that triggers the target.
func (o *engine) transAffect(stg *stage, conf Conf, mode Mode) liberr.Error {
	switch mode {
	case ModeIsolate:
		o.reg.Walk(func(u libunt.Unit) bool {
			if u.IgnoreOnIsolate() {
				return true
			}

			if stg.get(u.ID()) != nil {
				return true
			}

			if err := o.transExpand(stg, Conf{Unit: u, Kind: Stop}, mode); err != nil {
				o.logger().Entry(loglvl.DebugLevel, "tolerated isolate expansion failure").
					FieldAdd("unit", u.ID()).
					ErrorAdd(true, err).
					Log()
			}

			return true
		})

	case ModeTrigger:
		for _, other := range o.reg.DepsRelation(conf.Unit, untrel.TriggeredBy) {
			if stg.get(other.ID()) != nil {
				continue
			}

			if err := o.transExpand(stg, Conf{Unit: other, Kind: Stop}, mode); err != nil {
				o.logger().Entry(loglvl.DebugLevel, "tolerated trigger expansion failure").
					FieldAdd("unit", other.ID()).
					ErrorAdd(true, err).
					Log()
			}
		}
	}

	return nil
}

// transVerify checks the suspend partition is internally conflict free and
// not destructive toward the run table unless the mode permits it.
func (o *engine) transVerify(stg *stage, mode Mode) liberr.Error {
	// internal conflicts cannot survive recordSuspend merging; recheck
	// anyway so a broken merge matrix cannot commit an inconsistency
	for _, a := range stg.list() {
		for _, b := range stg.list() {
			if a.unt.ID() == b.unt.ID() && a != b {
				return ErrorJobConflict.Errorf(a.unt.ID(), a.knd.String(), b.knd.String())
			}
		}
	}

	for _, j := range stg.list() {
		run := o.runGet(j.unt.ID())
		if run == nil {
			continue
		}

		if !Conflicting(j.knd, run.knd) && run.knd != j.knd {
			continue
		}

		if run.knd == j.knd {
			continue
		}

		if mode == ModeFail {
			return ErrorJobConflict.Errorf(j.unt.ID(), run.knd.String(), j.knd.String())
		}

		if run.irr {
			return ErrorJobConflict.Errorf(j.unt.ID(), run.knd.String(), j.knd.String())
		}
	}

	return nil
}

// transCommit moves the whole suspend partition into the run table,
// replacing the installed job of each of its units with result cancelled.
func (o *engine) transCommit(stg *stage, mode Mode) {
	if mode == ModeFlush {
		for _, j := range o.runList() {
			o.finish(j, ResultCancelled)
		}
	}

	for _, j := range stg.list() {
		if run := o.runGet(j.unt.ID()); run != nil {
			o.finish(run, ResultCancelled)
		}

		o.m.Lock()
		j.id = o.ja.next()
		o.m.Unlock()

		o.runPut(j)

		o.logger().Entry(loglvl.InfoLevel, "job committed").
			FieldAdd("job", j.id).
			FieldAdd("unit", j.unt.ID()).
			FieldAdd("kind", j.knd.String()).
			Log()
	}
}
