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
	untkil "github.com/sabouaram/sysinit/unit/kill"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

// Pump starts every runnable waiting job. A waiting job is held back
// while a unit in its After set still has a committed job, or a unit
// listing it in a Before set has a running job.
func (o *engine) Pump() {
	for {
		var started bool

		for _, j := range o.runList() {
			if j.sts != StateWaiting {
				continue
			}

			// a nested completion may have removed or replaced the
			// job since the snapshot was taken
			if o.runGet(j.unt.ID()) != j {
				continue
			}

			if o.ordered(j) {
				continue
			}

			o.runJob(j)

			// a transient refusal puts the job back to waiting; it
			// does not count as progress for this pass
			if j.sts != StateWaiting {
				started = true
			}
		}

		if !started {
			return
		}
	}
}

// ordered reports whether the job must keep waiting for ordering reasons:
// a unit listed in its After set still has a committed job, or a unit
// listing it in a Before set has a running job.
func (o *engine) ordered(j *job) bool {
	for _, n := range j.unt.DepSet(untrel.After) {
		if w := o.runGet(n); w != nil && w != j {
			return true
		}
	}

	for _, w := range o.runList() {
		if w == j || w.sts == StateWaiting {
			continue
		}

		if w.unt.DepHas(untrel.Before, j.unt.ID()) {
			return true
		}
	}

	return false
}

// runJob fires the unit action of a job. Synchronous outcomes finish the
// job at once; asynchronous ones leave the job running until UnitNotify
// observes the terminal state.
func (o *engine) runJob(j *job) {
	j.sts = StateRunning

	switch j.knd {
	case Nop:
		o.finish(j, ResultDone)

	case Verify:
		if j.unt.ActiveState().IsActiveOrReloading() {
			o.finish(j, ResultDone)
		} else {
			o.finish(j, ResultFailed)
			o.fallback(j.unt, Start)
		}

	case Start:
		o.runStart(j)

	case Stop:
		o.runStop(j)

	case Reload:
		o.runReload(j)

	case TryReload:
		if !j.unt.ActiveState().IsActiveOrReloading() {
			o.finish(j, ResultDone)
		} else {
			o.runReload(j)
		}

	case TryRestart:
		if !j.unt.ActiveState().IsActiveOrReloading() {
			o.finish(j, ResultDone)
		} else {
			j.phs = phaseStop
			o.runStop(j)
		}

	case RestartOrReload:
		if j.unt.ActiveState().IsActiveOrReloading() {
			j.phs = phaseStop
			o.runStop(j)
		} else {
			j.phs = phaseStart
			o.runStart(j)
		}

	case Restart:
		if j.unt.ActiveState().IsInactiveOrFailed() {
			j.phs = phaseStart
			j.unt.ResetFailed()
			o.runStart(j)
		} else {
			j.phs = phaseStop
			o.runStop(j)
		}
	}
}

func (o *engine) runStart(j *job) {
	err := j.unt.Start()

	switch {
	case err == nil:
		// asynchronous: UnitNotify concludes

	case err.HasCode(libunt.ErrorAlreadyActive):
		o.finish(j, ResultDone)

	case err.HasCode(libunt.ErrorConditionFailed):
		o.finish(j, ResultSkipped)

	case err.HasCode(libunt.ErrorAssertFailed):
		o.finish(j, ResultAssert)
		o.fallback(j.unt, Start)

	case err.HasCode(libunt.ErrorAgain):
		// transient: back to waiting, the next state change retries
		j.sts = StateWaiting

	case err.HasCode(libunt.ErrorNotLoaded):
		o.finish(j, ResultInvalid)
		o.fallback(j.unt, Start)

	case err.HasCode(libunt.ErrorStartLimit):
		o.finish(j, ResultFailed)
		o.fallback(j.unt, Start)

	default:
		o.finish(j, ResultFailed)
		o.fallback(j.unt, Start)
	}
}

func (o *engine) runStop(j *job) {
	err := j.unt.Stop(false)

	switch {
	case err == nil:
		// asynchronous: UnitNotify concludes

	case err.HasCode(libunt.ErrorAlreadyInactive):
		o.stopReached(j)

	default:
		o.finish(j, ResultFailed)
		o.fallback(j.unt, Stop)
	}
}

func (o *engine) runReload(j *job) {
	err := j.unt.Reload()

	switch {
	case err == nil:
		o.finish(j, ResultDone)

	case err.HasCode(libunt.ErrorNotActive):
		o.finish(j, ResultDone)

	default:
		o.finish(j, ResultFailed)
	}
}

// stopReached concludes the stop effect of a job: plain stops finish,
// restart flavors chain into their start phase.
func (o *engine) stopReached(j *job) {
	switch j.knd {
	case Restart, TryRestart, RestartOrReload:
		j.phs = phaseStart
		j.unt.ResetFailed()
		o.runStart(j)
	default:
		o.finish(j, ResultDone)
	}
}

// UnitNotify advances the committed job of a unit after a state change.
func (o *engine) UnitNotify(u libunt.Unit, from, to untsts.Active, flags libunt.NotifyFlags) {
	j := o.runGet(u.ID())
	if j == nil || j.sts != StateRunning {
		o.Pump()
		return
	}

	switch {
	case j.knd.isStopLike() && j.phs == phaseStop:
		switch to {
		case untsts.UnitInactive:
			o.stopReached(j)
		case untsts.UnitFailed:
			if j.knd == Restart || j.knd == TryRestart || j.knd == RestartOrReload {
				o.stopReached(j)
			} else {
				o.finish(j, ResultFailed)
				o.fallback(u, Stop)
			}
		}

	default:
		// start effect in flight
		switch to {
		case untsts.UnitActive:
			o.finish(j, ResultDone)
		case untsts.UnitFailed:
			o.finish(j, ResultFailed)
			o.fallback(u, Start)
		case untsts.UnitInactive:
			if from != untsts.UnitInactive {
				o.finish(j, ResultFailed)
				o.fallback(u, Start)
			}
		}
	}

	o.Pump()
}

// finish removes a job from the run table with its final result and
// publishes the completion.
func (o *engine) finish(j *job, res Result) {
	o.runDel(j)

	o.logger().Entry(loglvl.InfoLevel, "job finished").
		FieldAdd("job", j.id).
		FieldAdd("unit", j.unt.ID()).
		FieldAdd("kind", j.knd.String()).
		FieldAdd("result", res.String()).
		Log()

	o.notifyDone(j, res)
}

// fallback propagates the failure of a start (or verify) or stop job:
// waiting Start and Verify jobs of units depending on the failed one are
// removed with result dependency.
func (o *engine) fallback(u libunt.Unit, runKind Kind) {
	var rel untrel.Relation

	switch runKind {
	case Start, Verify:
		rel = untrel.PropagateStartFailure
	case Stop:
		rel = untrel.PropagateStopFailure
	default:
		return
	}

	for _, other := range o.reg.DepsRelation(u, rel) {
		j := o.runGet(other.ID())
		if j == nil || j.sts != StateWaiting {
			continue
		}

		if j.knd == Start || j.knd == Verify {
			o.finish(j, ResultDependency)
		}
	}
}

// Cancel removes a job with result cancelled. A running job's unit gets a
// terminate signal so in-flight commands wind down.
func (o *engine) Cancel(id uint32) liberr.Error {
	for _, j := range o.runList() {
		if j.id != id {
			continue
		}

		if j.sts == StateRunning {
			_ = j.unt.Kill(untkil.Terminate, 0, 0)
		}

		o.finish(j, ResultCancelled)
		o.fallback(j.unt, Start)
		o.Pump()

		return nil
	}

	return ErrorJobNotFound.Errorf(id)
}
