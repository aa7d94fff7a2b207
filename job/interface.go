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

// Package job implements the transactional job engine: a user verb on a
// unit expands into a dependency closed, conflict checked set of per-unit
// jobs staged in a suspend table, then committed atomically into the run
// table. Nothing outside a successful commit mutates the run table or the
// units.
package job

import (
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libreg "github.com/sabouaram/sysinit/registry"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

// Conf is one requested job configuration.
type Conf struct {
	// Unit is the target unit frame.
	Unit libunt.Unit

	// Kind is the requested action.
	Kind Kind
}

// Info is the read-only view of a committed job.
type Info struct {
	Id     uint32
	Unit   string
	Kind   Kind
	Mode   Mode
	State  State
	Phase  uint8
	Irrevo bool
}

// Record is the journal form of a committed job.
type Record struct {
	Id    uint32 `cbor:"1,keyasint"`
	Unit  string `cbor:"2,keyasint"`
	Kind  uint8  `cbor:"3,keyasint"`
	Mode  uint8  `cbor:"4,keyasint"`
	State uint8  `cbor:"5,keyasint"`
	Phase uint8  `cbor:"6,keyasint"`
}

// FuncDone observes job completion with its final result.
type FuncDone func(i Info, res Result)

// Engine is the transactional planner and runner.
type Engine interface {
	// Exec expands the given configuration into a transaction, verifies
	// it against the run table and commits it. On any failure the
	// suspend partition is dropped and neither the run table nor any
	// unit is touched.
	Exec(conf Conf, mode Mode) liberr.Error

	// Jobs returns a snapshot of the run table, in commit order.
	Jobs() []Info

	// JobGet returns the run table entry with the given id.
	JobGet(id uint32) (Info, liberr.Error)

	// Cancel removes the job with the given id from the run table with
	// result cancelled and propagates dependency failure to waiters.
	Cancel(id uint32) liberr.Error

	// HasJob reports whether the unit has any committed job.
	HasJob(unitID string) bool

	// HasStopJob reports whether the unit has a committed job with a
	// stop effect.
	HasStopJob(unitID string) bool

	// HasStartJob reports whether the unit has a committed job with a
	// start effect.
	HasStartJob(unitID string) bool

	// UnitNotify advances jobs waiting on the given unit after a state
	// change, in issue order.
	UnitNotify(u libunt.Unit, from, to untsts.Active, flags libunt.NotifyFlags)

	// Pump starts every runnable waiting job. Called after commits and
	// job completions; idempotent.
	Pump()

	// RegisterFuncDone appends a completion observer.
	RegisterFuncDone(fct FuncDone)

	// Snapshot returns the run table in journal form.
	Snapshot() []Record

	// Restore rebuilds the run table from journal records, resolving
	// units through the registry.
	Restore(recs []Record)

	// Clear drops every job without running completions.
	Clear()
}

// New returns an engine bound to the given registry.
func New(reg libreg.Registry, log liblog.FuncLog) Engine {
	return newEngine(reg, log)
}
