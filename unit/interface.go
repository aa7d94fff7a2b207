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

// Package unit implements the common frame every unit kind shares:
// identity, load and active state, dependency sets, attributed child pids,
// kill policy and the lifecycle gates run before delegating to the kind
// specific sub unit.
//
// The sub kind is a closed capability set (SubUnit); kinds attach their
// implementation to the frame at creation time and the frame forwards the
// lifecycle verbs after its own preflight checks.
package unit

import (
	"syscall"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	untkil "github.com/sabouaram/sysinit/unit/kill"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

// NotifyFlags qualifies a state change notification.
type NotifyFlags uint8

const (
	// NotifyReloadFailure marks a state change caused by a failed reload.
	NotifyReloadFailure NotifyFlags = 1 << iota

	// NotifyWillAutoRestart marks a failure that a restart policy will
	// recover on its own.
	NotifyWillAutoRestart
)

// FuncNotify observes unit active state changes, in issue order.
type FuncNotify func(u Unit, from, to untsts.Active, flags NotifyFlags)

// SubUnit is the closed capability set implemented by every unit kind.
type SubUnit interface {
	// Load digests the parsed unit description. On error the sub state
	// must be reset and the first error returned.
	Load(f *libufl.File) liberr.Error

	// Start begins activation. The common frame has already run its
	// gates when this is called.
	Start() liberr.Error

	// Stop begins deactivation. With force, "already stopped" checks
	// are skipped.
	Stop(force bool) liberr.Error

	// Reload re-reads runtime data without a stop/start cycle.
	Reload() liberr.Error

	// SigchldEvent routes a reaped child belonging to this unit.
	SigchldEvent(pid int, code int, sig syscall.Signal)

	// CurrentActiveState maps the internal sub state to the common
	// active state enum.
	CurrentActiveState() untsts.Active

	// CollectFds returns the open listening descriptors owned by the
	// sub unit, for handoff to a triggered service.
	CollectFds() []int

	// NotifyMessage handles a readiness/status datagram from a child.
	NotifyMessage(pid int, kv map[string]string, fds []int) liberr.Error

	// Snapshot serializes the sub state for the reliability journal.
	Snapshot() ([]byte, liberr.Error)

	// Restore re-applies a journal snapshot taken by Snapshot.
	Restore(data []byte) liberr.Error

	// Coldplug re-registers live resources (event sources) after a
	// journal restore.
	Coldplug() liberr.Error

	// Clear drops live resources without touching persistent state.
	Clear()
}

// Unit is the common frame.
type Unit interface {
	// ID returns the unique unit name ("<stem>.<kind>").
	ID() string

	// Kind returns the unit kind parsed from the name.
	Kind() untknd.Kind

	// Sub returns the attached sub unit, nil before AttachSub.
	Sub() SubUnit

	// AttachSub binds the kind specific implementation to this frame.
	AttachSub(s SubUnit)

	// Config returns the parsed unit description, nil before Load.
	Config() *libufl.File

	// LoadState returns the state of the unit description.
	LoadState() untsts.Load

	// SetLoadState records the state of the unit description.
	SetLoadState(l untsts.Load)

	// LoadComplete reports whether a load attempt concluded, whatever
	// its outcome.
	LoadComplete() bool

	// ActiveState returns the runtime state reported by the sub unit,
	// or inactive when no sub unit is attached.
	ActiveState() untsts.Active

	// Load resolves and parses the unit description from the given
	// search paths and hands it to the sub unit.
	Load(paths []string) liberr.Error

	// Start runs the preflight gates (state table, load state,
	// conditions and asserts, start rate limit) then delegates to the
	// sub unit start action.
	Start() liberr.Error

	// Stop delegates to the sub unit stop action. Without force, a unit
	// already inactive or failed reports already-stopped.
	Stop(force bool) liberr.Error

	// Reload delegates to the sub unit when the unit is active.
	Reload() liberr.Error

	// Kill delivers the signal selected by the operation to the given
	// pids and, per kill mode, the unit control group.
	Kill(op untkil.Operation, mainPid, ctlPid int) liberr.Error

	// KillContext returns the termination policy of the unit.
	KillContext() untkil.Context

	// SetKillContext replaces the termination policy of the unit.
	SetKillContext(c untkil.Context)

	// CGroupPath returns the manager-relative control group path, empty
	// when the unit has none.
	CGroupPath() string

	// SetCGroupPath records the control group path.
	SetCGroupPath(p string)

	// DepAdd inserts dependency edges for the given relation.
	DepAdd(rel untrel.Relation, names ...string)

	// DepSet returns the dependency set of the given relation, in
	// insertion order.
	DepSet(rel untrel.Relation) []string

	// DepHas reports whether the given edge exists.
	DepHas(rel untrel.Relation, name string) bool

	// ChildAdd attributes a pid to this unit.
	ChildAdd(pid int)

	// ChildDel removes a pid attribution.
	ChildDel(pid int)

	// ChildPids returns the attributed pids, sorted.
	ChildPids() []int

	// Notify publishes a state change to registered observers, in
	// issue order.
	Notify(from, to untsts.Active, flags NotifyFlags)

	// RegisterNotify appends a state change observer.
	RegisterNotify(fct FuncNotify)

	// IgnoreOnIsolate reports the IgnoreOnIsolate= configuration.
	IgnoreOnIsolate() bool

	// AllowIsolate reports the AllowIsolate= configuration.
	AllowIsolate() bool

	// TestStartLimit consumes one slot of the start rate limit window
	// and reports whether starting is still allowed.
	TestStartLimit() bool

	// ResetFailed clears a failed state back to inactive.
	ResetFailed()
}

// New returns a new unit frame for the given name. The kind is derived
// from the name suffix; the sub unit is attached separately.
func New(name string, log liblog.FuncLog) (Unit, liberr.Error) {
	return newUnit(name, log)
}
