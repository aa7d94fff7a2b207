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

// Package manager wires the core together: one process wide supervisor
// owning the event loop, the reliability journal, the unit registry, the
// job engine, the child manager and the control socket. Every mutation of
// units, jobs and ports happens on the loop thread; the control server
// posts requests into the loop through a mailbox source.
package manager

import (
	"context"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	shlcmd "github.com/nabbar/golib/shell/command"

	libevt "github.com/sabouaram/sysinit/event"
	libjob "github.com/sabouaram/sysinit/job"
	libprs "github.com/sabouaram/sysinit/persist"
	libprt "github.com/sabouaram/sysinit/proto"
	libreg "github.com/sabouaram/sysinit/registry"
)

// State is the manager run state driving the main loop exit.
type State uint8

const (
	// StateInit means startup is not finished.
	StateInit State = iota

	// StateOk means the manager serves normally.
	StateOk

	// StateReload means a configuration reload was requested.
	StateReload

	// StateReexec means a re-execution was requested.
	StateReexec

	// StateReboot means a system reboot was requested.
	StateReboot

	// StatePowerOff means a system power off was requested.
	StatePowerOff

	// StateHalt means a system halt was requested.
	StateHalt

	// StateSuspend means a system suspend was requested.
	StateSuspend

	// StateExit means the manager leaves its main loop.
	StateExit
)

// Config carries the manager bootstrap settings.
type Config struct {
	// UnitPaths is the unit file search path list.
	UnitPaths []string `mapstructure:"unit_paths" validate:"required,min=1"`

	// StateDir hosts the reliability journal store.
	StateDir string `mapstructure:"state_dir" validate:"required"`

	// ControlSocket is the unix path of the control protocol listener.
	ControlSocket string `mapstructure:"control_socket" validate:"required"`

	// DefaultTarget is the unit started at boot, empty to skip.
	DefaultTarget string `mapstructure:"default_target"`
}

// Manager is the process wide supervisor.
type Manager interface {
	libprt.Handler

	// Registry returns the unit registry.
	Registry() libreg.Registry

	// Engine returns the job engine.
	Engine() libjob.Engine

	// Events returns the event loop.
	Events() libevt.Loop

	// Journal returns the reliability journal.
	Journal() libprs.Journal

	// Startup replays the journal, re-registers live resources and
	// enqueues the default target job.
	Startup() liberr.Error

	// Run serves the loop until a terminal state is requested, and
	// returns that state.
	Run(ctx context.Context) (State, liberr.Error)

	// RequestState asks the main loop to leave with the given state.
	RequestState(s State)

	// UnitStart commits a start transaction for the named unit.
	UnitStart(name, mode string) liberr.Error

	// UnitStop commits a stop transaction for the named unit.
	UnitStop(name, mode string) liberr.Error

	// UnitRestart commits a restart transaction for the named unit.
	UnitRestart(name, mode string) liberr.Error

	// UnitReload commits a reload transaction for the named unit.
	UnitReload(name, mode string) liberr.Error

	// UnitKill delivers the terminate signal to the unit processes.
	UnitKill(name string) liberr.Error

	// UnitStatus formats the unit status line.
	UnitStatus(name string) (string, liberr.Error)

	// Reload re-reads the descriptions of every loaded unit.
	Reload() liberr.Error

	// GetShellCommand exposes the interactive management verbs.
	GetShellCommand() []shlcmd.Command

	// Close tears the manager down. On-disk journal state stays.
	Close() error
}

// New builds a manager from the given configuration. The returned value
// is ready for Startup.
func New(cfg Config, log liblog.FuncLog) (Manager, liberr.Error) {
	return newManager(cfg, log)
}
