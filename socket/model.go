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

package socket

import (
	"sync"
	"syscall"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	"golang.org/x/sys/unix"

	libevt "github.com/sabouaram/sysinit/event"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

type mngPort struct {
	o   *mng
	prt *Port
	reg bool
}

func (p *mngPort) Fd() int {
	return p.prt.Fd()
}

func (p *mngPort) Events() uint32 {
	return unix.EPOLLIN
}

func (p *mngPort) Priority() int8 {
	return 0
}

func (p *mngPort) Dispatch(l libevt.Loop) error {
	o := p.o

	o.um.FrameListen(o.unt, true)
	defer o.um.FrameClear(o.unt)

	if o.State() != Listening {
		return nil
	}

	if o.acceptMode() && p.prt.CanAccept() {
		fd, err := p.prt.Accept()
		if err != nil {
			return err
		}

		p.prt.ApplySockOpt(fd)
		o.enterRunning(fd)
	} else {
		o.enterRunning(-1)
	}

	o.um.StateSaved(o.unt)
	return nil
}

type mng struct {
	m sync.Mutex

	unt libunt.Unit
	um  Universe
	log liblog.FuncLog

	cfg *libufl.File
	prt []*mngPort

	sts State
	res Result
	ctl int
	hok string
	cmd []string
	ref int
}

func newSocket(u libunt.Unit, um Universe, log liblog.FuncLog) SocketUnit {
	return &mng{
		unt: u,
		um:  um,
		log: log,
		prt: make([]*mngPort, 0),
		sts: Dead,
		res: ResultSuccess,
	}
}

func (o *mng) logger() liblog.Logger {
	if o.log == nil {
		return liblog.GetDefault()
	} else if l := o.log(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *mng) acceptMode() bool {
	o.m.Lock()
	defer o.m.Unlock()

	return o.cfg != nil && o.cfg.Socket != nil && o.cfg.Socket.Accept
}

func (o *mng) State() State {
	o.m.Lock()
	defer o.m.Unlock()
	return o.sts
}

func (o *mng) Result() Result {
	o.m.Lock()
	defer o.m.Unlock()
	return o.res
}

func (o *mng) Refused() int {
	o.m.Lock()
	defer o.m.Unlock()
	return o.ref
}

func (o *mng) Ports() []*Port {
	o.m.Lock()
	defer o.m.Unlock()

	var res = make([]*Port, 0, len(o.prt))
	for _, p := range o.prt {
		res = append(res, p.prt)
	}

	return res
}

func (o *mng) CurrentActiveState() untsts.Active {
	return o.State().ToActive()
}

func (o *mng) Load(f *libufl.File) liberr.Error {
	if f == nil || f.Socket == nil {
		return ErrorConfigInvalid.Error(nil)
	}

	var ports = make([]*mngPort, 0)

	add := func(items []string, st SockType) liberr.Error {
		for _, it := range items {
			a, err := ParseAddress(it)
			if err != nil {
				return err
			}
			ports = append(ports, &mngPort{o: o, prt: NewPort(PortSocket, a, st)})
		}
		return nil
	}

	if err := add(f.Socket.ListenStream, TypeStream); err != nil {
		return err
	}
	if err := add(f.Socket.ListenDatagram, TypeDatagram); err != nil {
		return err
	}
	if err := add(f.Socket.ListenSequentialPacket, TypeSeqPacket); err != nil {
		return err
	}

	for _, it := range f.Socket.ListenNetlink {
		a, err := ParseNetlink(it)
		if err != nil {
			return err
		}
		ports = append(ports, &mngPort{o: o, prt: NewPort(PortNetlink, a, TypeRaw)})
	}

	if len(ports) < 1 {
		return ErrorConfigNoListen.Error(nil)
	}

	o.m.Lock()
	o.cfg = f
	o.prt = ports
	o.m.Unlock()

	return nil
}

func (o *mng) Start() liberr.Error {
	switch o.State() {
	case StopPre, StopPreSigterm, StopPreSigkill, StopPost, FinalSigterm, FinalSigkill, Cleaning:
		return libunt.ErrorAgain.Error(nil)
	case StartPre, StartChown, StartPost:
		return nil
	}

	o.resetResult()
	o.enterStartPre()

	return nil
}

func (o *mng) Stop(force bool) liberr.Error {
	switch o.State() {
	case StopPre, StopPreSigterm, StopPreSigkill, StopPost, FinalSigterm, FinalSigkill:
		return nil
	case StartPre, StartChown, StartPost:
		o.enterSignal(StopPreSigterm, ResultSuccess)
		return nil
	case Dead, FailedState:
		if !force {
			return libunt.ErrorAlreadyInactive.Error(nil)
		}
		return nil
	}

	o.enterStopPre(ResultSuccess)
	return nil
}

func (o *mng) Reload() liberr.Error {
	// sockets carry no reloadable runtime data
	return nil
}

func (o *mng) CollectFds() []int {
	o.m.Lock()
	defer o.m.Unlock()

	var res = make([]int, 0, len(o.prt))

	for _, p := range o.prt {
		if p.prt.Fd() >= 0 {
			res = append(res, p.prt.Fd())
		}
	}

	return res
}

func (o *mng) NotifyMessage(pid int, kv map[string]string, fds []int) liberr.Error {
	// sockets take no readiness protocol messages
	return nil
}

func (o *mng) TriggerNotify(to untsts.Active) {
	if o.State() != Running {
		return
	}

	if to.IsInactiveOrFailed() {
		o.enterListening()
		o.um.StateSaved(o.unt)
	}
}

func (o *mng) SigchldEvent(pid int, code int, sig syscall.Signal) {
	o.m.Lock()
	if pid != o.ctl {
		o.m.Unlock()
		return
	}
	o.ctl = 0
	rem := len(o.cmd)
	o.m.Unlock()

	res := ResultSuccess
	if sig != 0 {
		res = ResultFailureSignal
	} else if code != 0 {
		res = ResultFailureExitCode
	}

	if rem > 0 && res == ResultSuccess {
		o.runNext()
		return
	}

	switch o.State() {
	case StartPre:
		if res == ResultSuccess {
			o.enterStartChown()
		} else {
			o.enterSignal(FinalSigterm, res)
		}

	case StartChown:
		if res == ResultSuccess {
			o.enterStartPost()
		} else {
			o.enterStopPre(res)
		}

	case StartPost:
		if res == ResultSuccess {
			o.enterListening()
		} else {
			o.enterStopPre(res)
		}

	case StopPre, StopPreSigterm, StopPreSigkill:
		o.enterStopPost(res)

	case StopPost, FinalSigterm, FinalSigkill:
		o.enterDead(res)

	default:
		o.logger().Entry(loglvl.ErrorLevel, "control command exit in unexpected state").
			FieldAdd("unit", o.unt.ID()).
			FieldAdd("state", o.State().String()).
			Log()
	}

	o.um.StateSaved(o.unt)
}

// transition is the single state change entry point: it validates the
// move against the allowed-edge table, applies the exit side effects
// (control pid watch, port event sources, port descriptors) and notifies
// observers of the mapped active state change.
func (o *mng) transition(next State) {
	o.m.Lock()
	old := o.sts

	if !canTransition(old, next) {
		o.m.Unlock()
		o.logger().Entry(loglvl.ErrorLevel, "refusing state transition outside the allowed edges").
			FieldAdd("unit", o.unt.ID()).
			FieldAdd("from", old.String()).
			FieldAdd("to", next.String()).
			Log()
		return
	}

	o.sts = next
	ctl := o.ctl
	o.m.Unlock()

	if !next.watchesControl() && ctl > 0 {
		o.unwatchControl()
	}

	if next != Listening {
		o.unwatchFds()
	}

	if !next.keepsFds() {
		o.closeFds()
	}

	o.um.StateSaved(o.unt)

	if old != next {
		o.unt.Notify(old.ToActive(), next.ToActive(), 0)
	}
}

// setResult records the first failure of the cycle; later results do not
// overwrite it.
func (o *mng) setResult(res Result) {
	o.m.Lock()
	defer o.m.Unlock()

	if o.res == ResultSuccess {
		o.res = res
	}
}

func (o *mng) resetResult() {
	o.m.Lock()
	defer o.m.Unlock()
	o.res = ResultSuccess
}

func (o *mng) deferStep(fct func()) {
	o.um.Events().Defer(fct)
}

func (o *mng) enterStartPre() {
	o.fillCommands("start-pre")
	o.transition(StartPre)

	if cmd, ok := o.popCommand(); ok {
		if err := o.spawn(cmd); err != nil {
			o.setResult(ResultFailureResources)
			o.enterDead(ResultFailureResources)
		}
		return
	}

	o.deferStep(o.enterStartChown)
}

func (o *mng) enterStartChown() {
	o.transition(StartChown)

	if err := o.openFds(); err != nil {
		o.logger().Entry(loglvl.ErrorLevel, "cannot open socket listeners").
			FieldAdd("unit", o.unt.ID()).
			ErrorAdd(true, err).
			Log()
		o.enterStopPre(ResultFailureResources)
		return
	}

	o.deferStep(o.enterStartPost)
}

func (o *mng) enterStartPost() {
	o.fillCommands("start-post")
	o.transition(StartPost)

	if cmd, ok := o.popCommand(); ok {
		if err := o.spawn(cmd); err != nil {
			o.enterStopPre(ResultFailureResources)
		}
		return
	}

	o.deferStep(o.enterListening)
}

func (o *mng) enterListening() {
	if err := o.openFds(); err != nil {
		o.enterStopPre(ResultFailureResources)
		return
	}

	if !o.acceptMode() {
		o.flushPorts()
	}

	o.watchFds()
	o.transition(Listening)
}

func (o *mng) enterRunning(fd int) {
	id := o.unt.ID()

	if o.um.HasStopJob(id) {
		if fd >= 0 {
			// already accepted: count the refusal and drop the peer
			o.m.Lock()
			o.ref++
			o.m.Unlock()
			_ = unix.Close(fd)
			return
		}

		o.flushPorts()
		return
	}

	o.m.Lock()
	target := ""
	if o.cfg != nil {
		target = o.cfg.TriggerTarget()
	}
	o.m.Unlock()

	if target == "" {
		o.enterStopPre(ResultFailureResources)
		return
	}

	if fd >= 0 {
		// per-connection instantiation: the manager owns the instance
		// naming and the accepted descriptor from here on; the shared
		// listeners keep listening
		o.um.FrameListen(o.unt, false)
		err := o.um.StartTriggered(id, target, fd)
		o.um.FrameListen(o.unt, true)
		o.um.FrameClear(o.unt)

		if err != nil {
			o.m.Lock()
			o.ref++
			o.m.Unlock()
			_ = unix.Close(fd)

			o.logger().Entry(loglvl.ErrorLevel, "cannot start per-connection service instance").
				FieldAdd("unit", id).
				ErrorAdd(true, err).
				Log()
		}

		return
	}

	if !o.um.ActiveOrPending(target) {
		o.um.FrameListen(o.unt, false)
		err := o.um.StartTriggered(id, target, -1)
		o.um.FrameListen(o.unt, true)
		o.um.FrameClear(o.unt)

		if err != nil {
			o.enterStopPre(ResultFailureResources)
			return
		}
	}

	o.transition(Running)
}

func (o *mng) enterStopPre(res Result) {
	o.setResult(res)
	o.fillCommands("stop-pre")
	o.transition(StopPre)

	if cmd, ok := o.popCommand(); ok {
		if err := o.spawn(cmd); err != nil {
			o.enterStopPost(ResultFailureResources)
		}
		return
	}

	o.deferStep(func() {
		o.enterStopPost(ResultSuccess)
	})
}

func (o *mng) enterStopPost(res Result) {
	o.setResult(res)
	o.fillCommands("stop-post")
	o.transition(StopPost)

	if cmd, ok := o.popCommand(); ok {
		if err := o.spawn(cmd); err != nil {
			o.enterSignal(FinalSigterm, ResultFailureResources)
		}
		return
	}

	o.deferStep(func() {
		o.enterSignal(FinalSigterm, ResultSuccess)
	})
}

func (o *mng) enterSignal(next State, res Result) {
	o.setResult(res)
	o.transition(next)

	o.m.Lock()
	ctl := o.ctl
	o.m.Unlock()

	op := next.ToKillOperation(o.um.HasRestartJob(o.unt.ID()))

	if err := o.unt.Kill(op, 0, ctl); err != nil {
		if next == StopPreSigterm || next == StopPreSigkill {
			o.enterStopPost(ResultFailureResources)
		} else {
			o.enterDead(ResultFailureResources)
		}
		return
	}

	if len(o.unt.ChildPids()) > 0 {
		// a watched child remains: its sigchld drives the next step
		return
	}

	switch next {
	case StopPreSigterm:
		o.deferStep(func() { o.enterSignal(StopPreSigkill, ResultSuccess) })
	case StopPreSigkill:
		o.deferStep(func() { o.enterStopPost(ResultSuccess) })
	case FinalSigterm:
		o.deferStep(func() { o.enterSignal(FinalSigkill, ResultSuccess) })
	default:
		o.deferStep(func() { o.enterDead(ResultSuccess) })
	}
}

func (o *mng) enterDead(res Result) {
	o.setResult(res)

	o.m.Lock()
	o.cmd = nil
	o.hok = ""
	final := Dead
	if o.res != ResultSuccess {
		final = FailedState
	}
	o.m.Unlock()

	o.transition(final)
}

func (o *mng) fillCommands(hook string) {
	o.m.Lock()
	defer o.m.Unlock()

	o.hok = hook

	if o.cfg == nil || o.cfg.Socket == nil {
		o.cmd = nil
		return
	}

	lst := o.cfg.Socket.Exec(hook)
	o.cmd = make([]string, len(lst))
	copy(o.cmd, lst)
}

func (o *mng) popCommand() (string, bool) {
	o.m.Lock()
	defer o.m.Unlock()

	if len(o.cmd) < 1 {
		return "", false
	}

	c := o.cmd[0]
	o.cmd = o.cmd[1:]

	return c, true
}

func (o *mng) runNext() {
	if cmd, ok := o.popCommand(); ok {
		if err := o.spawn(cmd); err != nil {
			o.logger().Entry(loglvl.ErrorLevel, "cannot run next control command").
				FieldAdd("unit", o.unt.ID()).
				ErrorAdd(true, err).
				Log()
		}
	}
}

func (o *mng) unwatchControl() {
	o.m.Lock()
	ctl := o.ctl
	o.ctl = 0
	o.m.Unlock()

	if ctl > 0 {
		o.um.UnwatchPid(o.unt, ctl)
	}
}

func (o *mng) openFds() liberr.Error {
	o.m.Lock()
	defer o.m.Unlock()

	for _, p := range o.prt {
		if err := p.prt.Open(); err != nil {
			for _, q := range o.prt {
				q.prt.Close()
			}
			return err
		}

		p.prt.ApplySockOpt(p.prt.Fd())
	}

	return nil
}

func (o *mng) closeFds() {
	o.m.Lock()
	lst := o.prt
	o.m.Unlock()

	for _, p := range lst {
		if p.reg {
			o.um.Events().DelSource(p)
			p.reg = false
		}

		p.prt.Close()
	}
}

func (o *mng) watchFds() {
	o.m.Lock()
	lst := o.prt
	o.m.Unlock()

	for _, p := range lst {
		if p.prt.Fd() < 0 {
			continue
		}

		if !p.reg {
			if e := o.um.Events().AddSource(p); e == nil {
				p.reg = true
			}
		} else {
			_ = o.um.Events().SetEnabled(p, true)
		}
	}
}

func (o *mng) unwatchFds() {
	o.m.Lock()
	lst := o.prt
	o.m.Unlock()

	for _, p := range lst {
		if p.reg {
			_ = o.um.Events().SetEnabled(p, false)
		}
	}
}

func (o *mng) flushPorts() {
	o.m.Lock()
	lst := o.prt
	o.m.Unlock()

	for _, p := range lst {
		p.prt.FlushAccept()
		p.prt.FlushFd()
	}
}

// Clear drops live resources; a failed cycle resets back to dead so a
// fresh transaction can start over.
func (o *mng) Clear() {
	o.unwatchFds()

	o.m.Lock()
	defer o.m.Unlock()

	if o.sts == FailedState {
		o.sts = Dead
		o.res = ResultSuccess
	}
}

func (o *mng) Coldplug() liberr.Error {
	if o.State() != Listening && o.State() != Running {
		return nil
	}

	o.m.Lock()
	lst := o.prt
	o.m.Unlock()

	// descriptors that did not survive the restart are reopened from
	// their address before re-registering with the loop
	for _, p := range lst {
		if p.prt.Fd() >= 0 && !p.prt.Valid() {
			p.prt.SetFd(-1)
		}
	}

	if err := o.openFds(); err != nil {
		return err
	}

	if o.State() == Listening {
		o.watchFds()
	}

	return nil
}
