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
	"net"
	"os"
	"syscall"

	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"
	"golang.org/x/sync/errgroup"

	libevt "github.com/sabouaram/sysinit/event"
	libjob "github.com/sabouaram/sysinit/job"
	libprs "github.com/sabouaram/sysinit/persist"
	libprt "github.com/sabouaram/sysinit/proto"
	libunt "github.com/sabouaram/sysinit/unit"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

// Startup replays the journal when prior state exists, re-registers the
// surviving resources in the loop and enqueues the default target job.
func (o *model) Startup() liberr.Error {
	if o.jnl.Enabled() {
		o.replay()
	}

	o.jnl.ClearLastFrame()
	o.sts.Store(StateOk)

	if o.cfg.DefaultTarget != "" {
		_ = o.jnl.SetLastFrame(libprs.Frame{Kind: libprs.FrameManagerOp})
		defer o.jnl.ClearLastFrame()

		u, err := o.reg.Load(o.cfg.DefaultTarget)
		if err != nil {
			o.logger().Entry(loglvl.WarnLevel, "cannot load default target").
				FieldAdd("unit", o.cfg.DefaultTarget).
				ErrorAdd(true, err).
				Log()
		} else if err = o.eng.Exec(libjob.Conf{Unit: u, Kind: libjob.Start}, libjob.ModeReplace); err != nil {
			return err
		}

		o.saveJobs()
	}

	return nil
}

// replay restores units, their sub records and descriptor assignments,
// the child index and the job tables, then cold-plugs live resources. A
// unit whose replay step fails restarts from a clean state.
func (o *model) replay() {
	frame, hasFrame := o.jnl.LastFrame()

	for _, id := range o.jnl.UnitKeys() {
		u, err := o.reg.Load(id)
		if err != nil || u == nil {
			// the description is gone; drop the stale record
			o.jnl.UnitDel(id)
			continue
		}

		rec, err := o.jnl.UnitGet(id)
		if err != nil {
			continue
		}

		u.SetLoadState(untsts.Load(rec.Load))

		b, err := o.jnl.SubGet(id)
		if err != nil {
			continue
		}

		s := u.Sub()
		if s == nil {
			continue
		}

		if err = s.Restore(b); err != nil {
			o.logger().Entry(loglvl.ErrorLevel, "unit replay failed, restarting clean").
				FieldAdd("unit", id).
				ErrorAdd(true, err).
				Log()
			s.Clear()
		}
	}

	if data, err := o.jnl.ChildGet(); err == nil {
		o.chd.Restore(data, func(name string) libunt.Unit {
			return o.reg.Get(name)
		})
	}

	if recs, err := o.jnl.JobsGet(); err == nil {
		o.eng.Restore(recs)
	}

	// an interrupted trigger frame means the service start may not have
	// run; the socket re-dispatches on the next readiness, so the start
	// is not re-run here
	if hasFrame && frame.Kind == libprs.FrameFdListen && !frame.Started {
		o.logger().Entry(loglvl.WarnLevel, "interrupted socket trigger detected").
			FieldAdd("unit", frame.Unit).
			Log()
	}

	o.reg.Walk(func(u libunt.Unit) bool {
		if s := u.Sub(); s != nil {
			if err := s.Coldplug(); err != nil {
				o.logger().Entry(loglvl.ErrorLevel, "unit coldplug failed").
					FieldAdd("unit", u.ID()).
					ErrorAdd(true, err).
					Log()
				s.Clear()
			}
		}
		return true
	})

	o.eng.Pump()
}

// Run serves the manager: the event loop runs on the calling goroutine,
// the control listener accepts in a side goroutine and posts requests
// into the loop mailbox. Run returns the requested terminal state.
func (o *model) Run(ctx context.Context) (State, liberr.Error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cnl := context.WithCancel(ctx)
	defer cnl()

	go func() {
		select {
		case <-ctx.Done():
			o.cnl()
		case <-o.ctx.Done():
			cnl()
		}
	}()

	sig, err := libevt.NewSignal(-10, o.dispatchSignal,
		syscall.SIGCHLD, syscall.SIGTERM, syscall.SIGINT)
	if err != nil {
		return StateExit, err
	}

	defer func() {
		o.evt.DelSource(sig)
		_ = sig.Close()
	}()

	if err = o.evt.AddSource(sig); err != nil {
		return StateExit, err
	}

	api, err := o.newMailbox()
	if err != nil {
		return StateExit, err
	}

	defer api.close()

	if err = o.evt.AddSource(api); err != nil {
		return StateExit, err
	}

	defer o.evt.DelSource(api)

	_ = os.Remove(o.cfg.ControlSocket)

	lst, e := net.Listen("unix", o.cfg.ControlSocket)
	if e != nil {
		return StateExit, ErrorControlListen.Error(e)
	}

	grp, gctx := errgroup.WithContext(o.ctx)

	grp.Go(func() error {
		<-gctx.Done()
		return lst.Close()
	})

	grp.Go(func() error {
		for {
			conn, e := lst.Accept()
			if e != nil {
				return nil
			}

			go o.serveConn(conn, api)
		}
	})

	for o.ctx.Err() == nil {
		// each iteration is one reliability frame
		_ = o.jnl.SetLastFrame(libprs.Frame{Kind: libprs.FrameOtherEvent})

		if err = o.evt.RunOnce(200); err != nil {
			o.logger().Entry(loglvl.ErrorLevel, "event loop iteration failed").
				ErrorAdd(true, err).
				Log()
		}

		o.jnl.ClearLastFrame()
	}

	_ = grp.Wait()
	_ = os.Remove(o.cfg.ControlSocket)

	s := o.sts.Load()
	if s <= StateOk {
		s = StateExit
	}

	return s, nil
}

// dispatchSignal handles loop delivered signals: child exits are drained
// fully before I/O dispatch resumes, termination signals end the loop.
func (o *model) dispatchSignal(l libevt.Loop, sig syscall.Signal) {
	switch sig {
	case syscall.SIGCHLD:
		for _, x := range o.chd.Reap() {
			o.chd.Dispatch(x)
		}

		o.saveChild()
		o.eng.Pump()

	case syscall.SIGTERM, syscall.SIGINT:
		o.logger().Entry(loglvl.InfoLevel, "termination signal received").
			FieldAdd("signal", sig.String()).
			Log()
		o.RequestState(StateExit)
	}
}

// serveConn handles one control connection: the request is posted to the
// loop mailbox and the loop-produced response framed back.
func (o *model) serveConn(conn net.Conn, api *mailbox) {
	defer func() {
		_ = conn.Close()
	}()

	_ = libprt.ServerStream(conn, api.Handler())
}
