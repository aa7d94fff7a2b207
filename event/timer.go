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

package event

import (
	"time"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

// FuncTimer handles one timer expiration from inside the loop thread.
type FuncTimer func(l Loop)

// TimerSource is a one-shot or periodic timerfd based source.
type TimerSource interface {
	Source

	// Reset re-arms the timer with a new delay.
	Reset(after time.Duration) error

	// Close disarms and releases the timer descriptor. The source must
	// be removed from its loop first.
	Close() error
}

type timerSource struct {
	fd  int
	fct FuncTimer
	pri int8
	prd time.Duration
}

// NewTimer returns a timer source firing once after the given delay, or
// every period when the period is non zero. The source must be added to a
// loop by the caller.
func NewTimer(pri int8, after, period time.Duration, fct FuncTimer) (TimerSource, liberr.Error) {
	if fct == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	fd, e := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if e != nil {
		return nil, ErrorTimerCreate.Error(e)
	}

	t := &timerSource{
		fd:  fd,
		fct: fct,
		pri: pri,
		prd: period,
	}

	if e := t.arm(after); e != nil {
		_ = unix.Close(fd)
		return nil, ErrorTimerCreate.Error(e)
	}

	return t, nil
}

func (o *timerSource) arm(after time.Duration) error {
	if after <= 0 {
		after = time.Nanosecond
	}

	its := unix.ItimerSpec{
		Value: unix.NsecToTimespec(after.Nanoseconds()),
	}

	if o.prd > 0 {
		its.Interval = unix.NsecToTimespec(o.prd.Nanoseconds())
	}

	return unix.TimerfdSettime(o.fd, 0, &its, nil)
}

func (o *timerSource) Fd() int {
	return o.fd
}

func (o *timerSource) Events() uint32 {
	return unix.EPOLLIN
}

func (o *timerSource) Priority() int8 {
	return o.pri
}

func (o *timerSource) Dispatch(l Loop) error {
	var buf = make([]byte, 8)

	// drain the expiration counter, keep level-triggered semantics clean
	_, _ = unix.Read(o.fd, buf)

	o.fct(l)
	return nil
}

func (o *timerSource) Reset(after time.Duration) error {
	return o.arm(after)
}

func (o *timerSource) Close() error {
	return unix.Close(o.fd)
}
