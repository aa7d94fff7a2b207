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
	"os"
	"os/signal"
	"syscall"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

// FuncSignal handles one delivered signal from inside the loop thread.
type FuncSignal func(l Loop, sig syscall.Signal)

// SignalSource bridges Go signal delivery into the loop: signals are
// forwarded through a pipe so they are observed as I/O readiness and
// handled on the loop thread at a frame boundary, never inside one.
type SignalSource interface {
	Source

	// Close stops forwarding and releases the pipe descriptors.
	Close() error
}

type sigSource struct {
	r   int
	w   *os.File
	chn chan os.Signal
	fct FuncSignal
	pri int8
}

// NewSignal returns a source dispatching the given function for each of
// the subscribed signals. The source must be added to a loop by the
// caller.
func NewSignal(pri int8, fct FuncSignal, sig ...os.Signal) (SignalSource, liberr.Error) {
	if fct == nil || len(sig) < 1 {
		return nil, ErrorParamEmpty.Error(nil)
	}

	var p [2]int
	if e := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); e != nil {
		return nil, ErrorSignalPipe.Error(e)
	}

	s := &sigSource{
		r:   p[0],
		w:   os.NewFile(uintptr(p[1]), "signal-pipe"),
		chn: make(chan os.Signal, 64),
		fct: fct,
		pri: pri,
	}

	signal.Notify(s.chn, sig...)

	go s.forward()

	return s, nil
}

func (o *sigSource) forward() {
	for s := range o.chn {
		n, k := s.(syscall.Signal)
		if !k {
			continue
		}

		_, _ = o.w.Write([]byte{byte(n)})
	}
}

func (o *sigSource) Fd() int {
	return o.r
}

func (o *sigSource) Events() uint32 {
	return unix.EPOLLIN
}

func (o *sigSource) Priority() int8 {
	return o.pri
}

func (o *sigSource) Dispatch(l Loop) error {
	var buf = make([]byte, 64)

	for {
		n, e := unix.Read(o.r, buf)
		if n < 1 || e != nil {
			return nil
		}

		for i := 0; i < n; i++ {
			o.fct(l, syscall.Signal(buf[i]))
		}

		if n < len(buf) {
			return nil
		}
	}
}

func (o *sigSource) Close() error {
	signal.Stop(o.chn)
	close(o.chn)

	e := o.w.Close()

	if er := unix.Close(o.r); er != nil && e == nil {
		e = er
	}

	return e
}
