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
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 20

	// ErrorLoopCreate indicates the poll descriptor could not be created.
	ErrorLoopCreate

	// ErrorLoopWait indicates the poll wait call failed.
	ErrorLoopWait

	// ErrorSourceRegister indicates a source could not be (un)registered.
	ErrorSourceRegister

	// ErrorSourceUnknown indicates the source is not registered.
	ErrorSourceUnknown

	// ErrorSourceDispatch indicates at least one ready source returned
	// an error while dispatching.
	ErrorSourceDispatch

	// ErrorSignalPipe indicates the signal forwarding pipe failed.
	ErrorSignalPipe

	// ErrorTimerCreate indicates the timer descriptor could not be armed.
	ErrorTimerCreate
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package sysinit/event"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorLoopCreate:
		return "cannot create event loop"
	case ErrorLoopWait:
		return "event loop wait failure"
	case ErrorSourceRegister:
		return "cannot register event source"
	case ErrorSourceUnknown:
		return "event source is not registered"
	case ErrorSourceDispatch:
		return "event source dispatch failure"
	case ErrorSignalPipe:
		return "cannot create signal forwarding pipe"
	case ErrorTimerCreate:
		return "cannot create timer"
	}

	return liberr.NullMessage
}
