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
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 260

	// ErrorUnitNotFound indicates the named unit is absent.
	ErrorUnitNotFound

	// ErrorVerbMode indicates an invalid job mode value.
	ErrorVerbMode

	// ErrorControlListen indicates the control socket cannot listen.
	ErrorControlListen

	// ErrorControlMailbox indicates the loop mailbox cannot be created.
	ErrorControlMailbox

	// ErrorInstanceName indicates a template instance name generation
	// failure.
	ErrorInstanceName

	// ErrorInstanceKind indicates a template instance without a service
	// sub unit.
	ErrorInstanceKind

	// ErrorInstallIO indicates an install symlink operation failed.
	ErrorInstallIO

	// ErrorReloadFailed indicates at least one unit failed to reload.
	ErrorReloadFailed
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package sysinit/manager"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorUnitNotFound:
		return "unit '%s' not found"
	case ErrorVerbMode:
		return "invalid job mode"
	case ErrorControlListen:
		return "cannot listen on control socket"
	case ErrorControlMailbox:
		return "cannot create control mailbox"
	case ErrorInstanceName:
		return "cannot generate instance name"
	case ErrorInstanceKind:
		return "instance unit '%s' is not a service"
	case ErrorInstallIO:
		return "install operation failed"
	case ErrorReloadFailed:
		return "at least one unit failed to reload"
	}

	return liberr.NullMessage
}
