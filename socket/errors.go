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
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 120

	// ErrorAddressInvalid indicates an unparsable listening value.
	ErrorAddressInvalid

	// ErrorNetlinkFamily indicates an unknown netlink protocol name.
	ErrorNetlinkFamily

	// ErrorNetlinkGroup indicates an invalid netlink group value.
	ErrorNetlinkGroup

	// ErrorConfigInvalid indicates a missing or malformed socket section.
	ErrorConfigInvalid

	// ErrorConfigNoListen indicates a socket unit without any listener.
	ErrorConfigNoListen

	// ErrorPortOpen indicates the socket could not be created.
	ErrorPortOpen

	// ErrorPortOptions indicates socket options could not be applied.
	ErrorPortOptions

	// ErrorPortBind indicates the bind failed after the retry.
	ErrorPortBind

	// ErrorPortListen indicates the listen call failed.
	ErrorPortListen

	// ErrorPortAccept indicates accept failed or is unsupported.
	ErrorPortAccept

	// ErrorSpawnFailed indicates a control command could not be started.
	ErrorSpawnFailed

	// ErrorSnapshotEncode indicates the journal record encode failed.
	ErrorSnapshotEncode

	// ErrorSnapshotDecode indicates the journal record decode failed.
	ErrorSnapshotDecode
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package sysinit/socket"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorAddressInvalid:
		return "invalid listening address '%s'"
	case ErrorNetlinkFamily:
		return "invalid netlink family '%s'"
	case ErrorNetlinkGroup:
		return "invalid netlink group '%s'"
	case ErrorConfigInvalid:
		return "missing or malformed socket section"
	case ErrorConfigNoListen:
		return "socket unit declares no listener"
	case ErrorPortOpen:
		return "cannot create socket"
	case ErrorPortOptions:
		return "cannot apply socket options"
	case ErrorPortBind:
		return "cannot bind socket"
	case ErrorPortListen:
		return "cannot listen on socket"
	case ErrorPortAccept:
		return "cannot accept connection"
	case ErrorSpawnFailed:
		return "cannot start control command"
	case ErrorSnapshotEncode:
		return "cannot encode socket state record"
	case ErrorSnapshotDecode:
		return "cannot decode socket state record"
	}

	return liberr.NullMessage
}
