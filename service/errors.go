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

package service

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 160

	// ErrorConfigInvalid indicates a missing or malformed service section.
	ErrorConfigInvalid

	// ErrorConfigNoExec indicates a service without ExecStart.
	ErrorConfigNoExec

	// ErrorSpawnFailed indicates the main process could not be started.
	ErrorSpawnFailed

	// ErrorReloadFailed indicates the reload command failed.
	ErrorReloadFailed

	// ErrorSnapshotEncode indicates the journal record encode failed.
	ErrorSnapshotEncode

	// ErrorSnapshotDecode indicates the journal record decode failed.
	ErrorSnapshotDecode
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package sysinit/service"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorConfigInvalid:
		return "missing or malformed service section"
	case ErrorConfigNoExec:
		return "service unit declares no start command"
	case ErrorSpawnFailed:
		return "cannot start service process"
	case ErrorReloadFailed:
		return "service reload command failed"
	case ErrorSnapshotEncode:
		return "cannot encode service state record"
	case ErrorSnapshotDecode:
		return "cannot decode service state record"
	}

	return liberr.NullMessage
}
