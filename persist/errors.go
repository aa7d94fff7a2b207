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

package persist

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 200

	// ErrorStoreOpen indicates the journal store could not be opened.
	ErrorStoreOpen

	// ErrorStoreWrite indicates a journal write failed.
	ErrorStoreWrite

	// ErrorStoreRead indicates a journal read failed.
	ErrorStoreRead

	// ErrorStoreNotFound indicates the journal key is absent.
	ErrorStoreNotFound

	// ErrorEncode indicates a journal record encode failed.
	ErrorEncode

	// ErrorDecode indicates a journal record decode failed.
	ErrorDecode
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package sysinit/persist"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorStoreOpen:
		return "cannot open journal store"
	case ErrorStoreWrite:
		return "cannot write journal record"
	case ErrorStoreRead:
		return "cannot read journal record"
	case ErrorStoreNotFound:
		return "journal record not found"
	case ErrorEncode:
		return "cannot encode journal record"
	case ErrorDecode:
		return "cannot decode journal record"
	}

	return liberr.NullMessage
}
