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

package unit

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 40

	// ErrorNameInvalid indicates a unit name without a valid kind suffix.
	ErrorNameInvalid

	// ErrorSubMissing indicates no sub unit is attached to the frame.
	ErrorSubMissing

	// ErrorLoadFailed indicates the unit description could not be loaded.
	ErrorLoadFailed

	// ErrorNotLoaded indicates a lifecycle verb on a unit that is not
	// load complete.
	ErrorNotLoaded

	// ErrorAlreadyActive indicates a start on a unit already up or on
	// the way up; the request is a no-op.
	ErrorAlreadyActive

	// ErrorAlreadyInactive indicates a stop on a unit already down.
	ErrorAlreadyInactive

	// ErrorNotActive indicates a reload on a unit that is not active.
	ErrorNotActive

	// ErrorAgain indicates a transient state; the verb may be retried.
	ErrorAgain

	// ErrorConditionFailed indicates a condition test failed; the start
	// is skipped without failing the unit.
	ErrorConditionFailed

	// ErrorAssertFailed indicates an assert test failed; the start is
	// refused. The unit active state is left as it was, not set to failed.
	ErrorAssertFailed

	// ErrorStartLimit indicates the start rate limit window is exhausted.
	ErrorStartLimit

	// ErrorKillFailed indicates the signal delivery failed.
	ErrorKillFailed
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package sysinit/unit"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorNameInvalid:
		return "invalid unit name"
	case ErrorSubMissing:
		return "no sub unit attached"
	case ErrorLoadFailed:
		return "cannot load unit description"
	case ErrorNotLoaded:
		return "unit is not loaded"
	case ErrorAlreadyActive:
		return "unit is already active"
	case ErrorAlreadyInactive:
		return "unit is already inactive"
	case ErrorNotActive:
		return "unit is not active"
	case ErrorAgain:
		return "unit is busy, retry later"
	case ErrorConditionFailed:
		return "unit condition '%s' failed, start skipped"
	case ErrorAssertFailed:
		return "unit assert '%s' failed"
	case ErrorStartLimit:
		return "unit start rate limit hit"
	case ErrorKillFailed:
		return "cannot deliver signal to unit processes"
	}

	return liberr.NullMessage
}
