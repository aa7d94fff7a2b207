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
	"os"
	"strings"

	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"
)

// checkConditions evaluates the unit's condition and assert tests. A
// failed assert is a hard error; a failed condition skips the activation
// without marking the unit failed.
func (o *model) checkConditions() liberr.Error {
	c := o.Config()
	if c == nil {
		o.setConditionsDone(true)
		return nil
	}

	if v := c.Unit.AssertPathExists; v != "" {
		if !testPathExists(v) {
			o.logger().Entry(loglvl.ErrorLevel, "unit assert failed").
				FieldAdd("unit", o.id).
				FieldAdd("assert", "AssertPathExists="+v).
				Log()
			return ErrorAssertFailed.Errorf(v)
		}
	}

	var failed string

	if v := c.Unit.ConditionPathExists; v != "" && failed == "" {
		if !testPathExists(v) {
			failed = "ConditionPathExists=" + v
		}
	}

	if v := c.Unit.ConditionFileNotEmpty; v != "" && failed == "" {
		if !testFileNotEmpty(v) {
			failed = "ConditionFileNotEmpty=" + v
		}
	}

	if v := c.Unit.ConditionNeedsUpdate; v != "" && failed == "" {
		if !testNeedsUpdate(v) {
			failed = "ConditionNeedsUpdate=" + v
		}
	}

	if failed != "" {
		o.logger().Entry(loglvl.InfoLevel, "unit condition failed, start skipped").
			FieldAdd("unit", o.id).
			FieldAdd("condition", failed).
			Log()
		return ErrorConditionFailed.Errorf(failed)
	}

	o.setConditionsDone(true)
	return nil
}

func testPathExists(path string) bool {
	neg := strings.HasPrefix(path, "!")
	if neg {
		path = path[1:]
	}

	_, e := os.Stat(path)
	ok := e == nil

	if neg {
		return !ok
	}

	return ok
}

func testFileNotEmpty(path string) bool {
	i, e := os.Stat(path)
	return e == nil && !i.IsDir() && i.Size() > 0
}

// testNeedsUpdate compares the mtime of the given witness directory with
// the /usr mtime; the condition holds when /usr is newer.
func testNeedsUpdate(path string) bool {
	w, e := os.Stat(path)
	if e != nil {
		return true
	}

	u, e := os.Stat("/usr")
	if e != nil {
		return false
	}

	return u.ModTime().After(w.ModTime())
}
