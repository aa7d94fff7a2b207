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
	"os/exec"
	"strings"
	"syscall"

	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"
)

// spawn forks one control command in its own process group and registers
// the pid with the child manager. The command is not waited here; the
// manager reaps it and routes the result back through SigchldEvent.
func (o *mng) spawn(command string) liberr.Error {
	args := strings.Fields(command)
	if len(args) < 1 {
		return ErrorSpawnFailed.Errorf(command)
	}

	c := exec.Command(args[0], args[1:]...)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if e := c.Start(); e != nil {
		return ErrorSpawnFailed.Error(e)
	}

	pid := c.Process.Pid

	o.m.Lock()
	o.ctl = pid
	o.m.Unlock()

	o.um.WatchPid(o.unt, pid)
	o.um.StateSaved(o.unt)

	o.logger().Entry(loglvl.DebugLevel, "control command started").
		FieldAdd("unit", o.unt.ID()).
		FieldAdd("hook", o.hok).
		FieldAdd("pid", pid).
		Log()

	return nil
}
