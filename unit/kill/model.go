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

package kill

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"

	gopsp "github.com/shirou/gopsutil/process"
	"golang.org/x/sys/unix"
)

const cgroupRoot = "/sys/fs/cgroup"

// Apply delivers the signal selected by the given operation to the main
// and control pids (when > 0) and, depending on the mode, to every process
// of the unit's control group except the manager itself. When the primary
// signal is neither SIGCONT nor SIGKILL, a follow-up SIGCONT is sent so
// stopped processes get a chance to handle it.
func (c Context) Apply(op Operation, mainPid, ctlPid int, cgPath string) error {
	if c.Mode == None {
		return nil
	}

	var (
		err error
		sig = c.Signal(op)
		set = make(map[int]bool)
	)

	if mainPid > 0 {
		set[mainPid] = true
	}

	if ctlPid > 0 {
		set[ctlPid] = true
	}

	if c.Mode == ControlGroup || c.Mode == Mixed {
		for _, p := range c.groupPids(cgPath, mainPid, ctlPid) {
			set[p] = true
		}
	}

	for p := range set {
		if p == os.Getpid() {
			continue
		}

		s := sig
		if c.Mode == Mixed && p != mainPid && p != ctlPid && op == Terminate {
			s = c.Signal(Kill)
		}

		if e := unix.Kill(p, s); e != nil && e != unix.ESRCH && err == nil {
			err = e
		}

		if s != unix.SIGCONT && s != unix.SIGKILL {
			_ = unix.Kill(p, unix.SIGCONT)
		}
	}

	return err
}

// groupPids lists the pids belonging to the unit's control group. When the
// cgroup path is empty or unreadable, it falls back to walking the process
// tree below the known pids.
func (c Context) groupPids(cgPath string, roots ...int) []int {
	if cgPath != "" {
		if pids := readCGroupProcs(filepath.Join(cgroupRoot, cgPath, "cgroup.procs")); len(pids) > 0 {
			return pids
		}
	}

	var (
		res  = make([]int, 0)
		todo = append(make([]int, 0, len(roots)), roots...)
	)

	for len(todo) > 0 {
		r := todo[0]
		todo = todo[1:]

		if r < 1 {
			continue
		}

		p, e := gopsp.NewProcess(int32(r))
		if e != nil {
			continue
		}

		lst, e := p.Children()
		if e != nil {
			continue
		}

		for _, s := range lst {
			res = append(res, int(s.Pid))
			todo = append(todo, int(s.Pid))
		}
	}

	return res
}

func readCGroupProcs(path string) []int {
	h, e := os.Open(path)
	if e != nil {
		return nil
	}

	defer func() {
		_ = h.Close()
	}()

	var res = make([]int, 0)

	sc := bufio.NewScanner(h)
	for sc.Scan() {
		if p, err := strconv.Atoi(sc.Text()); err == nil && p > 0 {
			res = append(res, p)
		}
	}

	return res
}
