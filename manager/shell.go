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
	"io"

	liberr "github.com/nabbar/golib/errors"
	shlcmd "github.com/nabbar/golib/shell/command"

	libunt "github.com/sabouaram/sysinit/unit"
)

// GetShellCommand returns the interactive management verbs: list, start,
// stop, restart and status over the unit registry.
func (o *model) GetShellCommand() []shlcmd.Command {
	return []shlcmd.Command{
		o.shellCmdList(),
		o.shellCmdVerb("start", "Starting units", o.UnitStart),
		o.shellCmdVerb("stop", "Stopping units", o.UnitStop),
		o.shellCmdVerb("restart", "Restarting units", o.UnitRestart),
		o.shellCmdStatus(),
	}
}

func (o *model) shellCmdList() shlcmd.Command {
	return shlcmd.New("list", "list all known units", func(buf io.Writer, err io.Writer, args []string) {
		o.reg.Walk(func(u libunt.Unit) bool {
			_, _ = fmt.Fprintf(buf, "%s %s %s\n", u.ID(), u.LoadState().String(), u.ActiveState().String()) // nolint
			return true
		})
	})
}

func (o *model) shellCmdVerb(name, desc string, fct func(name, mode string) liberr.Error) shlcmd.Command {
	return shlcmd.New(name, desc+" (args: unit names)", func(buf io.Writer, err io.Writer, args []string) {
		for _, n := range args {
			if e := fct(n, "replace"); e != nil {
				_, _ = fmt.Fprintln(err, e.Error()) // nolint
			} else {
				_, _ = fmt.Fprintln(buf, n+": ok") // nolint
			}
		}
	})
}

func (o *model) shellCmdStatus() shlcmd.Command {
	return shlcmd.New("status", "show unit status (args: unit names)", func(buf io.Writer, err io.Writer, args []string) {
		for _, n := range args {
			if s, e := o.UnitStatus(n); e != nil {
				_, _ = fmt.Fprintln(err, e.Error()) // nolint
			} else {
				_, _ = fmt.Fprintln(buf, s) // nolint
			}
		}
	})
}
