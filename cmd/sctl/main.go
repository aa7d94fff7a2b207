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

// sctl is the control CLI talking to the sysinit manager over the framed
// unix socket protocol.
package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	spfcbr "github.com/spf13/cobra"

	libprt "github.com/sabouaram/sysinit/proto"
)

var flagSocket string

func main() {
	root := &spfcbr.Command{
		Use:   "sctl",
		Short: "control the sysinit manager",
	}

	root.PersistentFlags().StringVarP(&flagSocket, "socket", "s", defaultSocket(), "manager control socket")

	root.AddCommand(
		unitCmd("status", libprt.UnitActionStatus),
		unitCmd("start", libprt.UnitActionStart),
		unitCmd("stop", libprt.UnitActionStop),
		unitCmd("restart", libprt.UnitActionRestart),
		unitCmd("reload", libprt.UnitActionReload),
		unitCmd("kill", libprt.UnitActionKill),
		fileCmd("cat", libprt.FileActionCat),
		fileCmd("enable", libprt.FileActionEnable),
		fileCmd("disable", libprt.FileActionDisable),
		fileCmd("mask", libprt.FileActionMask),
		getDefCmd(),
		setDefCmd(),
		jobsCmd(),
		cancelCmd(),
		mngrCmd("daemon-reload", libprt.MngrActionReload),
		mngrCmd("daemon-reexec", libprt.MngrActionReexec),
		sysCmd("reboot", libprt.SysActionReboot),
		sysCmd("poweroff", libprt.SysActionPoweroff),
		sysCmd("halt", libprt.SysActionHalt),
		sysCmd("suspend", libprt.SysActionSuspend),
	)

	if e := root.Execute(); e != nil {
		os.Exit(1)
	}
}

func defaultSocket() string {
	if os.Geteuid() == 0 {
		return "/run/sysinit.sock"
	}

	if h, e := homedir.Dir(); e == nil {
		return filepath.Join(h, ".sysinit", "control.sock")
	}

	return "/run/sysinit.sock"
}

func unitCmd(name string, action uint8) *spfcbr.Command {
	var mode string

	c := &spfcbr.Command{
		Use:  name + " <unit>",
		Args: spfcbr.ExactArgs(1),
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Ucomm: &libprt.UnitComm{
				Action: action,
				Name:   args[0],
				Mode:   mode,
			}})
		},
	}

	c.Flags().StringVar(&mode, "job-mode", "replace", "job mode (fail, replace, isolate, ...)")
	return c
}

func fileCmd(name string, action uint8) *spfcbr.Command {
	return &spfcbr.Command{
		Use:  name + " <unit>",
		Args: spfcbr.ExactArgs(1),
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Ufile: &libprt.UnitFile{
				Action: action,
				Name:   args[0],
			}})
		},
	}
}

func getDefCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:  "get-default",
		Args: spfcbr.NoArgs,
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Ufile: &libprt.UnitFile{Action: libprt.FileActionGetDef}})
		},
	}
}

func setDefCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:  "set-default <unit>",
		Args: spfcbr.ExactArgs(1),
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Ufile: &libprt.UnitFile{
				Action: libprt.FileActionSetDef,
				Name:   args[0],
			}})
		},
	}
}

func jobsCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:  "list-jobs",
		Args: spfcbr.NoArgs,
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Jcomm: &libprt.JobComm{Action: libprt.JobActionList}})
		},
	}
}

func cancelCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:  "cancel <job-id>",
		Args: spfcbr.ExactArgs(1),
		Run: func(cmd *spfcbr.Command, args []string) {
			var id uint32
			if _, e := fmt.Sscanf(args[0], "%d", &id); e != nil {
				color.Red("invalid job id '%s'", args[0])
				os.Exit(1)
			}
			execute(libprt.Request{Jcomm: &libprt.JobComm{
				Action: libprt.JobActionCancel,
				JobId:  id,
			}})
		},
	}
}

func mngrCmd(name string, action uint8) *spfcbr.Command {
	return &spfcbr.Command{
		Use:  name,
		Args: spfcbr.NoArgs,
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Mcomm: &libprt.MngrComm{Action: action}})
		},
	}
}

func sysCmd(name string, action uint8) *spfcbr.Command {
	return &spfcbr.Command{
		Use:  name,
		Args: spfcbr.NoArgs,
		Run: func(cmd *spfcbr.Command, args []string) {
			execute(libprt.Request{Syscomm: &libprt.SysComm{Action: action}})
		},
	}
}

// execute runs one request against the manager and exits with a status
// derived code: 0 on success, 4 for not found, 3 for other client errors,
// 5 for server errors, 1 for transport failures.
func execute(req libprt.Request) {
	conn, e := net.Dial("unix", flagSocket)
	if e != nil {
		color.Red("cannot reach the manager on %s: %v", flagSocket, e)
		os.Exit(1)
	}

	defer func() {
		_ = conn.Close()
	}()

	rsp, err := libprt.ClientStream(conn, req)
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	switch {
	case rsp.Status < 300:
		if rsp.Message != "" && rsp.Message != "ok" {
			fmt.Println(rsp.Message)
		} else {
			color.Green("ok")
		}
		os.Exit(0)

	case rsp.Status == 404:
		color.Red(rsp.Message)
		os.Exit(4)

	case rsp.Status < 500:
		color.Red(rsp.Message)
		os.Exit(3)

	default:
		color.Red(rsp.Message)
		os.Exit(5)
	}
}
