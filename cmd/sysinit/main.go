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

// sysinit is the manager daemon: it loads unit descriptions, runs the
// event loop, serves the control socket and supervises units.
package main

import (
	"context"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	liblog "github.com/nabbar/golib/logger"
	logcfg "github.com/nabbar/golib/logger/config"
	loglvl "github.com/nabbar/golib/logger/level"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
	"golang.org/x/sys/unix"

	libmgr "github.com/sabouaram/sysinit/manager"
)

var (
	flagConfig string
	flagLevel  string
)

func main() {
	root := &spfcbr.Command{
		Use:   "sysinit",
		Short: "minimal declarative unit supervisor",
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return run()
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "daemon configuration file")
	root.PersistentFlags().StringVarP(&flagLevel, "log-level", "l", "info", "minimal log level")

	if e := root.Execute(); e != nil {
		os.Exit(1)
	}
}

func defaultConfig() libmgr.Config {
	base := "/etc/sysinit"
	state := "/var/lib/sysinit"
	sock := "/run/sysinit.sock"

	if os.Geteuid() != 0 {
		if h, e := homedir.Dir(); e == nil {
			base = filepath.Join(h, ".sysinit", "units")
			state = filepath.Join(h, ".sysinit", "state")
			sock = filepath.Join(h, ".sysinit", "control.sock")
		}
	}

	return libmgr.Config{
		UnitPaths:     []string{base},
		StateDir:      state,
		ControlSocket: sock,
		DefaultTarget: "",
	}
}

func loadConfig() (libmgr.Config, error) {
	cfg := defaultConfig()

	if flagConfig == "" {
		return cfg, nil
	}

	vpr := spfvpr.New()
	vpr.SetConfigFile(flagConfig)

	if e := vpr.ReadInConfig(); e != nil {
		return cfg, e
	}

	if e := vpr.Unmarshal(&cfg); e != nil {
		return cfg, e
	}

	return cfg, nil
}

func newLogger(ctx context.Context) liblog.Logger {
	l := liblog.New(ctx)

	l.SetLevel(loglvl.Parse(flagLevel))

	_ = l.SetOptions(&logcfg.Options{
		Stdout: &logcfg.OptionsStd{
			EnableTrace: false,
		},
	})

	return l
}

func run() error {
	ctx, cnl := context.WithCancel(context.Background())
	defer cnl()

	log := newLogger(ctx)
	defer func() {
		_ = log.Close()
	}()

	cfg, e := loadConfig()
	if e != nil {
		return e
	}

	_ = os.MkdirAll(cfg.StateDir, 0700)
	_ = os.MkdirAll(filepath.Dir(cfg.ControlSocket), 0755)

	mgr, err := libmgr.New(cfg, func() liblog.Logger { return log })
	if err != nil {
		return err
	}

	defer func() {
		_ = mgr.Close()
	}()

	if err = mgr.Startup(); err != nil {
		return err
	}

	sts, err := mgr.Run(ctx)
	if err != nil {
		return err
	}

	switch sts {
	case libmgr.StateReexec:
		return reexec()
	case libmgr.StateReboot:
		return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
	case libmgr.StatePowerOff:
		return unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF)
	case libmgr.StateHalt:
		return unix.Reboot(unix.LINUX_REBOOT_CMD_HALT)
	case libmgr.StateSuspend:
		return unix.Reboot(unix.LINUX_REBOOT_CMD_SW_SUSPEND)
	}

	return nil
}

// reexec replaces the process image with itself; the journal replay of
// the fresh image recovers the runtime state.
func reexec() error {
	exe, e := os.Executable()
	if e != nil {
		return e
	}

	return unix.Exec(exe, os.Args, os.Environ())
}
