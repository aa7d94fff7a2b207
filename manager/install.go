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
	"os"
	"path/filepath"

	liberr "github.com/nabbar/golib/errors"

	libprt "github.com/sabouaram/sysinit/proto"
	libufl "github.com/sabouaram/sysinit/unitfile"
)

const defaultTargetLink = "default.target"

func (o *model) dispatchFile(c *libprt.UnitFile) libprt.Response {
	var (
		msg string
		err liberr.Error
	)

	switch c.Action {
	case libprt.FileActionCat:
		msg, err = o.fileCat(c.Name)
	case libprt.FileActionEnable:
		err = o.fileEnable(c.Name)
	case libprt.FileActionDisable:
		err = o.fileDisable(c.Name)
	case libprt.FileActionMask:
		err = o.fileMask(c.Name)
	case libprt.FileActionGetDef:
		msg, err = o.fileGetDef()
	case libprt.FileActionSetDef:
		err = o.fileSetDef(c.Name)
	default:
		return libprt.Response{Status: libprt.StatusBadReq, Message: "unknown file action"}
	}

	if err != nil {
		return errResponse(err)
	}

	if msg == "" {
		msg = "ok"
	}

	return libprt.Response{Status: libprt.StatusOk, Message: msg}
}

func (o *model) findUnitFile(name string) (string, liberr.Error) {
	for _, dir := range o.reg.SearchPaths() {
		p := filepath.Join(dir, name)
		if i, e := os.Stat(p); e == nil && !i.IsDir() {
			return p, nil
		}
	}

	return "", ErrorUnitNotFound.Errorf(name)
}

func (o *model) fileCat(name string) (string, liberr.Error) {
	p, err := o.findUnitFile(name)
	if err != nil {
		return "", err
	}

	b, e := os.ReadFile(p)
	if e != nil {
		return "", ErrorInstallIO.Error(e)
	}

	return string(b), nil
}

// fileEnable creates the install symlinks declared by the [Install]
// section: "<dir>/<target>.wants/<unit>" for WantedBy entries and
// "<dir>/<target>.requires/<unit>" for RequiredBy entries.
func (o *model) fileEnable(name string) liberr.Error {
	p, err := o.findUnitFile(name)
	if err != nil {
		return err
	}

	f, err := libufl.Parse(name, p)
	if err != nil {
		return err
	}

	dir := o.reg.SearchPaths()[0]

	link := func(targets []string, suffix string) liberr.Error {
		for _, t := range targets {
			d := filepath.Join(dir, t+suffix)

			if e := os.MkdirAll(d, 0755); e != nil {
				return ErrorInstallIO.Error(e)
			}

			l := filepath.Join(d, name)
			_ = os.Remove(l)

			if e := os.Symlink(p, l); e != nil {
				return ErrorInstallIO.Error(e)
			}
		}

		return nil
	}

	if err = link(f.Install.WantedBy, ".wants"); err != nil {
		return err
	}

	return link(f.Install.RequiredBy, ".requires")
}

func (o *model) fileDisable(name string) liberr.Error {
	for _, dir := range o.reg.SearchPaths() {
		lst, e := filepath.Glob(filepath.Join(dir, "*.wants", name))
		if e == nil {
			for _, l := range lst {
				_ = os.Remove(l)
			}
		}

		lst, e = filepath.Glob(filepath.Join(dir, "*.requires", name))
		if e == nil {
			for _, l := range lst {
				_ = os.Remove(l)
			}
		}
	}

	return nil
}

// fileMask shadows the unit with a link to /dev/null in the first search
// path, so loads resolve to a masked description.
func (o *model) fileMask(name string) liberr.Error {
	l := filepath.Join(o.reg.SearchPaths()[0], name)
	_ = os.Remove(l)

	if e := os.Symlink(os.DevNull, l); e != nil {
		return ErrorInstallIO.Error(e)
	}

	return nil
}

func (o *model) fileGetDef() (string, liberr.Error) {
	l := filepath.Join(o.reg.SearchPaths()[0], defaultTargetLink)

	t, e := os.Readlink(l)
	if e != nil {
		if o.cfg.DefaultTarget != "" {
			return o.cfg.DefaultTarget, nil
		}
		return "", ErrorUnitNotFound.Errorf(defaultTargetLink)
	}

	return filepath.Base(t), nil
}

func (o *model) fileSetDef(name string) liberr.Error {
	p, err := o.findUnitFile(name)
	if err != nil {
		return err
	}

	l := filepath.Join(o.reg.SearchPaths()[0], defaultTargetLink)
	_ = os.Remove(l)

	if e := os.Symlink(p, l); e != nil {
		return ErrorInstallIO.Error(e)
	}

	return nil
}
