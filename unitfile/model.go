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

package unitfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	libval "github.com/go-playground/validator/v10"
	libmap "github.com/mitchellh/mapstructure"
	liberr "github.com/nabbar/golib/errors"
	spfvpr "github.com/spf13/viper"

	untknd "github.com/sabouaram/sysinit/unit/kind"
)

func load(name string, paths []string) (*File, liberr.Error) {
	if name == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	for _, dir := range paths {
		p := filepath.Join(dir, name)

		if i, e := os.Stat(p); e != nil || i.IsDir() {
			continue
		}

		return parse(name, p)
	}

	return nil, ErrorFileNotFound.Errorf(name)
}

func parse(name, path string) (*File, liberr.Error) {
	_, knd, e := untknd.SplitName(name)
	if e != nil {
		return nil, ErrorNameInvalid.Error(e)
	}

	vpr := spfvpr.New()
	vpr.SetConfigFile(path)
	vpr.SetConfigType("ini")

	if e = vpr.ReadInConfig(); e != nil {
		return nil, ErrorFileParse.Error(e)
	}

	var f = &File{
		Name: name,
		Path: path,
	}

	if e = decodeSection(vpr, "Unit", &f.Unit); e != nil {
		return nil, ErrorFileParse.Error(e)
	}

	if e = decodeSection(vpr, "Install", &f.Install); e != nil {
		return nil, ErrorFileParse.Error(e)
	}

	switch knd {
	case untknd.Socket:
		f.Socket = &SectionSocket{}
		if e = decodeSection(vpr, "Socket", f.Socket); e != nil {
			return nil, ErrorFileParse.Error(e)
		}
	case untknd.Service:
		f.Service = &SectionService{}
		if e = decodeSection(vpr, "Service", f.Service); e != nil {
			return nil, ErrorFileParse.Error(e)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// decodeSection extracts one INI section into the given struct. Viper
// lower-cases the section keys, so the decoder matches field names case
// insensitively; space separated values decode into string slices the way
// unit files write multi valued keys.
func decodeSection(vpr *spfvpr.Viper, section string, out interface{}) error {
	sub := vpr.Sub(strings.ToLower(section))
	if sub == nil {
		return nil
	}

	dec, e := libmap.NewDecoder(&libmap.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       splitListHook(),
	})

	if e != nil {
		return e
	}

	return dec.Decode(sub.AllSettings())
}

// splitListHook splits whitespace separated scalar values when the target
// field is a plain string slice; command lists keep the whole line as a
// single entry.
func splitListHook() libmap.DecodeHookFunc {
	var cmds = reflect.TypeOf(Commands(nil))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}

		s, k := data.(string)
		if !k || s == "" {
			return data, nil
		}

		if to == cmds {
			return Commands{s}, nil
		}

		if to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
			return strings.Fields(s), nil
		}

		return data, nil
	}
}

// Validate runs the structural validation of the parsed record.
func (f *File) Validate() liberr.Error {
	e := libval.New().Struct(f)
	if e == nil {
		return nil
	}

	err := ErrorValidatorError.Error(nil)

	if lst, k := e.(libval.ValidationErrors); k {
		for _, v := range lst {
			err.Add(ErrorValidatorField.Errorf(v.Namespace(), v.ActualTag()))
		}
	} else {
		err.Add(e)
	}

	return err
}

// TriggerTarget returns the service a socket unit activates: the explicit
// Service= value when set, otherwise "<stem>.service".
func (f *File) TriggerTarget() string {
	if f.Socket == nil {
		return ""
	}

	if f.Socket.Service != "" {
		return f.Socket.Service
	}

	return untknd.Stem(f.Name) + ".service"
}

// HasExec reports whether the socket section declares any command list for
// the given hook name (start-pre, start-post, stop-pre, stop-post).
func (s *SectionSocket) HasExec(hook string) bool {
	return len(s.Exec(hook)) > 0
}

// Exec returns the command list of the given hook name.
func (s *SectionSocket) Exec(hook string) Commands {
	if s == nil {
		return nil
	}

	switch hook {
	case "start-pre":
		return s.ExecStartPre
	case "start-post":
		return s.ExecStartPost
	case "stop-pre":
		return s.ExecStopPre
	case "stop-post":
		return s.ExecStopPost
	}

	return nil
}
