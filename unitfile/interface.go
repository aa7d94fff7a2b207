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

// Package unitfile loads INI style unit descriptions ([Unit] / [Install]
// plus one kind specific section) into typed, validated configuration
// records. The manager core only ever consumes the typed records; nothing
// outside this package touches the file format.
package unitfile

import (
	liberr "github.com/nabbar/golib/errors"
)

// File is a fully parsed unit description.
type File struct {
	// Name is the unit name the file was resolved for.
	Name string

	// Path is the absolute path the description was read from.
	Path string

	// Unit is the [Unit] section, always present (possibly zero).
	Unit SectionUnit

	// Install is the [Install] section, always present (possibly zero).
	Install SectionInstall

	// Socket is the [Socket] section for socket units, nil otherwise.
	Socket *SectionSocket

	// Service is the [Service] section for service units, nil otherwise.
	Service *SectionService
}

// SectionUnit maps the recognized [Unit] keys.
type SectionUnit struct {
	Description           string   `mapstructure:"Description"`
	Documentation         []string `mapstructure:"Documentation"`
	Requires              []string `mapstructure:"Requires"`
	Requisite             []string `mapstructure:"Requisite"`
	Wants                 []string `mapstructure:"Wants"`
	Conflicts             []string `mapstructure:"Conflicts"`
	After                 []string `mapstructure:"After"`
	Before                []string `mapstructure:"Before"`
	OnFailure             []string `mapstructure:"OnFailure"`
	PartOf                []string `mapstructure:"PartOf"`
	PropagatesReloadTo    []string `mapstructure:"PropagatesReloadTo"`
	OnFailureJobMode      string   `mapstructure:"OnFailureJobMode" validate:"omitempty,oneof=fail replace replace-irreversibly isolate flush ignore-dependencies ignore-requirements trigger"`
	IgnoreOnIsolate       bool     `mapstructure:"IgnoreOnIsolate"`
	DefaultDependencies   bool     `mapstructure:"DefaultDependencies"`
	AllowIsolate          bool     `mapstructure:"AllowIsolate"`
	ConditionPathExists   string   `mapstructure:"ConditionPathExists"`
	ConditionFileNotEmpty string   `mapstructure:"ConditionFileNotEmpty"`
	ConditionNeedsUpdate  string   `mapstructure:"ConditionNeedsUpdate"`
	AssertPathExists      string   `mapstructure:"AssertPathExists"`
	StartLimitInterval    uint     `mapstructure:"StartLimitIntervalSec"`
	StartLimitBurst       uint     `mapstructure:"StartLimitBurst"`
}

// SectionInstall maps the recognized [Install] keys.
type SectionInstall struct {
	Alias           []string `mapstructure:"Alias"`
	WantedBy        []string `mapstructure:"WantedBy"`
	RequiredBy      []string `mapstructure:"RequiredBy"`
	Also            []string `mapstructure:"Also"`
	DefaultInstance string   `mapstructure:"DefaultInstance"`
}

// Commands is a list of command lines. A scalar value decodes into a
// single entry instead of being split on whitespace: a command line keeps
// its arguments.
type Commands []string

// SectionSocket maps the recognized [Socket] keys. The Listen* values are
// one listener each; the netlink form is "<family> <group>".
type SectionSocket struct {
	ListenStream           []string `mapstructure:"ListenStream"`
	ListenDatagram         []string `mapstructure:"ListenDatagram"`
	ListenSequentialPacket []string `mapstructure:"ListenSequentialPacket"`
	ListenNetlink          Commands `mapstructure:"ListenNetlink"`
	Accept                 bool     `mapstructure:"Accept"`
	Service                string   `mapstructure:"Service" validate:"omitempty,endswith=.service"`
	ExecStartPre           Commands `mapstructure:"ExecStartPre"`
	ExecStartPost          Commands `mapstructure:"ExecStartPost"`
	ExecStopPre            Commands `mapstructure:"ExecStopPre"`
	ExecStopPost           Commands `mapstructure:"ExecStopPost"`
	KillMode               string   `mapstructure:"KillMode" validate:"omitempty,oneof=control-group process mixed none"`
}

// SectionService maps the recognized [Service] keys of the skeletal
// service kind.
type SectionService struct {
	Type         string   `mapstructure:"Type" validate:"omitempty,oneof=simple forking notify oneshot"`
	ExecStart    string   `mapstructure:"ExecStart"`
	ExecStartPre Commands `mapstructure:"ExecStartPre"`
	ExecStop     string   `mapstructure:"ExecStop"`
	ExecReload   string   `mapstructure:"ExecReload"`
	Restart      string   `mapstructure:"Restart" validate:"omitempty,oneof=no on-failure always"`
	KillMode     string   `mapstructure:"KillMode" validate:"omitempty,oneof=control-group process mixed none"`
}

// Load resolves the given unit name against the search paths, parses the
// first matching file and validates it. A missing file returns the
// not-found code, a malformed file the parse code and an invalid record
// the validation code.
func Load(name string, paths []string) (*File, liberr.Error) {
	return load(name, paths)
}

// Parse reads one unit description from an explicit path.
func Parse(name, path string) (*File, liberr.Error) {
	return parse(name, path)
}
