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

// Package kind enumerates the unit kinds known to the manager and the
// helpers to split a unit name of the form "<stem>.<kind>".
package kind

import (
	"fmt"
	"strings"
)

// Kind identifies the sub-kind behavior of a unit. The set is closed:
// dispatch over unit kinds is table driven, not open polymorphism.
type Kind uint8

const (
	// Service is a supervised process unit.
	Service Kind = iota

	// Socket is a listening socket unit triggering a service on traffic.
	Socket

	// Target is a synchronization point carrying only dependencies.
	Target

	// Mount is a mount point unit.
	Mount

	// Timer is a clock driven trigger unit.
	Timer
)

// Parse returns the Kind matching the given suffix string.
func Parse(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "service":
		return Service, nil
	case "socket":
		return Socket, nil
	case "target":
		return Target, nil
	case "mount":
		return Mount, nil
	case "timer":
		return Timer, nil
	}

	return Service, fmt.Errorf("invalid unit kind '%s'", s)
}

// SplitName splits a unit name into its stem and kind. The name must be
// of the form "<stem>.<kind>" with a non empty stem and a known kind.
func SplitName(name string) (string, Kind, error) {
	i := strings.LastIndex(name, ".")
	if i < 1 || i == len(name)-1 {
		return "", Service, fmt.Errorf("invalid unit name '%s'", name)
	}

	k, e := Parse(name[i+1:])
	if e != nil {
		return "", Service, e
	}

	return name[:i], k, nil
}

// Stem returns the stem of a unit name, without any template instance
// part: for "app@1f3c.service" the stem is "app".
func Stem(name string) string {
	s := name

	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i]
	}

	if i := strings.Index(s, "@"); i > 0 {
		s = s[:i]
	}

	return s
}

// Instance returns the instance part of a template unit name, or an
// empty string when the name is not an instantiated template.
func Instance(name string) string {
	s := name

	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i]
	}

	if i := strings.Index(s, "@"); i >= 0 && i < len(s)-1 {
		return s[i+1:]
	}

	return ""
}

// String returns the canonical lower-case form of the kind.
func (k Kind) String() string {
	switch k {
	case Service:
		return "service"
	case Socket:
		return "socket"
	case Target:
		return "target"
	case Mount:
		return "mount"
	case Timer:
		return "timer"
	}

	return "service"
}

// Int returns the kind as an int.
func (k Kind) Int() int {
	return int(k)
}
