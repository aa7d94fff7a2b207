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

// Package state defines the lifecycle vocabulary shared by every unit kind:
// the load state of a unit description and the active state of its runtime.
//
// Both enums expose the usual parse / format / marshal surface so they can
// travel through the control protocol, the reliability journal and the unit
// dump output without ad-hoc conversion.
package state

import (
	"fmt"
	"strings"
)

// Active is the runtime state of a unit as seen by the manager and by
// observers registered on the unit.
type Active uint8

const (
	// UnitInactive means the unit is loaded but nothing is running for it.
	UnitInactive Active = iota

	// UnitActivating means the unit is between a start request and the
	// fully active state (start commands or socket binding in flight).
	UnitActivating

	// UnitActive means the unit reached its nominal running state.
	UnitActive

	// UnitReloading means the unit is re-reading its configuration while
	// staying functionally active.
	UnitReloading

	// UnitDeactivating means stop commands or final signals are in flight.
	UnitDeactivating

	// UnitFailed means the last activation or deactivation ended with an
	// unrecoverable result; a fresh transaction is needed to restart.
	UnitFailed

	// UnitMaintenance means the unit is being cleaned; a start is refused
	// as busy until the cleaning ends.
	UnitMaintenance
)

// Load is the state of the unit description itself.
type Load uint8

const (
	// UnitStub means the unit exists by name only; no file has been read.
	UnitStub Load = iota

	// UnitLoaded means the configuration was parsed successfully.
	UnitLoaded

	// UnitNotFound means no unit file matched the unit name.
	UnitNotFound

	// UnitLoadError means the unit file exists but could not be parsed.
	UnitLoadError

	// UnitMerged means the unit is an alias merged into another entry.
	UnitMerged

	// UnitMasked means the unit is administratively masked.
	UnitMasked
)

// ParseActive returns the Active value matching the given string, or an
// error if the string does not name a known active state.
func ParseActive(s string) (Active, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inactive":
		return UnitInactive, nil
	case "activating":
		return UnitActivating, nil
	case "active":
		return UnitActive, nil
	case "reloading":
		return UnitReloading, nil
	case "deactivating":
		return UnitDeactivating, nil
	case "failed":
		return UnitFailed, nil
	case "maintenance":
		return UnitMaintenance, nil
	}

	return UnitInactive, fmt.Errorf("invalid active state '%s'", s)
}

// ParseLoad returns the Load value matching the given string, or an error
// if the string does not name a known load state.
func ParseLoad(s string) (Load, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stub":
		return UnitStub, nil
	case "loaded":
		return UnitLoaded, nil
	case "not-found":
		return UnitNotFound, nil
	case "error":
		return UnitLoadError, nil
	case "merged":
		return UnitMerged, nil
	case "masked":
		return UnitMasked, nil
	}

	return UnitStub, fmt.Errorf("invalid load state '%s'", s)
}

// IsActiveOrReloading reports whether the unit is functionally up.
func (a Active) IsActiveOrReloading() bool {
	return a == UnitActive || a == UnitReloading
}

// IsActiveOrActivating reports whether the unit is up or on the way up.
func (a Active) IsActiveOrActivating() bool {
	return a == UnitActive || a == UnitReloading || a == UnitActivating
}

// IsInactiveOrFailed reports whether the unit is down, for any reason.
func (a Active) IsInactiveOrFailed() bool {
	return a == UnitInactive || a == UnitFailed
}

// IsDeactivating reports whether the unit is on the way down.
func (a Active) IsDeactivating() bool {
	return a == UnitDeactivating
}
