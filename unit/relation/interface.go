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

// Package relation enumerates the dependency relations between units.
//
// Configuration relations (Requires, Wants, ...) come straight from unit
// files. Expansion relations (PullInStart, PropagateStop, ...) are computed
// at load time from the configuration relations and are the only ones the
// job transaction engine walks. Both live in the same enum so a unit's
// dependency sets stay a single relation-keyed table.
package relation

import (
	"fmt"
	"strings"
)

// Relation is one edge flavor in the unit dependency graph.
type Relation uint8

const (
	// Requires pulls the named unit in on start; its start failure is fatal.
	Requires Relation = iota

	// Requisite requires the named unit to already be active on start.
	Requisite

	// Wants pulls the named unit in on start; failures are ignored.
	Wants

	// Conflicts stops the named unit when this one starts.
	Conflicts

	// After orders this unit after the named one inside a transaction.
	After

	// Before orders this unit before the named one inside a transaction.
	Before

	// OnFailure starts the named unit when this one enters failed.
	OnFailure

	// Triggers marks the unit this one activates on demand.
	Triggers

	// TriggeredBy is the inverse of Triggers.
	TriggeredBy

	// PartOf propagates stop and restart from the named unit to this one.
	PartOf

	// PropagatesReloadTo forwards reload requests to the named unit.
	PropagatesReloadTo

	// PullInStart is the computed start expansion edge (from Requires).
	PullInStart

	// PullInStartIgnored is the tolerant start expansion edge (from Wants).
	PullInStartIgnored

	// PullInVerify is the verify expansion edge (from Requisite).
	PullInVerify

	// PullInStop is the stop expansion edge (from Conflicts).
	PullInStop

	// PullInStopIgnored is the tolerant stop expansion edge.
	PullInStopIgnored

	// PropagateStop forwards a stop job to the named unit.
	PropagateStop

	// PropagateRestart forwards a restart as try-restart to the named unit.
	PropagateRestart

	// PropagateStartFailure removes dependent start jobs on start failure.
	PropagateStartFailure

	// PropagateStopFailure removes dependent start jobs on stop failure.
	PropagateStopFailure
)

// Parse returns the Relation matching the given configuration key.
func Parse(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "requires":
		return Requires, nil
	case "requisite":
		return Requisite, nil
	case "wants":
		return Wants, nil
	case "conflicts":
		return Conflicts, nil
	case "after":
		return After, nil
	case "before":
		return Before, nil
	case "onfailure":
		return OnFailure, nil
	case "triggers":
		return Triggers, nil
	case "triggeredby":
		return TriggeredBy, nil
	case "partof":
		return PartOf, nil
	case "propagatesreloadto":
		return PropagatesReloadTo, nil
	}

	return Requires, fmt.Errorf("invalid unit relation '%s'", s)
}

// String returns the canonical form of the relation.
func (r Relation) String() string {
	switch r {
	case Requires:
		return "Requires"
	case Requisite:
		return "Requisite"
	case Wants:
		return "Wants"
	case Conflicts:
		return "Conflicts"
	case After:
		return "After"
	case Before:
		return "Before"
	case OnFailure:
		return "OnFailure"
	case Triggers:
		return "Triggers"
	case TriggeredBy:
		return "TriggeredBy"
	case PartOf:
		return "PartOf"
	case PropagatesReloadTo:
		return "PropagatesReloadTo"
	case PullInStart:
		return "PullInStart"
	case PullInStartIgnored:
		return "PullInStartIgnored"
	case PullInVerify:
		return "PullInVerify"
	case PullInStop:
		return "PullInStop"
	case PullInStopIgnored:
		return "PullInStopIgnored"
	case PropagateStop:
		return "PropagateStop"
	case PropagateRestart:
		return "PropagateRestart"
	case PropagateStartFailure:
		return "PropagateStartFailure"
	case PropagateStopFailure:
		return "PropagateStopFailure"
	}

	return "Requires"
}

// Computed lists, for a configuration relation on unit "u" pointing to
// unit "o", the expansion edges implied by it. Each implied edge carries
// the relation to record and whether it is recorded on the pointed unit
// ("o" side) instead of on "u" itself.
type Computed struct {
	Rel     Relation
	Inverse bool
}

// Expand returns the expansion edges implied by a configuration relation.
// Relations that are already expansion edges return themselves.
func (r Relation) Expand() []Computed {
	switch r {
	case Requires:
		return []Computed{
			{Rel: PullInStart},
			{Rel: PropagateStartFailure, Inverse: true},
			{Rel: PropagateStopFailure, Inverse: true},
		}
	case Requisite:
		return []Computed{{Rel: PullInVerify}}
	case Wants:
		return []Computed{{Rel: PullInStartIgnored}}
	case Conflicts:
		return []Computed{
			{Rel: PullInStop},
			{Rel: PullInStopIgnored, Inverse: true},
		}
	case PartOf:
		return []Computed{
			{Rel: PropagateStop, Inverse: true},
			{Rel: PropagateRestart, Inverse: true},
		}
	case Triggers:
		return []Computed{
			{Rel: Triggers},
			{Rel: TriggeredBy, Inverse: true},
		}
	case After, Before, OnFailure, PropagatesReloadTo:
		return []Computed{{Rel: r}}
	}

	return []Computed{{Rel: r}}
}
