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

package state_test

import (
	"encoding/json"
	"testing"

	untsts "github.com/sabouaram/sysinit/unit/state"
)

func TestActiveRoundTrip(t *testing.T) {
	all := []untsts.Active{
		untsts.UnitInactive, untsts.UnitActivating, untsts.UnitActive,
		untsts.UnitReloading, untsts.UnitDeactivating, untsts.UnitFailed,
		untsts.UnitMaintenance,
	}

	for _, a := range all {
		v, e := untsts.ParseActive(a.String())
		if e != nil || v != a {
			t.Errorf("round trip %s: %v / %v", a.String(), v, e)
		}
	}

	if _, e := untsts.ParseActive("bogus"); e == nil {
		t.Error("expected error for unknown state")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	all := []untsts.Load{
		untsts.UnitStub, untsts.UnitLoaded, untsts.UnitNotFound,
		untsts.UnitLoadError, untsts.UnitMerged, untsts.UnitMasked,
	}

	for _, l := range all {
		v, e := untsts.ParseLoad(l.String())
		if e != nil || v != l {
			t.Errorf("round trip %s: %v / %v", l.String(), v, e)
		}
	}
}

func TestActiveJSON(t *testing.T) {
	b, e := json.Marshal(untsts.UnitDeactivating)
	if e != nil {
		t.Fatalf("marshal: %v", e)
	}

	if string(b) != `"deactivating"` {
		t.Fatalf("json = %s", b)
	}

	var a untsts.Active
	if e = json.Unmarshal(b, &a); e != nil || a != untsts.UnitDeactivating {
		t.Fatalf("unmarshal: %v / %v", a, e)
	}
}

func TestActivePredicates(t *testing.T) {
	if !untsts.UnitReloading.IsActiveOrReloading() {
		t.Error("reloading is functionally up")
	}

	if !untsts.UnitActivating.IsActiveOrActivating() {
		t.Error("activating is on the way up")
	}

	if untsts.UnitActivating.IsActiveOrReloading() {
		t.Error("activating is not up yet")
	}

	if !untsts.UnitFailed.IsInactiveOrFailed() {
		t.Error("failed is down")
	}

	if !untsts.UnitDeactivating.IsDeactivating() {
		t.Error("deactivating predicate broken")
	}
}
