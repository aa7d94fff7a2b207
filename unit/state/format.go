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

package state

// String returns the canonical lower-case form of the active state.
func (a Active) String() string {
	switch a {
	case UnitInactive:
		return "inactive"
	case UnitActivating:
		return "activating"
	case UnitActive:
		return "active"
	case UnitReloading:
		return "reloading"
	case UnitDeactivating:
		return "deactivating"
	case UnitFailed:
		return "failed"
	case UnitMaintenance:
		return "maintenance"
	}

	return "inactive"
}

// Int returns the active state as an int.
func (a Active) Int() int {
	return int(a)
}

// String returns the canonical lower-case form of the load state.
func (l Load) String() string {
	switch l {
	case UnitStub:
		return "stub"
	case UnitLoaded:
		return "loaded"
	case UnitNotFound:
		return "not-found"
	case UnitLoadError:
		return "error"
	case UnitMerged:
		return "merged"
	case UnitMasked:
		return "masked"
	}

	return "stub"
}

// Int returns the load state as an int.
func (l Load) Int() int {
	return int(l)
}
