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

// Package registry owns the name to unit mapping. It is the single mutable
// source of truth for unit identity: units are created on first reference,
// inter-unit edges are id-keyed sets applied here at load time, and every
// cross-unit lookup re-resolves through the registry instead of holding a
// direct reference.
package registry

import (
	"context"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libunt "github.com/sabouaram/sysinit/unit"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
)

// FuncSubNew builds the kind specific sub unit for a fresh unit frame.
type FuncSubNew func(u libunt.Unit) libunt.SubUnit

// Registry is the name to unit store.
type Registry interface {
	// RegisterKind installs the sub unit factory for a unit kind. Kinds
	// without a factory cannot be referenced.
	RegisterKind(k untknd.Kind, fct FuncSubNew)

	// SetSearchPaths replaces the unit file search path list.
	SetSearchPaths(paths ...string)

	// SearchPaths returns the unit file search path list.
	SearchPaths() []string

	// Has reports whether the unit name exists in the registry.
	Has(name string) bool

	// Get returns the unit for the given name, nil when absent.
	Get(name string) libunt.Unit

	// Ref returns the unit for the given name, creating an unloaded
	// frame on first reference.
	Ref(name string) (libunt.Unit, liberr.Error)

	// Load returns the unit for the given name, loading its description
	// and applying its dependency edges when not done yet.
	Load(name string) (libunt.Unit, liberr.Error)

	// Del drops a unit from the registry.
	Del(name string)

	// Keys returns all unit names, sorted.
	Keys() []string

	// Walk iterates all units until the function returns false.
	Walk(fct func(u libunt.Unit) bool)

	// DepsRelation resolves the dependency set of the given relation to
	// unit frames, creating unloaded frames for unknown names.
	DepsRelation(u libunt.Unit, rel untrel.Relation) []libunt.Unit

	// RegisterNotify installs a state change observer attached to every
	// present and future unit.
	RegisterNotify(fct libunt.FuncNotify)

	// Clear drops every unit.
	Clear()
}

// New returns an empty registry bound to the given context and logger.
func New(ctx context.Context, log liblog.FuncLog) Registry {
	return newRegistry(ctx, log)
}
