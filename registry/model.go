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

package registry

import (
	"context"
	"sort"
	"sync"

	libctx "github.com/nabbar/golib/context"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libunt "github.com/sabouaram/sysinit/unit"
	untknd "github.com/sabouaram/sysinit/unit/kind"
	untrel "github.com/sabouaram/sysinit/unit/relation"
	untsts "github.com/sabouaram/sysinit/unit/state"
)

type model struct {
	m sync.RWMutex

	log liblog.FuncLog
	unt libctx.Config[string]
	fct map[untknd.Kind]FuncSubNew
	pth []string
	obs []libunt.FuncNotify
}

func newRegistry(ctx context.Context, log liblog.FuncLog) Registry {
	return &model{
		log: log,
		unt: libctx.New[string](ctx),
		fct: make(map[untknd.Kind]FuncSubNew),
		pth: make([]string, 0),
		obs: make([]libunt.FuncNotify, 0),
	}
}

func (o *model) RegisterKind(k untknd.Kind, fct FuncSubNew) {
	if fct == nil {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()
	o.fct[k] = fct
}

func (o *model) SetSearchPaths(paths ...string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.pth = paths
}

func (o *model) SearchPaths() []string {
	o.m.RLock()
	defer o.m.RUnlock()

	var res = make([]string, len(o.pth))
	copy(res, o.pth)

	return res
}

func (o *model) Has(name string) bool {
	return o.Get(name) != nil
}

func (o *model) Get(name string) libunt.Unit {
	if i, l := o.unt.Load(name); !l {
		return nil
	} else if u, k := i.(libunt.Unit); !k {
		return nil
	} else {
		return u
	}
}

func (o *model) Ref(name string) (libunt.Unit, liberr.Error) {
	if u := o.Get(name); u != nil {
		return u, nil
	}

	u, err := libunt.New(name, o.log)
	if err != nil {
		return nil, err
	}

	o.m.RLock()
	fct := o.fct[u.Kind()]
	obs := make([]libunt.FuncNotify, len(o.obs))
	copy(obs, o.obs)
	o.m.RUnlock()

	if fct == nil {
		return nil, ErrorKindUnsupported.Errorf(u.Kind().String())
	}

	u.AttachSub(fct(u))

	for _, f := range obs {
		u.RegisterNotify(f)
	}

	o.unt.Store(name, u)
	return u, nil
}

func (o *model) Load(name string) (libunt.Unit, liberr.Error) {
	u, err := o.Ref(name)
	if err != nil {
		return nil, err
	}

	if u.LoadState() == untsts.UnitLoaded {
		return u, nil
	}

	if err = u.Load(o.SearchPaths()); err != nil {
		return u, err
	}

	o.applyDeps(u)
	return u, nil
}

func (o *model) Del(name string) {
	o.unt.Delete(name)
}

func (o *model) Keys() []string {
	var res = make([]string, 0)

	o.unt.Walk(func(key string, val interface{}) bool {
		if _, k := val.(libunt.Unit); k {
			res = append(res, key)
		}
		return true
	})

	sort.Strings(res)
	return res
}

func (o *model) Walk(fct func(u libunt.Unit) bool) {
	if fct == nil {
		return
	}

	for _, k := range o.Keys() {
		if u := o.Get(k); u != nil {
			if !fct(u) {
				return
			}
		}
	}
}

func (o *model) DepsRelation(u libunt.Unit, rel untrel.Relation) []libunt.Unit {
	if u == nil {
		return nil
	}

	var res = make([]libunt.Unit, 0)

	for _, n := range u.DepSet(rel) {
		if v, e := o.Ref(n); e == nil && v != nil {
			res = append(res, v)
		}
	}

	return res
}

func (o *model) RegisterNotify(fct libunt.FuncNotify) {
	if fct == nil {
		return
	}

	o.m.Lock()
	o.obs = append(o.obs, fct)
	o.m.Unlock()

	o.Walk(func(u libunt.Unit) bool {
		u.RegisterNotify(fct)
		return true
	})
}

func (o *model) Clear() {
	o.unt.Clean()
}

// applyDeps translates the configuration relations of a freshly loaded
// unit into expansion edges, including the inverse edges recorded on the
// pointed units and the implicit trigger edges of socket units.
func (o *model) applyDeps(u libunt.Unit) {
	c := u.Config()
	if c == nil {
		return
	}

	o.applyRelation(u, untrel.Requires, c.Unit.Requires)
	o.applyRelation(u, untrel.Requisite, c.Unit.Requisite)
	o.applyRelation(u, untrel.Wants, c.Unit.Wants)
	o.applyRelation(u, untrel.Conflicts, c.Unit.Conflicts)
	o.applyRelation(u, untrel.After, c.Unit.After)
	o.applyRelation(u, untrel.Before, c.Unit.Before)
	o.applyRelation(u, untrel.OnFailure, c.Unit.OnFailure)
	o.applyRelation(u, untrel.PartOf, c.Unit.PartOf)
	o.applyRelation(u, untrel.PropagatesReloadTo, c.Unit.PropagatesReloadTo)

	if u.Kind() == untknd.Socket && c.Socket != nil {
		if t := c.TriggerTarget(); t != "" {
			o.applyRelation(u, untrel.Triggers, []string{t})
			o.applyRelation(u, untrel.Before, []string{t})
		}
	}
}

func (o *model) applyRelation(u libunt.Unit, rel untrel.Relation, names []string) {
	if len(names) < 1 {
		return
	}

	for _, edge := range rel.Expand() {
		if !edge.Inverse {
			u.DepAdd(edge.Rel, names...)
			continue
		}

		for _, n := range names {
			if v, e := o.Ref(n); e == nil && v != nil {
				v.DepAdd(edge.Rel, u.ID())
			}
		}
	}
}
