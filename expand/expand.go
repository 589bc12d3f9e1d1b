/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package expand registers a concrete type under every combination of its
// interfaces and capability markers.
//
// Coercion lookups match the full requested target exactly, so a type bound to
// interface I with markers [A, B] is registered for I, I+A, I+B and I+A+B.
// Anything else fails at lookup time.
package expand

import (
	"fmt"
	"reflect"
	"slices"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/internal/defect"
	"dirpx.dev/capx/marker"
	"dirpx.dev/capx/registry"
)

// MaxCombinationMarkers caps the markers Combinations accepts regardless of
// Config.MaxMarkers: 2^16 combinations per interface.
const MaxCombinationMarkers = 16

// Combinations returns every subset of markers, 2^len(markers) in total.
// Starting from the empty combination, each marker in turn duplicates every
// combination found so far with the marker appended. More than
// MaxCombinationMarkers markers is a binding defect.
func Combinations(markers []apis.TypeKey) [][]apis.TypeKey {
	if len(markers) > MaxCombinationMarkers {
		defect.Panic(registry.Logger(), tooMany(len(markers), MaxCombinationMarkers))
	}
	combos := make([][]apis.TypeKey, 1, 1<<len(markers))
	combos[0] = []apis.TypeKey{}
	for _, m := range markers {
		n := len(combos)
		for i := 0; i < n; i++ {
			next := make([]apis.TypeKey, len(combos[i]), len(combos[i])+1)
			copy(next, combos[i])
			combos = append(combos, append(next, m))
		}
	}
	return combos
}

// Binding views *T as one interface.
type Binding[T any] struct {
	iface    apis.TypeKey
	defect   *apis.BindingError
	register func(reg apis.Registry, markers []apis.TypeKey)
}

// Interface returns the bound interface.
func (b Binding[T]) Interface() apis.TypeKey {
	return b.iface
}

// Implements binds T to interface I through *T. The binding is checked when it
// is registered: I must be an interface and *T must implement it.
func Implements[T, I any]() Binding[T] {
	b := Binding[T]{iface: apis.KeyOf[I]()}
	it, pt := reflect.TypeFor[I](), reflect.TypeFor[*T]()
	switch {
	case it.Kind() != reflect.Interface:
		b.defect = &apis.BindingError{Kind: apis.KindNotInterface, Actual: it.String()}
	case !pt.Implements(it):
		b.defect = &apis.BindingError{Kind: apis.KindNotImplemented, Actual: pt.String(), Requested: it.String()}
	default:
		conv := func(p *T) I { return any(p).(I) }
		b.register = func(reg apis.Registry, markers []apis.TypeKey) {
			registry.Register[T, I](reg, conv, conv, markers...)
		}
	}
	return b
}

// RegisterType registers T, its type metadata, its self coercion and a
// coercion to every interface of bindings combined with every subset of
// markers. It returns the registered targets, self target first.
//
// The metadata lists T, then markers, then interfaces by canonical name.
func RegisterType[T any](reg apis.Registry, markers []apis.TypeKey, bindings ...Binding[T]) []apis.Target {
	checkMarkers(reg, markers)
	for _, b := range bindings {
		if b.defect != nil {
			registry.Fail(reg, b.defect)
		}
	}

	registry.RegisterType[T](reg)

	self := apis.KeyOf[T]()
	implements := make([]string, 0, 1+len(markers)+len(bindings))
	implements = append(implements, self.Canonical())
	for _, m := range markers {
		implements = append(implements, m.Canonical())
	}
	for _, b := range bindings {
		implements = append(implements, b.iface.Canonical())
	}
	registry.RegisterTypeInfo[T](reg, self.Canonical(), implements)

	registry.RegisterSelf[T](reg)
	targets := []apis.Target{apis.TargetOf[T]()}

	combos := Combinations(markers)
	for _, b := range bindings {
		for _, combo := range combos {
			b.register(reg, combo)
			targets = append(targets, apis.NewTarget(b.iface, combo...))
		}
	}
	return targets
}

// RegisterInterface registers interface type I as a storage type, for values
// only reachable through an interface, and its identity coercion combined with
// every subset of markers.
func RegisterInterface[I any](reg apis.Registry, markers ...apis.TypeKey) []apis.Target {
	it := reflect.TypeFor[I]()
	if it.Kind() != reflect.Interface {
		registry.Fail(reg, &apis.BindingError{Kind: apis.KindNotInterface, Actual: it.String()})
	}
	checkMarkers(reg, markers)

	registry.RegisterType[I](reg)

	self := apis.KeyOf[I]()
	implements := []string{self.Canonical()}
	for _, m := range markers {
		implements = append(implements, m.Canonical())
	}
	registry.RegisterTypeInfo[I](reg, self.Canonical(), implements)

	registry.RegisterSelf[I](reg)
	targets := []apis.Target{apis.TargetOf[I]()}

	id := func(p *I) I { return *p }
	for _, combo := range Combinations(markers)[1:] {
		registry.Register[I, I](reg, id, id, combo...)
		targets = append(targets, apis.NewTarget(self, combo...))
	}
	return targets
}

func checkMarkers(reg apis.Registry, markers []apis.TypeKey) {
	if limit := min(reg.Config().MaxMarkers, MaxCombinationMarkers); len(markers) > limit {
		registry.Fail(reg, tooMany(len(markers), limit))
	}
	if i := slices.IndexFunc(markers, func(m apis.TypeKey) bool { return !marker.Is(m) }); i >= 0 {
		registry.Fail(reg, &apis.BindingError{
			Kind:   apis.KindNotInterface,
			Actual: markers[i].String(),
			Detail: "markers must be method-free interfaces",
		})
	}
}

func tooMany(n, limit int) *apis.BindingError {
	return &apis.BindingError{
		Kind:   apis.KindTooManyMarkers,
		Detail: fmt.Sprintf("%d markers, at most %d", n, limit),
	}
}
