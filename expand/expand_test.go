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

package expand_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/expand"
	"dirpx.dev/capx/marker"
	"dirpx.dev/capx/registry"
)

type Proxy interface{ Name() string }
type Other interface{ Other() }
type Extra interface{}

type sheep struct{ name string }

func (s *sheep) Name() string { return s.name }

var (
	syncKey = marker.Of[marker.Sync]()
	sendKey = marker.Of[marker.Send]()
)

func mustPanic(t *testing.T, kind apis.Kind, fn func()) *apis.BindingError {
	t.Helper()
	var got *apis.BindingError
	func() {
		defer func() {
			r := recover()
			err, ok := r.(*apis.BindingError)
			if !ok {
				t.Fatalf("panic: got %T (%v), want *apis.BindingError", r, r)
			}
			got = err
		}()
		fn()
	}()
	if !errors.Is(got, apis.Defect(kind)) {
		t.Fatalf("kind: got %q, want %q", got.Kind, kind)
	}
	return got
}

func TestCombinations_Doubling(t *testing.T) {
	a, b, c := apis.KeyOf[marker.Sync](), apis.KeyOf[marker.Send](), apis.KeyOf[Extra]()
	got := expand.Combinations([]apis.TypeKey{a, b, c})
	want := [][]apis.TypeKey{
		{}, {a}, {b}, {a, b}, {c}, {a, c}, {b, c}, {a, b, c},
	}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("combo %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if got := expand.Combinations(nil); len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("Combinations(nil): got %v, want [[]]", got)
	}
}

func TestCombinations_TooManyMarkers(t *testing.T) {
	markers := make([]apis.TypeKey, 64)
	for i := range markers {
		markers[i] = syncKey
	}
	mustPanic(t, apis.KindTooManyMarkers, func() { expand.Combinations(markers) })
}

func TestRegisterType_MarkerCapBeyondConfig(t *testing.T) {
	reg := registry.New(config.NewConfig(config.WithMaxMarkers(100)))
	markers := make([]apis.TypeKey, expand.MaxCombinationMarkers+1)
	for i := range markers {
		markers[i] = syncKey
	}
	mustPanic(t, apis.KindTooManyMarkers, func() {
		expand.RegisterType[sheep](reg, markers, expand.Implements[sheep, Proxy]())
	})
	if reg.Count() != 0 {
		t.Fatalf("Count after rejected registration: got %d, want 0", reg.Count())
	}
}

func TestRegisterType_AllMarkerSubsetsSucceed(t *testing.T) {
	reg := registry.New(config.DefaultConfig())
	targets := expand.RegisterType[sheep](reg, []apis.TypeKey{syncKey, sendKey}, expand.Implements[sheep, Proxy]())
	if len(targets) != 5 {
		t.Fatalf("targets: got %d, want 5 (self + 2^2)", len(targets))
	}

	c := cell.Wrap(sheep{name: "dolly"})
	defer c.Release()

	for _, combo := range [][]apis.TypeKey{
		nil,
		{syncKey},
		{sendKey},
		{syncKey, sendKey},
		{sendKey, syncKey},
	} {
		h := registry.Coerce[Proxy](reg, c, combo...)
		if got := h.Get().Name(); got != "dolly" {
			t.Fatalf("Name via %v: got %q, want dolly", combo, got)
		}
		h.Release()
	}

	err := mustPanic(t, apis.KindNoCoercion, func() {
		registry.Coerce[Proxy](reg, c, apis.KeyOf[Other]())
	})
	if !strings.Contains(err.Actual, "sheep") || !strings.Contains(err.Requested, "Other") {
		t.Fatalf("diagnostic: got %v", err)
	}
	mustPanic(t, apis.KindNoCoercion, func() { registry.Coerce[Other](reg, c) })
}

func TestRegisterType_OrderIndependent(t *testing.T) {
	ab := registry.New(config.DefaultConfig())
	ba := registry.New(config.DefaultConfig())
	expand.RegisterType[sheep](ab, []apis.TypeKey{syncKey, sendKey}, expand.Implements[sheep, Proxy]())
	expand.RegisterType[sheep](ba, []apis.TypeKey{sendKey, syncKey}, expand.Implements[sheep, Proxy]())

	storage := apis.KeyOf[*cell.Shared[sheep]]()
	if got, want := ba.Targets(storage), ab.Targets(storage); !slices.Equal(got, want) {
		t.Fatalf("targets differ: %v vs %v", got, want)
	}
}

func TestRegisterType_TypeInfo(t *testing.T) {
	reg := registry.New(config.DefaultConfig())
	expand.RegisterType[sheep](reg, []apis.TypeKey{syncKey}, expand.Implements[sheep, Proxy]())

	info := registry.TypeInfoOf[sheep](reg)
	want := []string{
		"dirpx.dev/capx/expand_test.sheep",
		"dirpx.dev/capx/marker.Sync",
		"dirpx.dev/capx/expand_test.Proxy",
	}
	if info.Name != want[0] || !slices.Equal(info.Implements, want) {
		t.Fatalf("TypeInfo: got %+v, want implements %v", info, want)
	}
}

func TestRegisterType_Defects(t *testing.T) {
	reg := registry.New(config.NewConfig(config.WithMaxMarkers(1)))

	mustPanic(t, apis.KindTooManyMarkers, func() {
		expand.RegisterType[sheep](reg, []apis.TypeKey{syncKey, sendKey})
	})
	mustPanic(t, apis.KindNotImplemented, func() {
		expand.RegisterType[sheep](reg, nil, expand.Implements[sheep, Other]())
	})
	mustPanic(t, apis.KindNotInterface, func() {
		expand.RegisterType[sheep](reg, nil, expand.Implements[sheep, sheep]())
	})
	mustPanic(t, apis.KindNotInterface, func() {
		expand.RegisterType[sheep](reg, []apis.TypeKey{apis.KeyOf[Proxy]()})
	})
	if reg.Count() != 0 {
		t.Fatalf("defective registrations must not register anything: Count=%d", reg.Count())
	}
}

func TestRegisterInterface_BoxedValues(t *testing.T) {
	reg := registry.New(config.DefaultConfig())
	targets := expand.RegisterInterface[Proxy](reg, syncKey)
	if len(targets) != 2 {
		t.Fatalf("targets: got %d, want 2", len(targets))
	}

	c := cell.WrapShared[Proxy](&sheep{name: "boxed"})
	defer c.Release()
	h := registry.Coerce[Proxy](reg, c, syncKey)
	defer h.Release()
	if got := h.Get().Name(); got != "boxed" {
		t.Fatalf("Name: got %q, want boxed", got)
	}

	mustPanic(t, apis.KindNotInterface, func() { expand.RegisterInterface[sheep](reg) })
}
