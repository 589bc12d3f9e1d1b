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

package registry_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/registry"
)

type Speaker interface{ Speak() string }

// Loud is a capability marker.
type Loud interface{}

type dog struct {
	name  string
	barks int
}

func (d *dog) Speak() string {
	d.barks++
	return d.name + " woof"
}

func asSpeaker(d *dog) Speaker { return d }

func newDogRegistry(t *testing.T, opts ...registry.Option) apis.Registry {
	t.Helper()
	reg := registry.New(config.DefaultConfig(), opts...)
	registry.RegisterType[dog](reg)
	registry.RegisterSelf[dog](reg)
	registry.Register[dog, Speaker](reg, asSpeaker, asSpeaker)
	registry.Register[dog, Speaker](reg, asSpeaker, asSpeaker, apis.KeyOf[Loud]())
	return reg
}

// recoverDefect runs fn and returns the *apis.BindingError it panicked with.
func recoverDefect(t *testing.T, fn func()) (err *apis.BindingError) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a binding defect panic")
		}
		var ok bool
		if err, ok = r.(*apis.BindingError); !ok {
			t.Fatalf("panic value: got %T (%v), want *apis.BindingError", r, r)
		}
	}()
	fn()
	return nil
}

func TestRegisterType_NamesAllFlavors(t *testing.T) {
	reg := newDogRegistry(t)

	for _, k := range []apis.TypeKey{
		apis.KeyOf[dog](),
		apis.KeyOf[*cell.Exclusive[dog]](),
		apis.KeyOf[*cell.Shared[dog]](),
	} {
		name, ok := reg.Name(k)
		if !ok || name != "dirpx.dev/capx/registry_test.dog" {
			t.Fatalf("Name(%v): got (%q,%v), want (dirpx.dev/capx/registry_test.dog,true)", k, name, ok)
		}
	}

	// Re-registration is idempotent.
	before := reg.Count()
	registry.RegisterType[dog](reg)
	registry.RegisterSelf[dog](reg)
	if reg.Count() != before {
		t.Fatalf("Count after re-registration: got %d, want %d", reg.Count(), before)
	}
	// self + Speaker + Speaker+Loud, for both flavors.
	if before != 6 {
		t.Fatalf("Count: got %d, want 6", before)
	}
}

func TestCoerce_MutationVisibility(t *testing.T) {
	reg := newDogRegistry(t)
	c := cell.Wrap(dog{name: "rex"})
	defer c.Release()

	w := registry.CoerceMut[dog](reg, c)
	w.Ptr().name = "max"
	w.Release()

	r := registry.Coerce[dog](reg, c)
	defer r.Release()
	if got := r.Get().name; got != "max" {
		t.Fatalf("name after mutation: got %q, want %q", got, "max")
	}
}

func TestCoerce_InterfaceViewSharesStorage(t *testing.T) {
	reg := newDogRegistry(t)
	c := cell.WrapShared(dog{name: "rex"})
	defer c.Release()

	for _, markers := range [][]apis.TypeKey{nil, {apis.KeyOf[Loud]()}} {
		h := registry.CoerceMut[Speaker](reg, c, markers...)
		if got := h.Get().Speak(); got != "rex woof" {
			t.Fatalf("Speak: got %q, want %q", got, "rex woof")
		}
		h.Release()
	}

	r := registry.Coerce[dog](reg, c)
	defer r.Release()
	if got := r.Get().barks; got != 2 {
		t.Fatalf("barks: got %d, want 2", got)
	}
}

func TestCoerce_MissingCoercionPanics(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	reg := newDogRegistry(t, registry.WithLogger(zap.New(core)))
	c := cell.Wrap(dog{name: "rex"})
	defer c.Release()

	type Other interface{ Other() }
	err := recoverDefect(t, func() {
		registry.Coerce[Speaker](reg, c, apis.KeyOf[Other]())
	})

	if !errors.Is(err, apis.Defect(apis.KindNoCoercion)) {
		t.Fatalf("kind: got %q, want %q", err.Kind, apis.KindNoCoercion)
	}
	if !strings.HasSuffix(err.Actual, ".dog") {
		t.Fatalf("Actual: got %q, want the stored type name", err.Actual)
	}
	if !strings.Contains(err.Requested, "Speaker") || !strings.Contains(err.Requested, "Other") {
		t.Fatalf("Requested: got %q, want Speaker+Other", err.Requested)
	}
	if logs.FilterMessage("binding defect").Len() != 1 {
		t.Fatalf("binding defect not logged: %v", logs.All())
	}
	if c.Refs() != 1 {
		t.Fatalf("failed coercion leaked a reference: refs=%d", c.Refs())
	}
}

func TestCoerce_UnregisteredTypeNamesGoType(t *testing.T) {
	reg := registry.New(config.DefaultConfig())
	c := cell.Wrap(42)
	defer c.Release()

	err := recoverDefect(t, func() { registry.Coerce[int](reg, c) })
	if !strings.Contains(err.Actual, "<unregistered type") || !strings.Contains(err.Actual, "int") {
		t.Fatalf("Actual: got %q", err.Actual)
	}
}

func TestHandle_HoldsCellReference(t *testing.T) {
	reg := newDogRegistry(t)
	c := cell.Wrap(dog{name: "rex"})

	h := registry.Coerce[Speaker](reg, c)
	if c.Refs() != 2 {
		t.Fatalf("Refs while handle held: got %d, want 2", c.Refs())
	}
	c.Release()
	if c.Dropped() {
		t.Fatalf("cell dropped while a handle is held")
	}
	h.Release()
	h.Release()
	if !c.Dropped() {
		t.Fatalf("cell should be dropped after the last handle is released")
	}
}

func TestCoerceMut_SerializesWriters(t *testing.T) {
	reg := newDogRegistry(t)
	c := cell.WrapShared(dog{name: "rex"})
	defer c.Release()

	first := registry.CoerceMut[dog](reg, c)

	acquired := make(chan struct{})
	go func() {
		second := registry.CoerceMut[dog](reg, c)
		second.Ptr().barks++
		second.Release()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second writer acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	first.Ptr().barks = 10
	first.Release()
	<-acquired

	r := registry.Coerce[dog](reg, c)
	defer r.Release()
	if got := r.Get().barks; got != 11 {
		t.Fatalf("barks: got %d, want 11", got)
	}
}

func TestCoerce_SharedReadersDoNotBlock(t *testing.T) {
	reg := newDogRegistry(t)
	c := cell.WrapShared(dog{name: "rex"})
	defer c.Release()

	a := registry.Coerce[dog](reg, c)
	done := make(chan string)
	go func() {
		b := registry.Coerce[dog](reg, c)
		defer b.Release()
		done <- b.Get().name
	}()

	select {
	case got := <-done:
		if got != "rex" {
			t.Fatalf("name: got %q, want rex", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("second reader blocked on a shared cell")
	}
	a.Release()
}

func TestTypeInfoOf(t *testing.T) {
	reg := newDogRegistry(t)

	err := recoverDefect(t, func() { registry.TypeInfoOf[dog](reg) })
	if err.Kind != apis.KindMissingTypeInfo {
		t.Fatalf("kind: got %q, want %q", err.Kind, apis.KindMissingTypeInfo)
	}

	impl := []string{"dog", "Speaker"}
	registry.RegisterTypeInfo[dog](reg, "zoo.Dog", impl)
	impl[0] = "mutated"
	registry.RegisterTypeInfo[dog](reg, "ignored", nil)

	info := registry.TypeInfoOf[dog](reg)
	if info.Name != "zoo.Dog" || len(info.Implements) != 2 || info.Implements[0] != "dog" {
		t.Fatalf("TypeInfoOf: got %+v", info)
	}
}

func TestTargets_Sorted(t *testing.T) {
	reg := newDogRegistry(t)

	targets := reg.Targets(apis.KeyOf[*cell.Exclusive[dog]]())
	if len(targets) != 3 {
		t.Fatalf("Targets: got %d, want 3", len(targets))
	}
	for i := 1; i < len(targets); i++ {
		if targets[i-1].String() > targets[i].String() {
			t.Fatalf("Targets not sorted: %v", targets)
		}
	}
}

func TestSnapshotImportReset(t *testing.T) {
	reg := newDogRegistry(t)
	registry.RegisterTypeInfo[dog](reg, "zoo.Dog", nil)

	snap := reg.Snapshot()
	reg.Reset()
	if reg.Count() != 0 {
		t.Fatalf("Count after Reset: got %d, want 0", reg.Count())
	}
	if len(snap.Coercions) != 6 || len(snap.Names) != 3 || len(snap.Infos) != 1 {
		t.Fatalf("snapshot changed after Reset: %d/%d/%d", len(snap.Coercions), len(snap.Names), len(snap.Infos))
	}

	next := registry.New(config.DefaultConfig())
	next.Import(snap)
	next.Import(snap)
	if next.Count() != 6 {
		t.Fatalf("Count after Import: got %d, want 6", next.Count())
	}

	c := cell.Wrap(dog{name: "rex"})
	defer c.Release()
	h := registry.Coerce[Speaker](next, c, apis.KeyOf[Loud]())
	h.Release()
}

func TestRegister_Errors(t *testing.T) {
	reg := registry.New(config.DefaultConfig())
	noop := func(any) (any, func()) { return nil, nil }

	if err := reg.RegisterName(apis.TypeKey{}, "x"); err != registry.ErrZeroKey {
		t.Fatalf("zero key: want ErrZeroKey, got %v", err)
	}
	if err := reg.RegisterName(apis.KeyOf[dog](), ""); err != registry.ErrEmptyName {
		t.Fatalf("empty name: want ErrEmptyName, got %v", err)
	}
	if err := reg.RegisterCoercion(apis.KeyOf[dog](), apis.TargetOf[Speaker](), apis.Coercion{Read: noop}); err != registry.ErrIncompleteCoercion {
		t.Fatalf("incomplete coercion: want ErrIncompleteCoercion, got %v", err)
	}
	if err := reg.RegisterTypeInfo(apis.TypeKey{}, apis.TypeInfo{Name: "x"}); err != registry.ErrZeroKey {
		t.Fatalf("type info zero key: want ErrZeroKey, got %v", err)
	}
}

// Compile-time check.
var _ apis.Registry = registry.New(config.DefaultConfig())
