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

package registry

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/internal/defect"
	"dirpx.dev/capx/internal/metrics"
	"dirpx.dev/capx/internal/owning"
)

// RegisterType records the display name of T for T and both of its storage
// wrappers. It is idempotent.
func RegisterType[T any](reg apis.Registry) {
	name := reg.DisplayName(reflect.TypeFor[T]())
	for _, k := range []apis.TypeKey{
		apis.KeyOf[T](),
		apis.KeyOf[*cell.Exclusive[T]](),
		apis.KeyOf[*cell.Shared[T]](),
	} {
		must(reg.RegisterName(k, name))
	}
}

// RegisterTypeInfo records introspection metadata for T. It is idempotent.
func RegisterTypeInfo[T any](reg apis.Registry, name string, implements []string) {
	must(reg.RegisterTypeInfo(apis.KeyOf[T](), apis.TypeInfo{Name: name, Implements: implements}))
}

// Register records a coercion from In, stored in either locking flavor, to the
// target Out combined with markers. read and write derive the view from the
// locked value; the view shares the value's address when Out holds *In.
func Register[In, Out any](reg apis.Registry, read, write func(*In) Out, markers ...apis.TypeKey) {
	c := apis.Coercion{
		Read: func(payload any) (any, func()) {
			p, unlock, ok := cell.AcquireRead[In](payload)
			if !ok {
				return nil, nil
			}
			out := read(p)
			return &out, unlock
		},
		Write: func(payload any) (any, func()) {
			p, unlock, ok := cell.AcquireWrite[In](payload)
			if !ok {
				return nil, nil
			}
			out := write(p)
			return &out, unlock
		},
	}
	registerBoth[In](reg, apis.TargetOf[Out](markers...), c)
}

// RegisterSelf records the identity coercion of T. The view of a self
// coercion is the stored value itself, so writes through it are visible to
// every later handle.
func RegisterSelf[T any](reg apis.Registry) {
	c := apis.Coercion{
		Read: func(payload any) (any, func()) {
			p, unlock, ok := cell.AcquireRead[T](payload)
			if !ok {
				return nil, nil
			}
			return p, unlock
		},
		Write: func(payload any) (any, func()) {
			p, unlock, ok := cell.AcquireWrite[T](payload)
			if !ok {
				return nil, nil
			}
			return p, unlock
		},
	}
	registerBoth[T](reg, apis.TargetOf[T](), c)
}

func registerBoth[In any](reg apis.Registry, target apis.Target, c apis.Coercion) {
	must(reg.RegisterCoercion(apis.KeyOf[*cell.Exclusive[In]](), target, c))
	must(reg.RegisterCoercion(apis.KeyOf[*cell.Shared[In]](), target, c))
}

// Coerce views the payload of c as Out combined with markers, holding the
// payload's read lock until the handle is released. A missing coercion is a
// binding defect and panics with a *apis.BindingError.
func Coerce[Out any](reg apis.Registry, c *cell.Cell, markers ...apis.TypeKey) Handle[Out] {
	return Handle[Out]{ref: acquire[Out](reg, c, false, markers)}
}

// CoerceMut is Coerce with the payload's write lock.
func CoerceMut[Out any](reg apis.Registry, c *cell.Cell, markers ...apis.TypeKey) HandleMut[Out] {
	return HandleMut[Out]{ref: acquire[Out](reg, c, true, markers)}
}

func acquire[Out any](reg apis.Registry, c *cell.Cell, write bool, markers []apis.TypeKey) owning.Ref[Out] {
	if c == nil {
		Fail(reg, &apis.BindingError{
			Kind:      apis.KindCellDropped,
			Requested: apis.TargetOf[Out](markers...).String(),
			Detail:    "nil cell",
		})
	}
	payload := c.Payload()
	storage := c.StorageKey()
	target := apis.TargetOf[Out](markers...)

	// The registry lock is released here, before the payload lock is taken.
	co, ok := reg.Coercion(storage, target)
	if !ok {
		Fail(reg, &apis.BindingError{
			Kind:      apis.KindNoCoercion,
			Actual:    StoredName(reg, storage),
			Requested: target.String(),
		})
	}

	fn, mode := co.Read, "read"
	if write {
		fn, mode = co.Write, "write"
	}
	view, unlock := fn(payload)
	if unlock == nil {
		Fail(reg, &apis.BindingError{
			Kind:      apis.KindUnsupportedContainer,
			Actual:    StoredName(reg, storage),
			Requested: target.String(),
		})
	}
	out, ok := view.(*Out)
	if !ok {
		unlock()
		Fail(reg, &apis.BindingError{
			Kind:      apis.KindWrongResult,
			Actual:    fmt.Sprintf("%T", view),
			Requested: target.String(),
		})
	}

	c.Retain()
	metrics.Coerced(mode)
	return owning.New(out, func() {
		unlock()
		c.Release()
	})
}

// TypeInfoOf returns the metadata registered for T. Missing metadata is a
// binding defect.
func TypeInfoOf[T any](reg apis.Registry) apis.TypeInfo {
	k := apis.KeyOf[T]()
	info, ok := reg.TypeInfo(k)
	if !ok {
		Fail(reg, &apis.BindingError{Kind: apis.KindMissingTypeInfo, Actual: StoredName(reg, k)})
	}
	return info
}

// StoredName returns the registered display name of k, or a placeholder
// carrying the Go type when k was never registered.
func StoredName(reg apis.Registry, k apis.TypeKey) string {
	if name, ok := reg.Name(k); ok {
		return name
	}
	return "<unregistered type " + k.String() + ">"
}

// Fail logs err at Error on the registry's logger, counts it and panics with it.
func Fail(reg apis.Registry, err *apis.BindingError) {
	log := Logger()
	if l, ok := reg.(interface{ Logger() *zap.Logger }); ok {
		log = l.Logger()
	}
	defect.Panic(log, err)
}

// must panics on registration errors, which only arise from invalid keys.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
