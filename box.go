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

package capx

import (
	"reflect"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/registry"
)

// Box is a reference-counted handle to a type-erased cell. T labels the
// logical element type; it is never inspected at run time.
//
// A Box value owns one reference. Clone adds one, Drop gives it back. Copying
// a Box does not add a reference.
type Box[T any] struct {
	c *cell.Cell
}

// NewExclusive registers T and wraps v in an Exclusive cell.
func NewExclusive[T any](v T) Box[T] {
	registerValue[T](Registry())
	return Box[T]{c: cell.Wrap(v)}
}

// NewShared registers T and wraps v in a Shared cell.
func NewShared[T any](v T) Box[T] {
	registerValue[T](Registry())
	return Box[T]{c: cell.WrapShared(v)}
}

// From is NewExclusive.
func From[T any](v T) Box[T] {
	return NewExclusive(v)
}

// NewExclusiveBoxed wraps v, a non-nil value of interface type T, in an
// Exclusive cell. The dynamic type of v is registered alongside T.
func NewExclusiveBoxed[T any](v T) Box[T] {
	registerBoxed(Registry(), v)
	return Box[T]{c: cell.Wrap(v)}
}

// NewSharedBoxed is NewExclusiveBoxed with a Shared cell.
func NewSharedBoxed[T any](v T) Box[T] {
	registerBoxed(Registry(), v)
	return Box[T]{c: cell.WrapShared(v)}
}

func registerValue[T any](reg apis.Registry) {
	registry.RegisterType[T](reg)
	registry.RegisterSelf[T](reg)
}

func registerBoxed[T any](reg apis.Registry, v T) {
	it := reflect.TypeFor[T]()
	if it.Kind() != reflect.Interface {
		registry.Fail(reg, &apis.BindingError{Kind: apis.KindNotInterface, Actual: it.String(), Detail: "boxed"})
	}
	dt := reflect.TypeOf(v)
	if dt == nil {
		registry.Fail(reg, &apis.BindingError{Kind: apis.KindNotInterface, Requested: it.String(), Detail: "nil boxed value"})
	}
	registerValue[T](reg)
	if err := reg.RegisterName(apis.KeyFor(dt), reg.DisplayName(dt)); err != nil {
		panic(err)
	}
}

// Cell returns the underlying cell.
func (b Box[T]) Cell() *cell.Cell {
	return b.c
}

// Clone returns a Box sharing b's cell with one more reference. The zero Box
// clones to itself.
func (b Box[T]) Clone() Box[T] {
	if b.c == nil {
		return b
	}
	b.c.Retain()
	return b
}

// Drop gives back b's reference. The payload is destroyed when no reference
// is left on either side of the boundary. Dropping the zero Box, as returned
// with an error by boundary.FromValue, does nothing.
func (b Box[T]) Drop() {
	if b.c == nil {
		return
	}
	b.c.Release()
}

// Coerce views the stored value as T, holding the read lock until the
// handle is released.
func (b Box[T]) Coerce() registry.Handle[T] {
	return registry.Coerce[T](Registry(), b.c)
}

// CoerceMut views the stored value as T, holding the write lock until the
// handle is released.
func (b Box[T]) CoerceMut() registry.HandleMut[T] {
	return registry.CoerceMut[T](Registry(), b.c)
}

// Coerce views the value in b as Out combined with markers.
func Coerce[Out, T any](b Box[T], markers ...apis.TypeKey) registry.Handle[Out] {
	return registry.Coerce[Out](Registry(), b.c, markers...)
}

// CoerceMut is Coerce with the write lock.
func CoerceMut[Out, T any](b Box[T], markers ...apis.TypeKey) registry.HandleMut[Out] {
	return registry.CoerceMut[Out](Registry(), b.c, markers...)
}

// Cast relabels b's logical type without touching the cell or its count.
func Cast[U, T any](b Box[T]) Box[U] {
	return Box[U]{c: b.c}
}
