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

package cell

import (
	"reflect"
	"sync/atomic"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/internal/defect"
	"dirpx.dev/capx/internal/metrics"
)

// Cell is a reference-counted container whose payload is an *Exclusive[T] or
// a *Shared[T] held behind any. It starts with one reference. When the last
// reference is released the stored destructor runs exactly once.
type Cell struct {
	payload any
	refs    atomic.Int64
	destroy func()
}

// Wrap returns a Cell owning v in an Exclusive container.
func Wrap[T any](v T) *Cell {
	return newCell(NewExclusive(v), destructor[T])
}

// WrapShared returns a Cell owning v in a Shared container.
func WrapShared[T any](v T) *Cell {
	return newCell(NewShared(v), destructor[T])
}

func newCell(payload any, d func(any)) *Cell {
	c := &Cell{payload: payload}
	c.destroy = func() { d(payload) }
	c.refs.Store(1)
	metrics.CellCreated()
	return c
}

// destructor takes the write lock, gives the value a chance to release its
// resources and clears it.
func destructor[T any](payload any) {
	v, unlock, ok := AcquireWrite[T](payload)
	if !ok {
		return
	}
	defer unlock()
	switch d := any(v).(type) {
	case apis.Dropper:
		d.Drop()
	default:
		if d, ok := any(*v).(apis.Dropper); ok {
			d.Drop()
		}
	}
	var zero T
	*v = zero
}

// Payload returns the storage wrapper. It panics if the cell was destroyed.
func (c *Cell) Payload() any {
	if c.refs.Load() <= 0 {
		defect.Panic(Logger(), &apis.BindingError{Kind: apis.KindCellDropped, Actual: c.storage().String()})
	}
	return c.payload
}

// StorageKey returns the key of the wrapper type, e.g. *cell.Shared[T].
func (c *Cell) StorageKey() apis.TypeKey {
	return c.storage()
}

func (c *Cell) storage() apis.TypeKey {
	return apis.KeyFor(reflect.TypeOf(c.payload))
}

// Retain adds a reference. Retaining a destroyed cell panics.
func (c *Cell) Retain() {
	for {
		n := c.refs.Load()
		if n <= 0 {
			defect.Panic(Logger(), &apis.BindingError{Kind: apis.KindCellDropped, Actual: c.storage().String(), Detail: "retain"})
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// Release drops a reference and runs the destructor when it was the last.
// It reports whether the payload was destroyed by this call.
func (c *Cell) Release() bool {
	n := c.refs.Add(-1)
	switch {
	case n > 0:
		return false
	case n < 0:
		defect.Panic(Logger(), &apis.BindingError{Kind: apis.KindCellDropped, Actual: c.storage().String(), Detail: "release"})
	}
	c.destroy()
	metrics.CellDropped()
	return true
}

// Refs returns the current reference count.
func (c *Cell) Refs() int64 {
	return c.refs.Load()
}

// Dropped reports whether the payload has been destroyed.
func (c *Cell) Dropped() bool {
	return c.refs.Load() <= 0
}
