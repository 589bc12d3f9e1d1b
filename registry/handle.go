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
	"dirpx.dev/capx/internal/owning"
)

// Handle is a read view of a coerced cell. It holds the payload's read lock
// and one reference to the cell until Release.
type Handle[T any] struct {
	ref owning.Ref[T]
}

// Get returns the viewed value.
func (h Handle[T]) Get() T {
	return *h.ref.Ptr()
}

// Release unlocks the payload and drops the handle's cell reference.
// Releasing twice is a no-op.
func (h Handle[T]) Release() {
	h.ref.Release()
}

// Released reports whether Release has run.
func (h Handle[T]) Released() bool {
	return h.ref.Released()
}

// HandleMut is a write view of a coerced cell. It holds the payload's write
// lock and one reference to the cell until Release.
type HandleMut[T any] struct {
	ref owning.Ref[T]
}

// Get returns the viewed value.
func (h HandleMut[T]) Get() T {
	return *h.ref.Ptr()
}

// Ptr returns a pointer to the viewed value, valid until Release. For self
// views it points at the stored value.
func (h HandleMut[T]) Ptr() *T {
	return h.ref.Ptr()
}

// Set replaces the viewed value.
func (h HandleMut[T]) Set(v T) {
	*h.ref.Ptr() = v
}

// Release unlocks the payload and drops the handle's cell reference.
// Releasing twice is a no-op.
func (h HandleMut[T]) Release() {
	h.ref.Release()
}

// Released reports whether Release has run.
func (h HandleMut[T]) Released() bool {
	return h.ref.Released()
}
