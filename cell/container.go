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

// Package cell provides the two locking flavors a payload can be stored in and
// the reference-counted, type-erased Cell that owns such a payload.
//
// Exclusive admits one accessor at a time for reads and writes alike. Shared
// admits many concurrent readers or a single writer. Derived pointers point
// into the wrapper's value field, which lives on the heap and never moves.
package cell

import "sync"

// Exclusive stores a T behind a sync.Mutex.
type Exclusive[T any] struct {
	mu sync.Mutex
	v  T
}

// NewExclusive wraps v in an Exclusive container.
func NewExclusive[T any](v T) *Exclusive[T] {
	return &Exclusive[T]{v: v}
}

// Shared stores a T behind a sync.RWMutex.
type Shared[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewShared wraps v in a Shared container.
func NewShared[T any](v T) *Shared[T] {
	return &Shared[T]{v: v}
}

// AcquireRead locks payload for reading and returns a pointer to the stored
// value plus the matching unlock function. Exclusive is tried before Shared.
// ok is false when payload is neither *Exclusive[T] nor *Shared[T].
func AcquireRead[T any](payload any) (v *T, unlock func(), ok bool) {
	switch p := payload.(type) {
	case *Exclusive[T]:
		p.mu.Lock()
		return &p.v, p.mu.Unlock, true
	case *Shared[T]:
		p.mu.RLock()
		return &p.v, p.mu.RUnlock, true
	}
	return nil, nil, false
}

// AcquireWrite is AcquireRead with the write lock.
func AcquireWrite[T any](payload any) (v *T, unlock func(), ok bool) {
	switch p := payload.(type) {
	case *Exclusive[T]:
		p.mu.Lock()
		return &p.v, p.mu.Unlock, true
	case *Shared[T]:
		p.mu.Lock()
		return &p.v, p.mu.Unlock, true
	}
	return nil, nil, false
}
