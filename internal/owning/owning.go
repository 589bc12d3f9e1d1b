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

// Package owning couples a held lock with a pointer derived under it so both
// can be passed around by value and released together.
package owning

import "sync/atomic"

// Ref is an owning reference to a *T valid until Release. The zero Ref is
// released.
type Ref[T any] struct {
	state *state[T]
}

type state[T any] struct {
	ptr      *T
	release  func()
	released atomic.Bool
}

// New returns a Ref over ptr. release runs once, on the first Release call.
func New[T any](ptr *T, release func()) Ref[T] {
	return Ref[T]{state: &state[T]{ptr: ptr, release: release}}
}

// Ptr returns the derived pointer. It panics after Release.
func (r Ref[T]) Ptr() *T {
	if r.state == nil || r.state.released.Load() {
		panic("capx(owning): use of released reference")
	}
	return r.state.ptr
}

// Release runs the release function. Copies of r share its state, so only the
// first Release among them has an effect.
func (r Ref[T]) Release() {
	if r.state == nil || !r.state.released.CompareAndSwap(false, true) {
		return
	}
	if r.state.release != nil {
		r.state.release()
	}
}

// Released reports whether Release has run.
func (r Ref[T]) Released() bool {
	return r.state == nil || r.state.released.Load()
}
