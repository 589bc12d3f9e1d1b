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

// Package capx lets a Go value that lives behind a foreign, independently
// collected runtime be viewed through any number of interfaces chosen at run
// time, while a reference-counted handle survives round trips into and out of
// that runtime.
//
// # Design
//
// The core of capx is a read-mostly process-wide snapshot (state). The
// snapshot holds:
//
//   - Config: marker limits, log level, metrics switch.
//
//   - Registry: display names, coercions and introspection metadata.
//     A coercion is keyed by the exact storage wrapper type of a cell
//     (*cell.Exclusive[T] or *cell.Shared[T]) and the requested target, an
//     interface plus a set of capability markers. Lookups are exact: there
//     is no structural subtyping between targets, so every combination a
//     caller might ask for is registered up front (see package expand).
//
//   - Resolver: turns types into display names, first through apis.Namer,
//     then through reflection.
//
//   - Builder: constructs Registry and Resolver for a Config and migrates
//     registrations when the registry is rebuilt.
//
// Readers load the snapshot atomically and never take the build lock. Writers
// build a new snapshot under a short mutex and swap it in.
//
// # Boxes and tickets
//
// Box[T] owns one reference to a cell. Clone adds one, Drop gives it back,
// and the payload's destructor (apis.Dropper) runs once when the last
// reference goes. A reference handed to a foreign runtime becomes a Ticket:
//
//	t := box.Clone().IntoRaw() // foreign side now owns a reference
//	b := capx.CloneRaw[Sheep](t) // borrow it for a call
//	defer b.Drop()
//	capx.FromRaw[Sheep](t).Drop() // the foreign finalizer, exactly once
//
// Package boundary wraps this protocol for a concrete foreign runtime.
//
// # Coercion
//
//	h := capx.CoerceMut[animals.AnimalProxy](box, marker.Of[marker.Sync]())
//	defer h.Release()
//	h.Get().Talk()
//
// A missing registration is a binding defect: the call panics with an
// *apis.BindingError naming the stored type and the requested target.
//
// Holding a handle on a cell while requesting a write handle on the same cell
// from the same goroutine deadlocks.
//
// # Pinning
//
// SetRegistry and SetResolver pin the given layer: SetConfig, SetBuilder and
// SetLogger stop rebuilding it until UnpinRegistry or UnpinResolver.
package capx
