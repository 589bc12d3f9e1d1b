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

package apis

import "reflect"

// AcquireFunc locks a cell payload (the storage wrapper) and returns a pointer
// to the derived target view together with the function that releases the lock.
type AcquireFunc func(payload any) (view any, unlock func())

// Coercion converts a locked storage wrapper into a view of a target interface.
// Read takes the shared (or exclusive) lock, Write the exclusive one.
type Coercion struct {
	Read  AcquireFunc
	Write AcquireFunc
}

// TypeInfo is introspection metadata for external code generation.
// It is never consulted for dispatch.
type TypeInfo struct {
	// Name is the canonical fully qualified name.
	Name string
	// Implements lists the type itself, its markers and its interfaces, in
	// registration order.
	Implements []string
}

// Registry stores display names, coercions and type metadata.
// Implementations must be safe for concurrent use. Entries are never removed
// except by Reset; re-registration is idempotent.
type Registry interface {
	// Config returns the configuration the registry was built with.
	Config() Config

	// DisplayName resolves the display name for t through the registry's resolver.
	DisplayName(t reflect.Type) string

	// RegisterName records name for k unless k already has one.
	RegisterName(k TypeKey, name string) error
	// Name returns the recorded display name for k.
	Name(k TypeKey) (string, bool)

	// RegisterCoercion records c for (storage, target).
	RegisterCoercion(storage TypeKey, target Target, c Coercion) error
	// Coercion returns the coercion for (storage, target).
	Coercion(storage TypeKey, target Target) (Coercion, bool)
	// Targets lists every target registered for storage, sorted by String().
	Targets(storage TypeKey) []Target

	// RegisterTypeInfo records info for k unless k already has metadata.
	RegisterTypeInfo(k TypeKey, info TypeInfo) error
	// TypeInfo returns the metadata recorded for k.
	TypeInfo(k TypeKey) (TypeInfo, bool)

	// Snapshot copies all entries for diagnostics and migration.
	Snapshot() Snapshot
	// Import records every entry of s (idempotently).
	Import(s Snapshot)
	// Count returns the number of coercion entries.
	Count() int
	// Reset clears all entries.
	Reset()
}

// Snapshot is a point-in-time copy of a Registry's three maps.
type Snapshot struct {
	Names     map[TypeKey]string
	Coercions []CoercionEntry
	Infos     map[TypeKey]TypeInfo
}

// CoercionEntry is a single (storage, target) association in a Snapshot.
type CoercionEntry struct {
	Storage  TypeKey
	Target   Target
	Coercion Coercion
}
