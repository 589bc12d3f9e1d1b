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

import (
	"hash/fnv"
	"reflect"
)

// TypeKey identifies a Go type. Two keys are equal iff they wrap the
// identical reflect.Type, so TypeKey is safe to use as a map key.
// The zero TypeKey identifies no type.
type TypeKey struct {
	t reflect.Type
}

// KeyOf returns the TypeKey of T. For interface types T the key refers to
// the interface itself, not to a dynamic type.
func KeyOf[T any]() TypeKey {
	return TypeKey{t: reflect.TypeFor[T]()}
}

// KeyFor returns the TypeKey for t. A nil t yields the zero key.
func KeyFor(t reflect.Type) TypeKey {
	return TypeKey{t: t}
}

// Type returns the underlying reflect.Type (nil for the zero key).
func (k TypeKey) Type() reflect.Type {
	return k.t
}

// IsZero reports whether k identifies no type.
func (k TypeKey) IsZero() bool {
	return k.t == nil
}

// String returns the Go syntax form of the type, e.g. "*cell.Exclusive[animals.Sheep]".
func (k TypeKey) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.String()
}

// Canonical returns the fully qualified name of the type: "import/path.Name"
// for named types, and the Go syntax form for unnamed ones.
func (k TypeKey) Canonical() string {
	return CanonicalName(k.t)
}

// ID returns a 64-bit FNV-1a hash of the canonical name. It is stable across
// processes and used for diagnostics only; dispatch always compares types.
func (k TypeKey) ID() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.Canonical()))
	return h.Sum64()
}

// CanonicalName returns "import/path.Name" for named types (type arguments
// included) and t.String() otherwise. A nil t yields "".
func CanonicalName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
