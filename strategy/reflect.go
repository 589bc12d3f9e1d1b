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

package strategy

import (
	"reflect"
	"strconv"
	"sync"

	"dirpx.dev/capx/apis"
)

// NewReflectStrategy creates an apis.Strategy that derives fully qualified
// display names via reflection, with memoization.
func NewReflectStrategy() apis.Strategy {
	return reflectStrategy{}
}

// reflectStrategy is the universal fallback. Named types resolve to
// "import/path.Name"; pointers, slices and arrays keep their Go syntax around
// the qualified element name; anything else uses reflect's String().
type reflectStrategy struct{}

// Ensure reflectStrategy implements apis.Strategy.
var _ apis.Strategy = (*reflectStrategy)(nil)

// typeNameCache caches resolved display names by type.
var typeNameCache sync.Map // key: reflect.Type, val: string

// TryResolveType computes the display name for t.
func (reflectStrategy) TryResolveType(t reflect.Type, _ apis.Config) (string, bool) {
	if t == nil {
		return "", false
	}
	return byType(t), true
}

// byType resolves the display name for t with memoization.
func byType(t reflect.Type) string {
	if v, ok := typeNameCache.Load(t); ok {
		return v.(string)
	}
	name := qualify(t)
	typeNameCache.Store(t, name)
	return name
}

func qualify(t reflect.Type) string {
	if t.Name() != "" {
		return apis.CanonicalName(t)
	}
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + qualify(t.Elem())
	case reflect.Slice:
		return "[]" + qualify(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + qualify(t.Elem())
	default:
		return t.String()
	}
}
