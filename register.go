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
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/expand"
	"dirpx.dev/capx/registry"
)

// RegisterType registers T on the process-wide registry under every
// combination of bindings and markers. See expand.RegisterType.
func RegisterType[T any](markers []apis.TypeKey, bindings ...expand.Binding[T]) []apis.Target {
	return expand.RegisterType(Registry(), markers, bindings...)
}

// RegisterInterface registers interface I as a storage type on the
// process-wide registry. See expand.RegisterInterface.
func RegisterInterface[I any](markers ...apis.TypeKey) []apis.Target {
	return expand.RegisterInterface[I](Registry(), markers...)
}

// TypeInfo returns the introspection metadata of T. Missing metadata is a
// binding defect.
func TypeInfo[T any]() apis.TypeInfo {
	return registry.TypeInfoOf[T](Registry())
}
