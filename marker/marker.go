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

// Package marker declares the standard capability markers. A marker is a
// method-free interface: it adds no behavior to a view, only a property the
// binding author asserts about the stored type.
package marker

import (
	"reflect"

	"dirpx.dev/capx/apis"
)

// Sync asserts the value may be viewed from several goroutines at once.
type Sync interface{}

// Send asserts the value may be handed to another goroutine.
type Send interface{}

// Of returns the key of marker M.
func Of[M any]() apis.TypeKey {
	return apis.KeyOf[M]()
}

// Is reports whether k names a method-free interface, the shape every marker
// must have.
func Is(k apis.TypeKey) bool {
	t := k.Type()
	return t != nil && t.Kind() == reflect.Interface && t.NumMethod() == 0
}
