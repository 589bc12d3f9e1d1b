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

// Namer lets a type choose its own display name. The method is called on a
// pointer to the zero value, so it must not depend on receiver state.
type Namer interface {
	TypeName() string
}

// Dropper is implemented by payloads that release resources when the last
// reference to their cell goes away. Drop runs exactly once.
type Dropper interface {
	Drop()
}
