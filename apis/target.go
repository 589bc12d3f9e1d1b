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
	"slices"
	"strings"
)

// markerSep joins canonical marker names inside a Target.
const markerSep = "+"

// Target is the full interface-set a caller asks a value to be viewed as:
// one method-bearing interface plus zero or more capability markers.
//
// Markers are kept as a sorted, de-duplicated list of canonical names, so
// Target{I, [A,B]} == Target{I, [B,A]}. Lookups are exact matches on the
// whole Target; there is no structural subtyping between targets.
type Target struct {
	iface   TypeKey
	markers string
}

// NewTarget builds the Target for iface combined with markers.
// Zero marker keys are ignored.
func NewTarget(iface TypeKey, markers ...TypeKey) Target {
	if len(markers) == 0 {
		return Target{iface: iface}
	}
	names := make([]string, 0, len(markers))
	for _, m := range markers {
		if m.IsZero() {
			continue
		}
		names = append(names, m.Canonical())
	}
	slices.Sort(names)
	names = slices.Compact(names)
	return Target{iface: iface, markers: strings.Join(names, markerSep)}
}

// TargetOf is NewTarget(KeyOf[I](), markers...).
func TargetOf[I any](markers ...TypeKey) Target {
	return NewTarget(KeyOf[I](), markers...)
}

// Interface returns the method-bearing part of the target.
func (t Target) Interface() TypeKey {
	return t.iface
}

// Markers returns the canonical marker names in sorted order.
func (t Target) Markers() []string {
	if t.markers == "" {
		return nil
	}
	return strings.Split(t.markers, markerSep)
}

// String renders the target as "Iface+MarkerA+MarkerB" using canonical names.
func (t Target) String() string {
	if t.markers == "" {
		return t.iface.Canonical()
	}
	return t.iface.Canonical() + markerSep + t.markers
}
