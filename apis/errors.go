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

import "strings"

// Kind categorizes a binding defect.
type Kind string

const (
	// KindNoCoercion: no coercion is registered for (stored type, target).
	KindNoCoercion Kind = "no_coercion"
	// KindUnsupportedContainer: the payload is wrapped in neither supported
	// locking flavor for the registered input type.
	KindUnsupportedContainer Kind = "unsupported_container"
	// KindMissingTypeInfo: introspection metadata was never registered.
	KindMissingTypeInfo Kind = "missing_type_info"
	// KindNotInterface: an interface type was required.
	KindNotInterface Kind = "not_interface"
	// KindNotImplemented: a binding names an interface the type does not implement.
	KindNotImplemented Kind = "not_implemented"
	// KindTooManyMarkers: a marker list exceeds Config.MaxMarkers.
	KindTooManyMarkers Kind = "too_many_markers"
	// KindWrongResult: a coercion produced a value of an unexpected type.
	KindWrongResult Kind = "wrong_result"
	// KindTicketConsumed: a ticket was consumed twice or never issued.
	KindTicketConsumed Kind = "ticket_consumed"
	// KindCellDropped: a destroyed cell was used.
	KindCellDropped Kind = "cell_dropped"
)

// BindingError describes a mismatch between what was registered and what was
// requested. It is the panic value for every binding defect: these are not
// transient or data-dependent conditions, so they are never returned as errors.
type BindingError struct {
	// Kind categorizes the defect.
	Kind Kind
	// Actual is the display name of the offending runtime type, if any.
	Actual string
	// Requested is the requested interface-set or type, if any.
	Requested string
	// Detail is free-form context.
	Detail string
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	var b strings.Builder
	b.WriteString("capx: ")
	b.WriteString(string(e.Kind))
	if e.Actual != "" || e.Requested != "" {
		b.WriteString(": ")
		if e.Actual != "" {
			b.WriteString(e.Actual)
		}
		if e.Requested != "" {
			if e.Actual != "" {
				b.WriteString(" => ")
			}
			b.WriteString(e.Requested)
		}
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteByte(')')
	}
	return b.String()
}

// Is reports whether target is a *BindingError of the same Kind.
func (e *BindingError) Is(target error) bool {
	t, ok := target.(*BindingError)
	return ok && t.Kind == e.Kind
}

// Defect returns a *BindingError with only Kind set, for use with errors.Is.
func Defect(kind Kind) *BindingError {
	return &BindingError{Kind: kind}
}
