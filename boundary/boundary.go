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

// Package boundary moves Box references into and out of a foreign runtime.
//
// A foreign wrapper object holds exactly one Ticket and one Finalizer. The
// foreign collector calls the finalizer exactly once before reclaiming the
// wrapper; the finalizer gives the ticket's reference back.
package boundary

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dirpx.dev/capx"
	"dirpx.dev/capx/internal/metrics"
)

// Value is a foreign-side reference to a wrapper object.
type Value uint64

// Finalizer is called by the foreign collector with the ticket stored in a
// wrapper that is being reclaimed.
type Finalizer func(capx.Ticket)

// Runtime is the foreign side of the boundary.
//
// Wrap stores t and fin in a new wrapper object. Ticket reads the ticket out
// of a live wrapper. Implementations must call fin exactly once per wrapper
// and never duplicate the stored ticket; wrappers may move.
type Runtime interface {
	Wrap(ctx context.Context, t capx.Ticket, fin Finalizer) (Value, error)
	Ticket(ctx context.Context, v Value) (capx.Ticket, error)
}

// ErrForeign wraps failures reported by a Runtime.
var ErrForeign = errors.New("capx(boundary): foreign runtime failure")

// ToValue hands a new reference to b's cell to rt. b keeps its own reference.
func ToValue[T any](ctx context.Context, rt Runtime, b capx.Box[T]) (Value, error) {
	t := b.Clone().IntoRaw()
	v, err := rt.Wrap(ctx, t, Finalize)
	if err != nil {
		capx.FromRaw[T](t).Drop()
		return 0, fmt.Errorf("%w: wrap: %w", ErrForeign, err)
	}
	Logger().Debug("value wrapped", zap.Uint64("ticket", uint64(t)), zap.Uint64("value", uint64(v)))
	return v, nil
}

// FromValue returns an independent reference to the cell behind v. The
// foreign wrapper keeps its own reference until it is finalized. The caller
// must Drop the result.
func FromValue[T any](ctx context.Context, rt Runtime, v Value) (capx.Box[T], error) {
	t, err := rt.Ticket(ctx, v)
	if err != nil {
		return capx.Box[T]{}, fmt.Errorf("%w: ticket of value %d: %w", ErrForeign, v, err)
	}
	return capx.CloneRaw[T](t), nil
}

// Finalize consumes t and drops its reference. It serves every logical type:
// the cell runs its own destructor. Panics never leave Finalize; they are
// logged and counted.
func Finalize(t capx.Ticket) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("finalizer failed",
				zap.Uint64("ticket", uint64(t)),
				zap.Any("panic", r),
			)
			metrics.Finalized("failed")
		}
	}()

	capx.FromRaw[any](t).Drop()
	metrics.Finalized("ok")
}
