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

// Package simheap is an in-process foreign heap: wrapper objects live in a
// table owned by the heap, can be relocated, and are finalized when collected.
package simheap

import (
	"context"
	"errors"
	"sync"

	"dirpx.dev/capx"
	"dirpx.dev/capx/boundary"
)

// ErrUnknownValue is returned for values that were never wrapped or were
// already collected.
var ErrUnknownValue = errors.New("capx(simheap): unknown value")

type object struct {
	ticket capx.Ticket
	fin    boundary.Finalizer
}

// Heap is safe for concurrent use; calls are serialized.
type Heap struct {
	mu   sync.Mutex
	next boundary.Value
	objs map[boundary.Value]*object
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{objs: make(map[boundary.Value]*object)}
}

// Wrap implements boundary.Runtime.
func (h *Heap) Wrap(ctx context.Context, t capx.Ticket, fin boundary.Finalizer) (boundary.Value, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.objs[h.next] = &object{ticket: t, fin: fin}
	return h.next, nil
}

// Ticket implements boundary.Runtime.
func (h *Heap) Ticket(ctx context.Context, v boundary.Value) (capx.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.objs[v]
	if !ok {
		return 0, ErrUnknownValue
	}
	return o.ticket, nil
}

// Move relocates the wrapper behind v, as a compacting collector would, and
// returns its new value. The stored ticket is carried over unchanged.
func (h *Heap) Move(v boundary.Value) (boundary.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.objs[v]
	if !ok {
		return 0, ErrUnknownValue
	}
	delete(h.objs, v)
	h.next++
	h.objs[h.next] = o
	return h.next, nil
}

// Collect reclaims the wrapper behind v and runs its finalizer.
func (h *Heap) Collect(v boundary.Value) error {
	h.mu.Lock()
	o, ok := h.objs[v]
	delete(h.objs, v)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownValue
	}
	if o.fin != nil {
		o.fin(o.ticket)
	}
	return nil
}

// CollectAll reclaims every live wrapper and returns how many were finalized.
func (h *Heap) CollectAll() int {
	h.mu.Lock()
	objs := h.objs
	h.objs = make(map[boundary.Value]*object)
	h.mu.Unlock()

	for _, o := range objs {
		if o.fin != nil {
			o.fin(o.ticket)
		}
	}
	return len(objs)
}

// Live returns the number of wrappers not yet collected.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objs)
}

var _ boundary.Runtime = (*Heap)(nil)
