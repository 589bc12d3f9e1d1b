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

// Package wasmheap hosts boundary wrapper objects inside a WebAssembly
// instance. Tickets are stored as i64 values in the guest's linear memory;
// collecting a wrapper makes the guest load its ticket and call the host
// finalizer.
package wasmheap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"dirpx.dev/capx"
	"dirpx.dev/capx/boundary"
)

var (
	// ErrHeapFull is returned when every slot of guest memory is in use.
	ErrHeapFull = errors.New("capx(wasmheap): heap full")
	// ErrUnknownValue is returned for values that are not live wrappers.
	ErrUnknownValue = errors.New("capx(wasmheap): unknown value")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("capx(wasmheap): heap closed")
)

const (
	moduleName = "capx-heap"
	slotSize   = 8
	// Slots is the number of wrappers one page of guest memory can hold.
	Slots = 65536 / slotSize
)

// guestWasm is a minimal module:
//
//	(import "env" "finalize" (func $fin (param i64)))
//	(memory (export "memory") 1)
//	(func (export "store") (param $slot i32) (param $t i64)
//	  (i64.store (i32.mul (local.get $slot) (i32.const 8)) (local.get $t)))
//	(func (export "collect") (param $slot i32)
//	  (call $fin (i64.load (i32.mul (local.get $slot) (i32.const 8)))))
var guestWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i64) -> (), (i32, i64) -> (), (i32) -> ()
	0x01, 0x0e, 0x03,
	0x60, 0x01, 0x7e, 0x00,
	0x60, 0x02, 0x7f, 0x7e, 0x00,
	0x60, 0x01, 0x7f, 0x00,
	// import: env.finalize, type 0
	0x02, 0x10, 0x01,
	0x03, 0x65, 0x6e, 0x76,
	0x08, 0x66, 0x69, 0x6e, 0x61, 0x6c, 0x69, 0x7a, 0x65,
	0x00, 0x00,
	// function: store type 1, collect type 2
	0x03, 0x03, 0x02, 0x01, 0x02,
	// memory: one page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export: store, collect, memory
	0x07, 0x1c, 0x03,
	0x05, 0x73, 0x74, 0x6f, 0x72, 0x65, 0x00, 0x01,
	0x07, 0x63, 0x6f, 0x6c, 0x6c, 0x65, 0x63, 0x74, 0x00, 0x02,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	// code
	0x0a, 0x1b, 0x02,
	0x0c, 0x00, 0x20, 0x00, 0x41, 0x08, 0x6c, 0x20, 0x01, 0x37, 0x03, 0x00, 0x0b,
	0x0c, 0x00, 0x20, 0x00, 0x41, 0x08, 0x6c, 0x29, 0x03, 0x00, 0x10, 0x00, 0x0b,
}

type dueFinalizer struct {
	t   capx.Ticket
	fin boundary.Finalizer
}

// Heap is a boundary.Runtime backed by a wazero instance. All guest calls are
// serialized, matching the single-threaded execution the guest expects.
type Heap struct {
	mu      sync.Mutex
	rt      wazero.Runtime
	mod     api.Module
	store   api.Function
	collect api.Function

	// fins maps a stored ticket to its finalizer. Guarded by mu; the host
	// finalize function only runs inside Collect, which holds mu.
	fins map[capx.Ticket]boundary.Finalizer
	// due holds finalizers the guest requested during the current Collect.
	// They run after mu is released, so a finalizer may use the heap.
	due   []dueFinalizer
	live  map[uint32]bool
	free  []uint32
	next  uint32
	ended bool
}

// New starts a wazero runtime and instantiates the guest heap module.
func New(ctx context.Context) (*Heap, error) {
	h := &Heap{
		rt:   wazero.NewRuntime(ctx),
		fins: make(map[capx.Ticket]boundary.Finalizer),
		live: make(map[uint32]bool),
	}

	_, err := h.rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.finalize), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("finalize").
		Instantiate(ctx)
	if err != nil {
		_ = h.rt.Close(ctx)
		return nil, fmt.Errorf("capx(wasmheap): host module: %w", err)
	}

	h.mod, err = h.rt.InstantiateWithConfig(ctx, guestWasm, wazero.NewModuleConfig().WithName(moduleName))
	if err != nil {
		_ = h.rt.Close(ctx)
		return nil, fmt.Errorf("capx(wasmheap): guest module: %w", err)
	}
	h.store = h.mod.ExportedFunction("store")
	h.collect = h.mod.ExportedFunction("collect")
	return h, nil
}

// finalize is the guest's env.finalize import. It queues the finalizer for
// Collect to run once the heap is unlocked.
func (h *Heap) finalize(_ context.Context, _ api.Module, stack []uint64) {
	t := capx.Ticket(stack[0])
	fin, ok := h.fins[t]
	if !ok {
		boundary.Logger().Error("wasmheap: finalize of unknown ticket", zap.Uint64("ticket", uint64(t)))
		return
	}
	delete(h.fins, t)
	if fin != nil {
		h.due = append(h.due, dueFinalizer{t: t, fin: fin})
	}
}

// Wrap implements boundary.Runtime. The returned value is the slot index plus one.
func (h *Heap) Wrap(ctx context.Context, t capx.Ticket, fin boundary.Finalizer) (boundary.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended {
		return 0, ErrClosed
	}

	slot, ok := h.alloc()
	if !ok {
		return 0, ErrHeapFull
	}
	if _, err := h.store.Call(ctx, api.EncodeU32(slot), uint64(t)); err != nil {
		h.free = append(h.free, slot)
		return 0, fmt.Errorf("capx(wasmheap): store: %w", err)
	}
	h.live[slot] = true
	h.fins[t] = fin
	return boundary.Value(slot) + 1, nil
}

// Ticket implements boundary.Runtime by reading guest memory.
func (h *Heap) Ticket(_ context.Context, v boundary.Value) (capx.Ticket, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended {
		return 0, ErrClosed
	}

	slot, ok := h.slot(v)
	if !ok {
		return 0, ErrUnknownValue
	}
	raw, ok := h.mod.Memory().ReadUint64Le(slot * slotSize)
	if !ok {
		return 0, ErrUnknownValue
	}
	return capx.Ticket(raw), nil
}

// Collect reclaims the wrapper behind v; the guest calls the host finalizer
// with the stored ticket. The finalizer runs after the heap is unlocked, so a
// payload destructor may wrap or collect other values on the same heap.
func (h *Heap) Collect(ctx context.Context, v boundary.Value) error {
	due, err := h.reclaim(ctx, v)
	for _, d := range due {
		d.fin(d.t)
	}
	return err
}

func (h *Heap) reclaim(ctx context.Context, v boundary.Value) ([]dueFinalizer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended {
		return nil, ErrClosed
	}

	slot, ok := h.slot(v)
	if !ok {
		return nil, ErrUnknownValue
	}
	delete(h.live, slot)
	h.free = append(h.free, slot)
	_, err := h.collect.Call(ctx, api.EncodeU32(slot))
	due := h.due
	h.due = nil
	if err != nil {
		return due, fmt.Errorf("capx(wasmheap): collect: %w", err)
	}
	return due, nil
}

// CollectAll collects every live wrapper and returns how many were finalized.
func (h *Heap) CollectAll(ctx context.Context) (int, error) {
	h.mu.Lock()
	values := make([]boundary.Value, 0, len(h.live))
	for slot := range h.live {
		values = append(values, boundary.Value(slot)+1)
	}
	h.mu.Unlock()

	n := 0
	for _, v := range values {
		if err := h.Collect(ctx, v); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Live returns the number of wrappers not yet collected.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// Close releases the wazero runtime. Live wrappers are not finalized; their
// references leak, as they would if the foreign runtime exited.
func (h *Heap) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended {
		return nil
	}
	h.ended = true
	if n := len(h.live); n > 0 {
		boundary.Logger().Warn("wasmheap: closing with live wrappers", zap.Int("live", n))
	}
	return h.rt.Close(ctx)
}

func (h *Heap) alloc() (uint32, bool) {
	if n := len(h.free); n > 0 {
		slot := h.free[n-1]
		h.free = h.free[:n-1]
		return slot, true
	}
	if h.next >= Slots {
		return 0, false
	}
	slot := h.next
	h.next++
	return slot, true
}

func (h *Heap) slot(v boundary.Value) (uint32, bool) {
	if v == 0 || v > Slots {
		return 0, false
	}
	slot := uint32(v - 1)
	return slot, h.live[slot]
}

var _ boundary.Runtime = (*Heap)(nil)
