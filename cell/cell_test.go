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

package cell

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/internal/metrics"
)

type counter struct {
	n     int
	drops *atomic.Int32
}

func (c *counter) Drop() { c.drops.Add(1) }

type valueDropper struct{ drops *atomic.Int32 }

func (v valueDropper) Drop() { v.drops.Add(1) }

func TestAcquireRead_Flavors(t *testing.T) {
	ex := NewExclusive(3)
	v, unlock, ok := AcquireRead[int](ex)
	if !ok || *v != 3 {
		t.Fatalf("AcquireRead(Exclusive): got (%v,%v), want (3,true)", v, ok)
	}
	unlock()

	sh := NewShared("a")
	s1, u1, ok1 := AcquireRead[string](sh)
	s2, u2, ok2 := AcquireRead[string](sh) // concurrent readers on Shared
	if !ok1 || !ok2 || *s1 != "a" || s1 != s2 {
		t.Fatalf("AcquireRead(Shared): unexpected result")
	}
	u1()
	u2()

	if _, _, ok := AcquireRead[string](ex); ok {
		t.Fatalf("AcquireRead[string] on Exclusive[int] should fail")
	}
	if _, _, ok := AcquireWrite[int](42); ok {
		t.Fatalf("AcquireWrite on a bare value should fail")
	}
}

func TestAcquireWrite_SharedBlocksReaders(t *testing.T) {
	sh := NewShared(0)
	w, unlock, ok := AcquireWrite[int](sh)
	if !ok {
		t.Fatalf("AcquireWrite(Shared) failed")
	}

	got := make(chan int, 1)
	go func() {
		r, ru, _ := AcquireRead[int](sh)
		got <- *r
		ru()
	}()

	select {
	case <-got:
		t.Fatalf("reader acquired while writer held the lock")
	case <-time.After(50 * time.Millisecond):
	}
	*w = 9
	unlock()
	if v := <-got; v != 9 {
		t.Fatalf("reader: got %d, want 9", v)
	}
}

func TestCell_DestructorRunsOnce(t *testing.T) {
	var drops atomic.Int32
	c := Wrap(counter{n: 1, drops: &drops})
	c.Retain()
	c.Retain()
	if got := c.Refs(); got != 3 {
		t.Fatalf("Refs: got %d, want 3", got)
	}

	if c.Release() || c.Release() {
		t.Fatalf("Release destroyed early")
	}
	if drops.Load() != 0 {
		t.Fatalf("Drop ran before the last release")
	}
	if !c.Release() {
		t.Fatalf("last Release should destroy")
	}
	if got := drops.Load(); got != 1 {
		t.Fatalf("drops: got %d, want 1", got)
	}
	if !c.Dropped() {
		t.Fatalf("Dropped: got false, want true")
	}
}

func TestCell_ValueReceiverDropper(t *testing.T) {
	var drops atomic.Int32
	c := WrapShared[apis.Dropper](valueDropper{drops: &drops})
	c.Release()
	if got := drops.Load(); got != 1 {
		t.Fatalf("drops: got %d, want 1", got)
	}
}

func TestCell_UseAfterDropPanics(t *testing.T) {
	c := Wrap(1)
	c.Release()

	for name, fn := range map[string]func(){
		"Retain":  c.Retain,
		"Payload": func() { _ = c.Payload() },
		"Release": func() { c.Release() },
	} {
		func() {
			defer func() {
				err, _ := recover().(error)
				if !errors.Is(err, apis.Defect(apis.KindCellDropped)) {
					t.Fatalf("%s: got %v, want cell_dropped", name, err)
				}
			}()
			fn()
		}()
	}
}

func TestCell_UseAfterDropIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	dropped := metrics.BindingDefects().WithLabelValues(string(apis.KindCellDropped))
	before := testutil.ToFloat64(dropped)

	c := Wrap("x")
	c.Release()
	for _, fn := range []func(){c.Retain, func() { _ = c.Payload() }} {
		func() {
			defer func() { _ = recover() }()
			fn()
		}()
	}

	if got := testutil.ToFloat64(dropped) - before; got != 2 {
		t.Fatalf("cell_dropped count: got %v, want 2", got)
	}
	entries := logs.FilterMessage("binding defect").All()
	if len(entries) != 2 {
		t.Fatalf("binding defect logs: got %d, want 2", len(entries))
	}
	if kind := entries[0].ContextMap()["kind"]; kind != string(apis.KindCellDropped) {
		t.Fatalf("logged kind: got %v, want cell_dropped", kind)
	}
}

func TestCell_StorageKey(t *testing.T) {
	if got, want := Wrap(1).StorageKey(), apis.KeyOf[*Exclusive[int]](); got != want {
		t.Fatalf("StorageKey: got %v, want %v", got, want)
	}
	if got, want := WrapShared(1).StorageKey(), apis.KeyOf[*Shared[int]](); got != want {
		t.Fatalf("StorageKey: got %v, want %v", got, want)
	}
}

func TestCell_ConcurrentRetainRelease(t *testing.T) {
	var drops atomic.Int32
	c := Wrap(counter{drops: &drops})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		c.Retain()
		go func() {
			defer wg.Done()
			c.Release()
		}()
	}
	wg.Wait()

	if drops.Load() != 0 || c.Refs() != 1 {
		t.Fatalf("after balanced retain/release: drops=%d refs=%d", drops.Load(), c.Refs())
	}
	c.Release()
	if drops.Load() != 1 {
		t.Fatalf("drops: got %d, want 1", drops.Load())
	}
}
