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
	"runtime"
	"sync"
	"testing"

	"dirpx.dev/capx/apis"
)

// Local test types.
type A struct{}
type G[T any] struct{}

const pkg = "dirpx.dev/capx/strategy"

func TestReflectStrategy_ByType(t *testing.T) {
	s := NewReflectStrategy()

	cases := []struct {
		name     string
		typ      reflect.Type
		expected string
	}{
		{"type plain", reflect.TypeOf(A{}), pkg + ".A"},
		{"type ptr", reflect.TypeOf(&A{}), "*" + pkg + ".A"},
		{"type slice", reflect.TypeOf([]A{}), "[]" + pkg + ".A"},
		{"type array", reflect.TypeOf([2]A{}), "[2]" + pkg + ".A"},
		{"type ptr ptr", reflect.TypeOf((**A)(nil)), "**" + pkg + ".A"},
		{"builtin", reflect.TypeOf(42), "int"},
		{"map keeps go syntax", reflect.TypeOf(map[string]int{}), "map[string]int"},
		{"generic instantiation", reflect.TypeOf(G[int]{}), pkg + ".G[int]"},
		{"interface", reflect.TypeFor[apis.Namer](), "dirpx.dev/capx/apis.Namer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := s.TryResolveType(tc.typ, apis.Config{})
			if !ok {
				t.Fatalf("expected ok=true for %v", tc.typ)
			}
			if got != tc.expected {
				t.Fatalf("got %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestReflectStrategy_NilType(t *testing.T) {
	s := NewReflectStrategy()
	if got, ok := s.TryResolveType(nil, apis.Config{}); ok || got != "" {
		t.Fatalf("nil type: got (%q,%v), want ('',false)", got, ok)
	}
}

func TestReflectStrategy_Memoizes(t *testing.T) {
	typ := reflect.TypeOf([3]A{})
	first := byType(typ)
	v, ok := typeNameCache.Load(typ)
	if !ok || v.(string) != first {
		t.Fatalf("cache entry = (%v,%v), want (%q,true)", v, ok, first)
	}
}

// TestReflectStrategy_ConcurrentResolve_NoRace verifies that TryResolveType
// is race-free and returns stable names under heavy concurrency.
func TestReflectStrategy_ConcurrentResolve_NoRace(t *testing.T) {
	s := NewReflectStrategy()
	tys := []reflect.Type{
		reflect.TypeOf(A{}), reflect.TypeOf(&A{}), reflect.TypeOf([]A{}),
		reflect.TypeOf(G[string]{}), reflect.TypeOf(map[string]A{}),
	}
	want := make([]string, len(tys))
	for i, tt := range tys {
		want[i], _ = s.TryResolveType(tt, apis.Config{})
	}

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 4
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				j := (i + id) % len(tys)
				if name, ok := s.TryResolveType(tys[j], apis.Config{}); !ok || name != want[j] {
					t.Errorf("TryResolveType(%v) = (%q,%v), want (%q,true)", tys[j], name, ok, want[j])
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
