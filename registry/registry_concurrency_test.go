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

package registry_test

import (
	"runtime"
	"sync"
	"testing"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/registry"
)

// TestConcurrentRegisterAndCoerce hammers idempotent registrations, coercions
// and introspection in parallel.
func TestConcurrentRegisterAndCoerce(t *testing.T) {
	reg := registry.New(config.DefaultConfig())
	registry.RegisterType[dog](reg)
	registry.RegisterSelf[dog](reg)

	c := cell.WrapShared(dog{name: "rex"})
	defer c.Release()

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 4

	// Writers
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				registry.RegisterType[dog](reg)
				registry.Register[dog, Speaker](reg, asSpeaker, asSpeaker)
				_ = reg.Snapshot()
			}
		}()
	}

	// Mutators through the self view.
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				h := registry.CoerceMut[dog](reg, c)
				h.Ptr().barks++
				h.Release()
				_ = reg.Targets(apis.KeyOf[*cell.Shared[dog]]())
			}
		}()
	}

	wg.Wait()

	r := registry.Coerce[dog](reg, c)
	defer r.Release()
	if got, want := r.Get().barks, workers*500; got != want {
		t.Fatalf("barks: got %d, want %d", got, want)
	}
	if reg.Count() != 4 {
		t.Fatalf("Count: got %d, want 4", reg.Count())
	}
}
