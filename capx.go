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

package capx

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/builder"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/internal/metrics"
)

var (
	// ErrNilRegistry is returned when a builder returns a nil registry.
	ErrNilRegistry = errors.New("capx: builder returned nil registry")
	// ErrNilResolver is returned when a builder returns a nil resolver.
	ErrNilResolver = errors.New("capx: builder returned nil resolver")
)

// load returns the current state, creating the default one on first use.
func load() *state {
	initOnce.Do(func() {
		s := &state{cfg: config.DefaultConfig(), base: zap.NewNop(), bld: builder.New()}
		s.level()
		s.res = s.bld.BuildResolver(s.cfg)
		s.reg = s.bld.BuildRegistry(s.cfg, s.res, nil, s.log)
		st.Store(s)
	})
	return st.Load()
}

// TypeName resolves the display name of t with the process-wide resolver.
func TypeName(t reflect.Type) string {
	s := load()
	return s.res.ResolveType(t, s.cfg)
}

// SetAll explicitly sets all process-wide state components.
//
// Nil arguments leave the corresponding component unchanged. A non-nil reg or
// res is pinned; a nil one is rebuilt by the builder.
func SetAll(cfg *apis.Config, log *zap.Logger, reg apis.Registry, res apis.Resolver, bld apis.Builder) {
	buildMu.Lock()
	defer buildMu.Unlock()

	// Load the old state.
	old := load()

	n := *old
	if cfg != nil {
		n.cfg = *cfg
	}
	if log != nil {
		n.base = log
	}
	n.level()
	if bld != nil {
		n.bld = bld
	}

	// Resolver first: the registry resolves display names through it.
	n.res, n.pres = res, res != nil
	if res == nil {
		n.res = n.bld.BuildResolver(n.cfg)
	}
	n.reg, n.preg = reg, reg != nil
	if reg == nil {
		n.reg = n.bld.BuildRegistry(n.cfg, n.res, old.reg, n.log)
	}

	publish(&n)
}

// Config returns the process-wide configuration.
func Config() apis.Config {
	return load().cfg
}

// SetConfig sets the process-wide configuration to cfg, filters the logger
// to cfg.LogLevel and rebuilds the layers that are not pinned. With the
// default builder the registry is reconfigured in place, so no registration
// is lost.
func SetConfig(cfg apis.Config) {
	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	n.cfg = cfg
	n.level()
	rebuild(&n)
	publish(&n)
}

// Registry returns the process-wide registry.
func Registry() apis.Registry {
	return load().reg
}

// SetRegistry sets the process-wide registry to reg and pins it.
func SetRegistry(reg apis.Registry) {
	if reg == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	n.reg, n.preg = reg, true
	publish(&n)
}

// Resolver returns the process-wide display-name resolver.
func Resolver() apis.Resolver {
	return load().res
}

// SetResolver sets the process-wide resolver to res and pins it. An unpinned
// registry is rebuilt so it names new types through res.
func SetResolver(res apis.Resolver) {
	if res == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	n.res, n.pres = res, true
	rebuild(&n)
	publish(&n)
}

// Builder returns the process-wide builder.
func Builder() apis.Builder {
	return load().bld
}

// SetBuilder sets the process-wide builder to b and rebuilds the layers that
// are not pinned.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	n.bld = b
	rebuild(&n)
	publish(&n)
}

// Logger returns the process-wide logger filtered to Config().LogLevel.
// It is a no-op logger by default.
func Logger() *zap.Logger {
	return load().log
}

// SetLogger sets the process-wide logger and hands it to an unpinned
// registry. Nil restores the no-op logger.
func SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	n.base = log
	n.level()
	if !n.preg {
		n.reg = n.bld.BuildRegistry(n.cfg, n.res, n.reg, n.log)
	}
	publish(&n)
}

// Reset replaces an unpinned registry with an empty one. Cells created
// before Reset keep working only for coercions registered again.
func Reset() {
	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	if !n.preg {
		n.reg = n.bld.BuildRegistry(n.cfg, n.res, nil, n.log)
	}
	publish(&n)
}

// IsRegistryPinned returns whether the process-wide registry is pinned.
func IsRegistryPinned() bool {
	return load().preg
}

// PinRegistry stops rebuilds of the process-wide registry.
func PinRegistry() {
	setPins(func(s *state) { s.preg = true })
}

// UnpinRegistry lets the process-wide registry be rebuilt again.
func UnpinRegistry() {
	setPins(func(s *state) { s.preg = false })
}

// IsResolverPinned returns whether the process-wide resolver is pinned.
func IsResolverPinned() bool {
	return load().pres
}

// PinResolver stops rebuilds of the process-wide resolver.
func PinResolver() {
	setPins(func(s *state) { s.pres = true })
}

// UnpinResolver lets the process-wide resolver be rebuilt again.
func UnpinResolver() {
	setPins(func(s *state) { s.pres = false })
}

func setPins(fn func(*state)) {
	buildMu.Lock()
	defer buildMu.Unlock()

	n := *load()
	fn(&n)
	publish(&n)
}

// rebuild replaces the unpinned layers of n using n.bld. Must hold buildMu.
func rebuild(n *state) {
	if !n.pres {
		n.res = n.bld.BuildResolver(n.cfg)
	}
	if !n.preg {
		n.reg = n.bld.BuildRegistry(n.cfg, n.res, n.reg, n.log)
	}
}

// level derives the effective logger from base and cfg.LogLevel.
func (s *state) level() {
	s.log = config.Leveled(s.base, s.cfg.LogLevel)
}

// publish validates n and stores it. Must hold buildMu.
func publish(n *state) {
	// Ensure non-nil reg and res.
	if n.reg == nil {
		panic(ErrNilRegistry)
	}
	if n.res == nil {
		panic(ErrNilResolver)
	}
	if n.cfg.Metrics {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			n.log.Warn("metrics registration failed", zap.Error(err))
		}
	}
	st.Store(n)
}

var (
	// buildMu serializes writers (reconfigurations/swaps) so we never publish
	// partially-built snapshots.
	buildMu sync.Mutex

	// initOnce gates creation of the default state.
	initOnce sync.Once

	// st is the process-wide state.
	st atomic.Pointer[state]
)

// state is the process-wide state snapshot.
// Immutable snapshot published atomically via st.Store; never mutate fields
// of a published state. Writers copy the current state and swap it.
type state struct {
	// cfg is the process-wide configuration.
	cfg apis.Config
	// base is the logger set by SetLogger or SetAll.
	base *zap.Logger
	// log is base filtered to cfg.LogLevel; it receives registration and
	// binding-defect events.
	log *zap.Logger
	// reg is the process-wide registry.
	reg apis.Registry
	// res resolves display names for reg.
	res apis.Resolver
	// bld builds reg and res.
	bld apis.Builder
	// preg indicates whether reg is pinned.
	preg bool
	// pres indicates whether res is pinned.
	pres bool
}
