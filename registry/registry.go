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

package registry

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/resolver"
	"dirpx.dev/capx/strategy"
)

var (
	// ErrZeroKey is returned when a zero TypeKey is provided.
	ErrZeroKey = errors.New("capx(registry): zero type key provided")
	// ErrEmptyName is returned when an empty name is provided.
	ErrEmptyName = errors.New("capx(registry): empty name provided")
	// ErrIncompleteCoercion is returned when a coercion lacks its read or write function.
	ErrIncompleteCoercion = errors.New("capx(registry): coercion needs both read and write functions")
)

// Option customizes a registry built by New.
type Option func(*settings)

// WithResolver sets the resolver used by DisplayName. Nil is ignored.
func WithResolver(res apis.Resolver) Option {
	return func(s *settings) {
		if res != nil {
			s.res = res
		}
	}
}

// WithLogger sets the logger for registrations and binding defects. Nil is ignored.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs an empty Registry for cfg. Without WithResolver, display names
// come from the Namer strategy then the reflect strategy.
func New(cfg apis.Config, opts ...Option) apis.Registry {
	s := &settings{cfg: normalize(cfg), log: Logger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.res == nil {
		s.res = resolver.New(strategy.NewNamerStrategy(), strategy.NewReflectStrategy())
	}
	r := &registry{
		names:     make(map[apis.TypeKey]string),
		coercions: make(map[coercionKey]apis.Coercion),
		infos:     make(map[apis.TypeKey]apis.TypeInfo),
	}
	r.set.Store(s)
	return r
}

func normalize(cfg apis.Config) apis.Config {
	if cfg.MaxMarkers < 0 {
		cfg.MaxMarkers = config.DefaultMaxMarkers
	}
	return cfg
}

type coercionKey struct {
	storage apis.TypeKey
	target  apis.Target
}

// settings is swapped as a whole; a published value is never mutated.
type settings struct {
	cfg apis.Config
	res apis.Resolver
	log *zap.Logger
}

// registry keeps its three maps under a single RWMutex. Lookups hold the read
// lock only for the map access and never call user code.
type registry struct {
	set atomic.Pointer[settings]

	mu        sync.RWMutex
	names     map[apis.TypeKey]string
	coercions map[coercionKey]apis.Coercion
	infos     map[apis.TypeKey]apis.TypeInfo
}

var _ apis.Reconfigurer = (*registry)(nil)

func (r *registry) Config() apis.Config {
	return r.set.Load().cfg
}

// Logger returns the logger the registry reports to.
func (r *registry) Logger() *zap.Logger {
	return r.set.Load().log
}

// Reconfigure swaps the configuration, resolver and logger of the live
// registry. Entries are untouched. A nil res or log keeps the current one.
func (r *registry) Reconfigure(cfg apis.Config, res apis.Resolver, log *zap.Logger) {
	for {
		old := r.set.Load()
		n := &settings{cfg: normalize(cfg), res: old.res, log: old.log}
		if res != nil {
			n.res = res
		}
		if log != nil {
			n.log = log
		}
		if r.set.CompareAndSwap(old, n) {
			return
		}
	}
}

func (r *registry) DisplayName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	s := r.set.Load()
	return s.res.ResolveType(t, s.cfg)
}

func (r *registry) RegisterName(k apis.TypeKey, name string) error {
	if k.IsZero() {
		return ErrZeroKey
	}
	if name == "" {
		return ErrEmptyName
	}

	r.mu.RLock()
	_, ok := r.names[k]
	r.mu.RUnlock()
	if ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[k]; !ok {
		r.names[k] = name
		r.Logger().Debug("registered type", zap.Stringer("type", k), zap.String("name", name))
	}
	return nil
}

func (r *registry) Name(k apis.TypeKey) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[k]
	return name, ok
}

func (r *registry) RegisterCoercion(storage apis.TypeKey, target apis.Target, c apis.Coercion) error {
	if storage.IsZero() || target.Interface().IsZero() {
		return ErrZeroKey
	}
	if c.Read == nil || c.Write == nil {
		return ErrIncompleteCoercion
	}

	key := coercionKey{storage: storage, target: target}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coercions[key]; ok {
		return nil
	}
	r.coercions[key] = c
	r.Logger().Debug("registered coercion",
		zap.Stringer("storage", storage),
		zap.Stringer("target", target),
	)
	return nil
}

func (r *registry) Coercion(storage apis.TypeKey, target apis.Target) (apis.Coercion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coercions[coercionKey{storage: storage, target: target}]
	return c, ok
}

func (r *registry) Targets(storage apis.TypeKey) []apis.Target {
	r.mu.RLock()
	out := make([]apis.Target, 0, 8)
	for k := range r.coercions {
		if k.storage == storage {
			out = append(out, k.target)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b apis.Target) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

func (r *registry) RegisterTypeInfo(k apis.TypeKey, info apis.TypeInfo) error {
	if k.IsZero() {
		return ErrZeroKey
	}
	if info.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.infos[k]; !ok {
		info.Implements = slices.Clone(info.Implements)
		r.infos[k] = info
	}
	return nil
}

func (r *registry) TypeInfo(k apis.TypeKey) (apis.TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[k]
	if !ok {
		return apis.TypeInfo{}, false
	}
	info.Implements = slices.Clone(info.Implements)
	return info, true
}

// Snapshot copies all entries. Coercion entries are ordered by storage type
// then target.
func (r *registry) Snapshot() apis.Snapshot {
	r.mu.RLock()
	s := apis.Snapshot{
		Names:     make(map[apis.TypeKey]string, len(r.names)),
		Coercions: make([]apis.CoercionEntry, 0, len(r.coercions)),
		Infos:     make(map[apis.TypeKey]apis.TypeInfo, len(r.infos)),
	}
	for k, v := range r.names {
		s.Names[k] = v
	}
	for k, v := range r.coercions {
		s.Coercions = append(s.Coercions, apis.CoercionEntry{Storage: k.storage, Target: k.target, Coercion: v})
	}
	for k, v := range r.infos {
		v.Implements = slices.Clone(v.Implements)
		s.Infos[k] = v
	}
	r.mu.RUnlock()

	slices.SortFunc(s.Coercions, func(a, b apis.CoercionEntry) int {
		if c := strings.Compare(a.Storage.String(), b.Storage.String()); c != 0 {
			return c
		}
		return strings.Compare(a.Target.String(), b.Target.String())
	})
	return s
}

// Import records every entry of s that is not present yet. Invalid entries are
// skipped.
func (r *registry) Import(s apis.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range s.Names {
		if _, ok := r.names[k]; !ok && !k.IsZero() && v != "" {
			r.names[k] = v
		}
	}
	for _, e := range s.Coercions {
		key := coercionKey{storage: e.Storage, target: e.Target}
		if _, ok := r.coercions[key]; !ok && e.Coercion.Read != nil && e.Coercion.Write != nil {
			r.coercions[key] = e.Coercion
		}
	}
	for k, v := range s.Infos {
		if _, ok := r.infos[k]; !ok && !k.IsZero() {
			v.Implements = slices.Clone(v.Implements)
			r.infos[k] = v
		}
	}
}

func (r *registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.coercions)
}

func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = make(map[apis.TypeKey]string)
	r.coercions = make(map[coercionKey]apis.Coercion)
	r.infos = make(map[apis.TypeKey]apis.TypeInfo)
}
