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

package builder

import (
	"go.uber.org/zap"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/registry"
	"dirpx.dev/capx/resolver"
	"dirpx.dev/capx/strategy"
)

// New creates and returns a new instance of an apis.Builder.
func New() apis.Builder {
	return &builder{}
}

// builder is an empty struct to be used as a receiver for builder methods.
type builder struct{}

// BuildResolver returns the display-name chain: Namer first, reflection last.
func (b *builder) BuildResolver(_ apis.Config) apis.Resolver {
	return resolver.New(
		strategy.NewNamerStrategy(),
		strategy.NewReflectStrategy(),
	)
}

// BuildRegistry builds a registry for cfg. A prev that implements
// apis.Reconfigurer is reconfigured and returned as is, so every registration
// made on it, including ones racing with this call, stays visible. Any other
// prev has its entries copied into a fresh registry.
func (b *builder) BuildRegistry(cfg apis.Config, res apis.Resolver, prev apis.Registry, log *zap.Logger) apis.Registry {
	if rc, ok := prev.(apis.Reconfigurer); ok {
		rc.Reconfigure(cfg, res, log)
		return prev
	}
	nreg := registry.New(cfg, registry.WithResolver(res), registry.WithLogger(log))
	if prev != nil {
		nreg.Import(prev.Snapshot())
	}
	return nreg
}
