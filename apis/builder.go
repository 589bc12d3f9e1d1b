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

import "go.uber.org/zap"

// Builder composes Registry and Resolver from a Config.
// Implementations may migrate state from previous instances, or ignore them.
type Builder interface {
	// BuildResolver constructs the display-name Resolver for cfg.
	BuildResolver(cfg Config) Resolver
	// BuildRegistry returns a Registry for cfg. When prev is non-nil its
	// entries carry over; a prev implementing Reconfigurer should be
	// reconfigured and returned rather than copied. log may be nil.
	BuildRegistry(cfg Config, res Resolver, prev Registry, log *zap.Logger) Registry
}

// Reconfigurer is implemented by registries that can take a new Config,
// Resolver and logger without being replaced. A copy would miss registrations
// that land on prev after it was taken.
type Reconfigurer interface {
	// Reconfigure swaps the settings of the live registry. A nil res or log
	// keeps the current one.
	Reconfigure(cfg Config, res Resolver, log *zap.Logger)
}
