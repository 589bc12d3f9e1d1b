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

// Config carries process-wide knobs for registries, logging and metrics.
// It is passed by value and should be treated as immutable by implementations.
type Config struct {
	// MaxMarkers bounds the capability markers accepted per registration.
	// The expander registers 2^MaxMarkers combinations per interface at most.
	MaxMarkers int

	// LogLevel is the zap level name ("debug", "info", "warn", "error").
	// capx.SetConfig filters the process logger to it.
	LogLevel string

	// Development switches config.NewLogger to zap's development encoder.
	// A logger handed to capx.SetLogger keeps its own encoder.
	Development bool

	// Metrics registers the Prometheus collectors on the default registerer.
	Metrics bool
}
