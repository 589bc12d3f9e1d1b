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

package config

import (
	"dirpx.dev/capx/apis"
)

const (
	// DefaultMaxMarkers represents the default for MaxMarkers.
	// Six markers already expand to 64 registrations per interface.
	DefaultMaxMarkers = 6
	// DefaultLogLevel represents the default for LogLevel.
	DefaultLogLevel = "info"
	// DefaultDevelopment represents the default for Development.
	DefaultDevelopment = false
	// DefaultMetrics represents the default for Metrics.
	DefaultMetrics = false
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	// Ensure MaxMarkers is valid.
	if cfg.MaxMarkers < 0 {
		cfg.MaxMarkers = DefaultMaxMarkers
	}
	return cfg
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		MaxMarkers:  DefaultMaxMarkers,
		LogLevel:    DefaultLogLevel,
		Development: DefaultDevelopment,
		Metrics:     DefaultMetrics,
	}
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithMaxMarkers sets the MaxMarkers option.
// A negative value resets to the default.
func WithMaxMarkers(n int) Option {
	return func(c *apis.Config) {
		if n < 0 {
			c.MaxMarkers = DefaultMaxMarkers
			return
		}
		c.MaxMarkers = n
	}
}

// WithLogLevel sets the LogLevel option.
func WithLogLevel(level string) Option {
	return func(c *apis.Config) {
		c.LogLevel = level
	}
}

// WithDevelopment sets the Development option.
func WithDevelopment(dev bool) Option {
	return func(c *apis.Config) {
		c.Development = dev
	}
}

// WithMetrics sets the Metrics option.
func WithMetrics(enabled bool) Option {
	return func(c *apis.Config) {
		c.Metrics = enabled
	}
}
