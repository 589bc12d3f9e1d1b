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
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dirpx.dev/capx/apis"
)

// ErrNegativeMaxMarkers is returned when a config file sets max_markers below zero.
var ErrNegativeMaxMarkers = errors.New("capx(config): max_markers must not be negative")

// fileConfig mirrors the on-disk TOML layout.
type fileConfig struct {
	MaxMarkers  int    `toml:"max_markers"`
	LogLevel    string `toml:"log_level"`
	Development bool   `toml:"development"`
	Metrics     bool   `toml:"metrics"`
}

// Load reads a TOML file and applies every key it defines on top of
// DefaultConfig. Keys absent from the file keep their defaults.
func Load(path string) (apis.Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return apis.Config{}, fmt.Errorf("capx(config): load: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return apis.Config{}, fmt.Errorf("capx(config): unknown keys %v", undecoded)
	}

	if meta.IsDefined("max_markers") {
		if raw.MaxMarkers < 0 {
			return apis.Config{}, ErrNegativeMaxMarkers
		}
		cfg.MaxMarkers = raw.MaxMarkers
	}
	if meta.IsDefined("log_level") {
		level := strings.ToLower(strings.TrimSpace(raw.LogLevel))
		if _, err := zapcore.ParseLevel(level); err != nil {
			return apis.Config{}, fmt.Errorf("capx(config): log_level: %w", err)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("development") {
		cfg.Development = raw.Development
	}
	if meta.IsDefined("metrics") {
		cfg.Metrics = raw.Metrics
	}
	return cfg, nil
}

// NewLogger builds a zap logger honoring LogLevel and Development.
// An empty LogLevel means DefaultLogLevel.
func NewLogger(cfg apis.Config) (*zap.Logger, error) {
	name := cfg.LogLevel
	if name == "" {
		name = DefaultLogLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("capx(config): %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// Leveled returns log with LogLevel-style filtering at level. Levels below
// what log already enables cannot be restored, so such a level, an empty one
// or an unknown one returns log unchanged.
func Leveled(log *zap.Logger, level string) *zap.Logger {
	if log == nil || level == "" {
		return log
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return log
	}
	return log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		ic, err := zapcore.NewIncreaseLevelCore(c, lvl)
		if err != nil {
			return c
		}
		return ic
	}))
}
