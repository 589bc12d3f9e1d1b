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

// Package defect reports binding defects: every one is logged at Error and
// counted by kind before the caller panics with it.
package defect

import (
	"go.uber.org/zap"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/internal/metrics"
)

// Report logs err on log and counts it under its kind. A nil log only counts.
func Report(log *zap.Logger, err *apis.BindingError) {
	if log != nil {
		log.Error("binding defect",
			zap.String("kind", string(err.Kind)),
			zap.String("actual", err.Actual),
			zap.String("requested", err.Requested),
			zap.String("detail", err.Detail),
		)
	}
	metrics.BindingDefect(string(err.Kind))
}

// Panic reports err and panics with it.
func Panic(log *zap.Logger, err *apis.BindingError) {
	Report(log, err)
	panic(err)
}
