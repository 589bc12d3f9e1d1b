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
	"sync/atomic"

	"go.uber.org/zap"
)

var pkgLogger atomic.Pointer[zap.Logger]

func init() {
	pkgLogger.Store(zap.NewNop())
}

// Logger returns the package logger used by registries built without
// WithLogger and by coercions on registries that expose no logger.
func Logger() *zap.Logger {
	return pkgLogger.Load()
}

// SetLogger replaces the package logger. Nil restores the no-op logger.
func SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	pkgLogger.Store(log)
}
