/*
Copyright 2025.

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

// Package plugins discovers optional extension files in a directory. Shipped
// hooks and templates register at compile time; this loader exists for
// deployments that build their own shared objects against this module.
package plugins

import (
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// LoadDir opens every .so file in dir (non-recursive, alphabetical) and
// extracts the named exported symbol. The result maps file stem to the
// symbol's value. Files that cannot be opened, lack the symbol, or carry a
// value of the wrong type are logged and skipped; discovery never aborts.
func LoadDir[T any](dir, symbol string, log zerolog.Logger) (map[string]T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	loaded := make(map[string]T, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		p, err := plugin.Open(path)
		if err != nil {
			log.Warn().Err(err).Str("plugin", path).Msg("skipping plugin: cannot open")
			continue
		}
		sym, err := p.Lookup(symbol)
		if err != nil {
			log.Warn().Err(err).Str("plugin", path).Msg("skipping plugin: symbol not found")
			continue
		}
		value, ok := symbolValue[T](sym)
		if !ok {
			log.Warn().Str("plugin", path).Str("symbol", symbol).Msg("skipping plugin: symbol has the wrong type")
			continue
		}
		loaded[strings.TrimSuffix(name, ".so")] = value
	}
	return loaded, nil
}

// symbolValue unwraps a looked-up symbol: exported variables arrive as a
// pointer to their type, exported functions as the function value itself.
func symbolValue[T any](sym plugin.Symbol) (T, bool) {
	if value, ok := sym.(T); ok {
		return value, true
	}
	if ptr, ok := sym.(*T); ok {
		return *ptr, true
	}
	var zero T
	return zero, false
}
