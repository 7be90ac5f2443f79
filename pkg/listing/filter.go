// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package listing

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Filter selects which listed files a stream cares about.
//
// An entry passes when it matches at least one Include pattern (or Include
// is empty) and matches no Exclude pattern. Patterns use doublestar syntax.
type Filter struct {
	Include    []string
	Exclude    []string
	IgnoreCase bool
}

// Validate checks every pattern.
func (f Filter) Validate() error {
	for _, p := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// IsZero reports whether the filter passes everything.
func (f Filter) IsZero() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Match reports whether name passes the filter.
func (f Filter) Match(name string) bool {
	if f.IgnoreCase {
		name = strings.ToLower(name)
	}

	if len(f.Include) > 0 && !f.matchAny(f.Include, name) {
		return false
	}
	return !f.matchAny(f.Exclude, name)
}

// Apply returns the entries that pass, in order.
func (f Filter) Apply(entries []Entry) []Entry {
	if f.IsZero() {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e.Filename) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if f.IgnoreCase {
			p = strings.ToLower(p)
		}
		// invalid patterns are rejected by Validate
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
