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
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"gitlab.com/tozd/go/errors"
)

// 📄 Entry is one file named by a remote listing.
type Entry struct {
	Filename string
	Size     *int64     // nil when the listing does not say
	Modified *time.Time // nil when the listing does not say
}

// ❌ ParseError reports a listing that could not be parsed in full.
type ParseError struct {
	Format string
	Line   int // 1-based line or item position, zero when unknown
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("listing: parsing %s", e.Format)
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// 🔌 Parser turns raw listing bytes into ordered entries.
//
// Parse must preserve the order the remote lists files in and must fail with
// a *ParseError rather than return a partial result.
type Parser interface {
	Name() string
	Parse(raw []byte) ([]Entry, error)
}

var (
	mu sync.RWMutex
	// 🗺️ parsers maps format names to parsers
	parsers = map[string]Parser{}
)

// 📝 Register registers a parser under its name
func Register(p Parser) {
	mu.Lock()
	defer mu.Unlock()
	parsers[p.Name()] = p
}

// 🎯 Get returns the parser for a format
func Get(format string) (Parser, error) {
	mu.RLock()
	defer mu.RUnlock()

	p, ok := parsers[strings.ToLower(format)]
	if !ok {
		return nil, errors.Errorf("listing format %q not found, options: %s", format, strings.Join(formatsLocked(), ", "))
	}
	return p, nil
}

// Formats lists the registered format names.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	return formatsLocked()
}

func formatsLocked() []string {
	out := make([]string, 0, len(parsers))
	for k := range parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parse parses raw with the named format.
func Parse(format string, raw []byte) ([]Entry, error) {
	p, err := Get(format)
	if err != nil {
		return nil, err
	}
	return p.Parse(raw)
}

// 🔍 ValidateFilename checks that name can be safely requested and stored.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return errors.New("empty filename")
	case name == "." || name == "..":
		return errors.Errorf("invalid filename %q", name)
	case strings.ContainsAny(name, `/\`):
		return errors.Errorf("filename %q contains a path separator", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return errors.Errorf("filename %q contains invalid characters", name)
		}
	}
	return nil
}

// collector accumulates entries, rejecting invalid and duplicate names.
type collector struct {
	format  string
	entries []Entry
	seen    map[string]struct{}
}

func newCollector(format string) *collector {
	return &collector{format: format, seen: map[string]struct{}{}}
}

func (c *collector) add(line int, e Entry) error {
	if err := ValidateFilename(e.Filename); err != nil {
		return &ParseError{Format: c.format, Line: line, Reason: "bad entry", Err: err}
	}
	if _, dup := c.seen[e.Filename]; dup {
		return &ParseError{Format: c.format, Line: line, Reason: fmt.Sprintf("duplicate entry %q", e.Filename)}
	}
	c.seen[e.Filename] = struct{}{}
	c.entries = append(c.entries, e)
	return nil
}

func (c *collector) result() []Entry {
	if c.entries == nil {
		return []Entry{}
	}
	return c.entries
}
