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

// Package seen remembers which filenames a stream has already delivered.
//
// The remote namespace grows forever, so the set is bounded twice: by
// capacity (oldest entries evicted first) and by a time window after which
// an entry expires. A name that falls out of the set and is listed again
// will be delivered again; the window must be wider than the time the
// remote keeps a file listed.
package seen

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/listing"
)

const (
	// DefaultCapacity bounds the number of remembered names.
	DefaultCapacity = 100_000
	// DefaultWindow is how long a name is remembered after it was last
	// delivered or listed.
	DefaultWindow = 6 * time.Hour
)

// 🔧 Options configures a Set
type Options struct {
	Capacity int           // zero uses DefaultCapacity
	Window   time.Duration // zero uses DefaultWindow, negative disables expiry
	Now      func() time.Time
}

// 🧠 Set is a bounded, insertion-ordered set of filenames.
//
// Set is not safe for concurrent use; a stream driver is its only writer.
type Set struct {
	lru     *simplelru.LRU[string, time.Time]
	window  time.Duration
	now     func() time.Time
	evicted int
	expired int
	pruning bool
}

// 🏭 New creates a Set
func New(opts Options) (*Set, error) {
	if opts.Capacity < 0 {
		return nil, errors.Errorf("capacity must not be negative, got %d", opts.Capacity)
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Window == 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Set{window: opts.Window, now: opts.Now}

	l, err := simplelru.NewLRU[string, time.Time](opts.Capacity, func(string, time.Time) {
		if !s.pruning {
			s.evicted++
		}
	})
	if err != nil {
		return nil, errors.Errorf("creating lru: %w", err)
	}
	s.lru = l

	return s, nil
}

// Contains reports whether name is resident and not expired.
func (s *Set) Contains(name string) bool {
	at, ok := s.lru.Peek(name)
	return ok && !s.isExpired(at, s.now())
}

// 🔍 Diff returns the entries whose names are not in the set, in input order.
// It does not modify the set.
func (s *Set) Diff(entries []listing.Entry) []listing.Entry {
	now := s.now()
	out := make([]listing.Entry, 0, len(entries))
	for _, e := range entries {
		if at, ok := s.lru.Peek(e.Filename); ok && !s.isExpired(at, now) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ✅ Mark records name as delivered.
func (s *Set) Mark(name string) {
	s.Prune()
	s.lru.Add(name, s.now())
}

// 🔄 Refresh re-stamps resident names that are still being listed so they
// do not expire while the remote keeps them around. Names not in the set
// are ignored.
func (s *Set) Refresh(entries []listing.Entry) int {
	s.Prune()

	now := s.now()
	n := 0
	for _, e := range entries {
		if s.lru.Contains(e.Filename) {
			s.lru.Add(e.Filename, now)
			n++
		}
	}
	return n
}

// 🧹 Prune drops expired names, oldest first, and returns how many went.
func (s *Set) Prune() int {
	if s.window < 0 {
		return 0
	}

	s.pruning = true
	defer func() { s.pruning = false }()

	now := s.now()
	n := 0
	for {
		_, at, ok := s.lru.GetOldest()
		if !ok || !s.isExpired(at, now) {
			break
		}
		s.lru.RemoveOldest()
		n++
	}
	s.expired += n
	return n
}

// Len returns the number of resident names, expired or not.
func (s *Set) Len() int { return s.lru.Len() }

// 📊 Stats describes the set's eviction history
type Stats struct {
	Len     int
	Evicted int // dropped to stay within capacity
	Expired int // dropped after the window passed
}

// Stats returns the current counters.
func (s *Set) Stats() Stats {
	return Stats{Len: s.lru.Len(), Evicted: s.evicted, Expired: s.expired}
}

func (s *Set) isExpired(at, now time.Time) bool {
	return s.window > 0 && now.Sub(at) >= s.window
}
