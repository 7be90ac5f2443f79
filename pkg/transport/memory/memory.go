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

// Package memory provides an in-memory Transport whose listing, files and
// failures can be scripted. It backs the stream tests and local demos.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/walteh/tgfeed/pkg/transport"
)

// 💾 Transport serves a mutable set of files and renders its listing in the
// "text" listing format, one filename per line, in publication order.
type Transport struct {
	mu sync.Mutex

	order []string
	files map[string][]byte

	listingFailures []error
	fileFailures    map[string][]error

	listingCalls int
	fileCalls    map[string]int
}

// 🏭 New creates an empty transport
func New() *Transport {
	return &Transport{
		files:        make(map[string][]byte),
		fileFailures: make(map[string][]error),
		fileCalls:    make(map[string]int),
	}
}

// 📝 Publish adds or replaces a file. New names are appended to the listing.
func (t *Transport) Publish(name string, body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.files[name]; !ok {
		t.order = append(t.order, name)
	}
	t.files[name] = body
}

// 🗑️ Unpublish removes a file from the listing.
func (t *Transport) Unpublish(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.files, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// FailListing queues errors returned by the next FetchListing calls, in order.
func (t *Transport) FailListing(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listingFailures = append(t.listingFailures, errs...)
}

// FailFile queues errors returned by the next FetchFile calls for name.
func (t *Transport) FailFile(name string, errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileFailures[name] = append(t.fileFailures[name], errs...)
}

// ListingCalls returns how many times FetchListing was invoked.
func (t *Transport) ListingCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listingCalls
}

// FileCalls returns how many times FetchFile was invoked for name.
func (t *Transport) FileCalls(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fileCalls[name]
}

func (t *Transport) FetchListing(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.listingCalls++
	if len(t.listingFailures) > 0 {
		err := t.listingFailures[0]
		t.listingFailures = t.listingFailures[1:]
		return nil, err
	}

	var b strings.Builder
	for _, name := range t.order {
		fmt.Fprintf(&b, "%s %d\n", name, len(t.files[name]))
	}
	return []byte(b.String()), nil
}

func (t *Transport) FetchFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.fileCalls[name]++
	if q := t.fileFailures[name]; len(q) > 0 {
		t.fileFailures[name] = q[1:]
		return nil, q[0]
	}

	body, ok := t.files[name]
	if !ok {
		return nil, transport.NewStatusError(transport.OpFile, name, 404)
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

var _ transport.Transport = (*Transport)(nil)
