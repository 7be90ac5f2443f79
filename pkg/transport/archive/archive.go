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

// Package archive adapts a transport whose listing is a zip archive of the
// published files, the way the EMWIN gateway bundles recent products.
//
// FetchListing returns the archive bytes unchanged (parse them with the "zip"
// listing format) and FetchFile extracts members from the most recently
// fetched archive without another network round trip.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/transport"
)

// 📦 Transport serves files out of the latest listing archive.
type Transport struct {
	inner   transport.Transport
	maxSize int64

	mu      sync.RWMutex
	members map[string]*zip.File
}

// 🏭 New wraps inner. maxSize bounds a single extracted member; zero means
// no bound.
func New(inner transport.Transport, maxSize int64) *Transport {
	return &Transport{inner: inner, maxSize: maxSize}
}

// 📂 FetchListing fetches the archive from the inner transport and indexes its
// members. ErrNotModified keeps the previous index.
func (t *Transport) FetchListing(ctx context.Context) ([]byte, error) {
	raw, err := t.inner.FetchListing(ctx)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		// handed back as-is; the zip listing parser reports the format error
		return raw, nil
	}

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members[f.Name] = f
	}

	t.mu.Lock()
	t.members = members
	t.mu.Unlock()

	return raw, nil
}

// Forget passes through to the inner transport.
func (t *Transport) Forget() { transport.Forget(t.inner) }

// 📄 FetchFile extracts name from the current archive.
func (t *Transport) FetchFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	f, ok := t.members[name]
	t.mu.RUnlock()

	if !ok {
		return nil, &transport.Error{
			Op:   transport.OpFile,
			Name: name,
			Kind: transport.KindPermanent,
			Err:  errors.New("not present in current archive"),
		}
	}

	if t.maxSize > 0 && f.UncompressedSize64 > uint64(t.maxSize) {
		return nil, &transport.Error{
			Op:   transport.OpFile,
			Name: name,
			Kind: transport.KindPermanent,
			Err:  errors.Errorf("member is %d bytes, limit is %d", f.UncompressedSize64, t.maxSize),
		}
	}

	rc, err := f.Open()
	if err != nil {
		return nil, &transport.Error{Op: transport.OpFile, Name: name, Kind: transport.KindPermanent, Err: errors.Errorf("opening member: %w", err)}
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, &transport.Error{Op: transport.OpFile, Name: name, Kind: transport.KindPermanent, Err: errors.Errorf("reading member: %w", err)}
	}
	return body, nil
}

var (
	_ transport.Transport   = (*Transport)(nil)
	_ transport.Conditional = (*Transport)(nil)
)
