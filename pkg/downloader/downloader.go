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

// Package downloader turns listing entries into products.
package downloader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/feed"
	"github.com/walteh/tgfeed/pkg/listing"
	"github.com/walteh/tgfeed/pkg/retry"
	"github.com/walteh/tgfeed/pkg/transport"
)

// DefaultMaxSize bounds a single product.
const DefaultMaxSize int64 = 8 << 20

// maxNesting bounds how many zip layers are peeled off one product.
const maxNesting = 4

// ❌ Error is a failure to download one listed file.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("downloading %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Filename returns the listed name that failed.
func (e *Error) Filename() string { return e.Name }

// 🔧 Options configures a Downloader
type Options struct {
	// MaxSize rejects larger products; zero uses DefaultMaxSize.
	MaxSize int64
	// UnwrapArchives replaces a .zip product holding exactly one member with
	// that member.
	UnwrapArchives bool
	// UppercaseNames normalizes product filenames to upper case.
	UppercaseNames bool
}

// 📥 Downloader fetches entries through the retry controller's file class.
type Downloader struct {
	transport transport.Transport
	retry     *retry.Controller
	opts      Options
}

// 🏭 New creates a Downloader
func New(t transport.Transport, c *retry.Controller, opts Options) *Downloader {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	return &Downloader{transport: t, retry: c, opts: opts}
}

// 📥 Fetch downloads entry. Failures are returned as *Error, except for
// cancellation of ctx which is returned as is.
func (d *Downloader) Fetch(ctx context.Context, entry listing.Entry) (feed.Product, error) {
	logger := zerolog.Ctx(ctx).With().Str("file", entry.Filename).Logger()

	body, err := retry.Do(ctx, d.retry, retry.ClassFile, func(ctx context.Context) ([]byte, error) {
		return d.transport.FetchFile(ctx, entry.Filename)
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return feed.Product{}, cerr
		}
		return feed.Product{}, &Error{Name: entry.Filename, Err: err}
	}

	if int64(len(body)) > d.opts.MaxSize {
		return feed.Product{}, &Error{
			Name: entry.Filename,
			Err:  errors.Errorf("product is %d bytes, limit is %d", len(body), d.opts.MaxSize),
		}
	}

	name := entry.Filename
	if d.opts.UnwrapArchives {
		name, body, err = d.unwrap(name, body)
		if err != nil {
			return feed.Product{}, &Error{Name: entry.Filename, Err: err}
		}
	}

	if d.opts.UppercaseNames {
		name = strings.ToUpper(name)
	}

	logger.Debug().Int("bytes", len(body)).Str("product", name).Msg("downloaded")

	return feed.NewProduct(name, body), nil
}

// unwrap peels single-member zip archives off a product.
func (d *Downloader) unwrap(name string, body []byte) (string, []byte, error) {
	for depth := 0; depth < maxNesting && strings.EqualFold(path.Ext(name), ".zip"); depth++ {
		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return "", nil, errors.Errorf("reading archive %s: %w", name, err)
		}

		var members []*zip.File
		for _, f := range zr.File {
			if !f.FileInfo().IsDir() {
				members = append(members, f)
			}
		}
		if len(members) != 1 {
			return "", nil, errors.Errorf("archive %s holds %d members, want 1", name, len(members))
		}

		m := members[0]
		base := path.Base(m.Name)
		if err := listing.ValidateFilename(base); err != nil {
			return "", nil, errors.Errorf("archive %s member %q: %w", name, m.Name, err)
		}
		if m.UncompressedSize64 > uint64(d.opts.MaxSize) {
			return "", nil, errors.Errorf("member %s is %d bytes, limit is %d", m.Name, m.UncompressedSize64, d.opts.MaxSize)
		}

		rc, err := m.Open()
		if err != nil {
			return "", nil, errors.Errorf("opening member %s: %w", m.Name, err)
		}
		inner, err := io.ReadAll(io.LimitReader(rc, d.opts.MaxSize+1))
		rc.Close()
		if err != nil {
			return "", nil, errors.Errorf("reading member %s: %w", m.Name, err)
		}
		if int64(len(inner)) > d.opts.MaxSize {
			return "", nil, errors.Errorf("member %s exceeds %d bytes", m.Name, d.opts.MaxSize)
		}

		name, body = base, inner
	}

	return name, body, nil
}
