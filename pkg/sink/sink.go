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

// Package sink writes delivered products to disk.
package sink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/feed"
	"github.com/walteh/tgfeed/pkg/listing"
)

// 📊 Status represents the outcome of a save
type Status int

const (
	StatusWritten Status = iota
	StatusUnchanged
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// 📄 FileInfo contains metadata about a saved product
type FileInfo struct {
	Path     string // absolute path of the file
	Status   Status // what the last save did
	Size     int64  // file size in bytes
	Checksum string // sha256 of the content
}

// 💾 Directory saves products as files in one directory.
type Directory struct {
	dir string

	mu    sync.RWMutex
	files map[string]FileInfo
}

// 🏭 New creates a Directory, creating dir if needed.
func New(dir string) (*Directory, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("creating output directory: %w", err)
	}
	return &Directory{dir: dir, files: make(map[string]FileInfo)}, nil
}

// Dir returns the output directory.
func (d *Directory) Dir() string { return d.dir }

// 🔍 calculateChecksum generates a SHA-256 hash of the content
func calculateChecksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// 💾 Save writes p under its filename. A file already holding the same
// content is left alone.
func (d *Directory) Save(ctx context.Context, p feed.Product) (FileInfo, error) {
	name := p.Filename()
	if err := listing.ValidateFilename(name); err != nil {
		return FileInfo{}, errors.Errorf("refusing to save %q: %w", name, err)
	}

	path := filepath.Join(d.dir, name)
	info := FileInfo{
		Path:     path,
		Size:     int64(p.Size()),
		Checksum: calculateChecksum(p.Body()),
	}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, p.Body()) {
		info.Status = StatusUnchanged
	} else {
		if err := d.writeFileAtomic(path, p.Body()); err != nil {
			return FileInfo{}, err
		}
		info.Status = StatusWritten
	}

	d.mu.Lock()
	d.files[name] = info
	d.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Stringer("status", info.Status).
		Str("sha256", info.Checksum).
		Msg("saved product")

	return info, nil
}

// 📋 Files lists what this Directory saved, sorted by path.
func (d *Directory) Files() []FileInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]FileInfo, 0, len(d.files))
	for _, f := range d.files {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

// writeFileAtomic writes through a temp file in the same directory so a
// reader never sees a partial product.
func (d *Directory) writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(d.dir, ".tgfeed-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting file mode: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}
