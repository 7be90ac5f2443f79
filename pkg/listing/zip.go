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
	"archive/zip"
	"bytes"
)

func init() {
	Register(ZipParser{})
}

// 📦 ZipParser lists the members of a zip archive in archive order.
type ZipParser struct{}

func (ZipParser) Name() string { return "zip" }

func (ZipParser) Parse(raw []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, &ParseError{Format: "zip", Reason: "reading archive", Err: err}
	}

	c := newCollector("zip")
	for i, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		size := int64(f.UncompressedSize64)
		if size < 0 {
			return nil, &ParseError{Format: "zip", Line: i + 1, Reason: "member size overflows"}
		}
		e := Entry{Filename: f.Name, Size: &size}
		if !f.Modified.IsZero() {
			mod := f.Modified
			e.Modified = &mod
		}
		if err := c.add(i+1, e); err != nil {
			return nil, err
		}
	}
	return c.result(), nil
}
