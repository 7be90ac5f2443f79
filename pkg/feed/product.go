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

package feed

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// 📦 Product is one file retrieved from the feed.
//
// A Product is immutable once constructed. Body returns the underlying bytes
// without copying, so callers must not modify the returned slice.
type Product struct {
	filename string
	body     []byte
}

// 🏭 NewProduct creates a product from a filename and its contents
func NewProduct(filename string, body []byte) Product {
	return Product{filename: filename, body: body}
}

// Filename returns the name the product was published under.
func (p Product) Filename() string { return p.filename }

// Body returns the raw product contents.
func (p Product) Body() []byte { return p.body }

// Size returns the length of the body in bytes.
func (p Product) Size() int { return len(p.body) }

// 🏷️ MimeType returns the expected MIME type based on the filename extension,
// or an empty string when unknown.
func (p Product) MimeType() string {
	switch strings.ToUpper(filepath.Ext(p.filename)) {
	case ".TXT":
		return "text/plain"
	case ".GIF":
		return "image/gif"
	case ".JPG", ".JPEG":
		return "image/jpeg"
	case ".PNG":
		return "image/png"
	default:
		return ""
	}
}

// 📝 Text returns the body as a string and whether it was valid UTF-8.
// Invalid sequences are replaced with U+FFFD.
func (p Product) Text() (string, bool) {
	if utf8.Valid(p.body) {
		return string(p.body), true
	}
	return strings.ToValidUTF8(string(p.body), string(utf8.RuneError)), false
}

// String decodes the body lossily.
func (p Product) String() string {
	s, _ := p.Text()
	return s
}
