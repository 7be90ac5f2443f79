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
	"bytes"
	"encoding/json"
	"io"
	"time"
)

func init() {
	Register(JSONParser{})
}

// 🔧 JSONParser reads an array of {"name","size","modified"} objects.
type JSONParser struct{}

func (JSONParser) Name() string { return "json" }

type jsonEntry struct {
	Name     string     `json:"name"`
	Size     *int64     `json:"size,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
}

func (JSONParser) Parse(raw []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var items []jsonEntry
	if err := dec.Decode(&items); err != nil {
		return nil, &ParseError{Format: "json", Reason: "decoding", Err: err}
	}
	if items == nil {
		return nil, &ParseError{Format: "json", Reason: "expected an array"}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Format: "json", Reason: "trailing data after array"}
	}

	c := newCollector("json")
	for i, it := range items {
		if it.Size != nil && *it.Size < 0 {
			return nil, &ParseError{Format: "json", Line: i + 1, Reason: "negative size"}
		}
		if err := c.add(i+1, Entry{Filename: it.Name, Size: it.Size, Modified: it.Modified}); err != nil {
			return nil, err
		}
	}
	return c.result(), nil
}
