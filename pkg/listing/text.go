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
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"
)

func init() {
	Register(TextParser{})
}

// 📝 TextParser reads one entry per line:
//
//	NAME [SIZE [MODIFIED]]
//
// where SIZE is a byte count and MODIFIED is RFC 3339. Blank lines and lines
// starting with # are ignored.
type TextParser struct{}

func (TextParser) Name() string { return "text" }

func (TextParser) Parse(raw []byte) ([]Entry, error) {
	c := newCollector("text")

	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) > 3 {
			return nil, &ParseError{Format: "text", Line: line, Reason: "too many fields"}
		}

		e := Entry{Filename: fields[0]}
		if len(fields) > 1 {
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil || n < 0 {
				return nil, &ParseError{Format: "text", Line: line, Reason: "bad size", Err: err}
			}
			e.Size = &n
		}
		if len(fields) > 2 {
			ts, err := time.Parse(time.RFC3339, fields[2])
			if err != nil {
				return nil, &ParseError{Format: "text", Line: line, Reason: "bad modification time", Err: err}
			}
			e.Modified = &ts
		}

		if err := c.add(line, e); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Format: "text", Line: line + 1, Reason: "reading listing", Err: err}
	}

	return c.result(), nil
}
