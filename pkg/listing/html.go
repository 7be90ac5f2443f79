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
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func init() {
	Register(HTMLParser{})
}

// 🌐 HTMLParser reads Apache and nginx style directory index pages.
//
// Every anchor whose href names a plain file becomes an entry. The text
// following the anchor on the same row may carry a timestamp and a size:
//
//	<a href="a.txt">a.txt</a>   15-Oct-2026 10:02  1.2K
//	<td><a href="a.txt">a.txt</a></td><td>2026-10-15 10:02</td><td>345</td>
type HTMLParser struct{}

func (HTMLParser) Name() string { return "html" }

var (
	// timestamp layouts used by common autoindex modules, matched loosely so
	// a mangled date is reported rather than skipped
	dateDMY = regexp.MustCompile(`\b(\d{1,2}-[A-Za-z]{3,}-\d{4} \d{1,2}:\d{2}(?::\d{2})?)\b`)
	dateISO = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2} \d{1,2}:\d{2}(?::\d{2})?)\b`)
	sizeTok = regexp.MustCompile(`^(?:-|\d+(?:\.\d+)?[KMGTP]?)$`)
	// a date with no usable time next to it, e.g. a row cut off mid-stamp
	datePart = regexp.MustCompile(`\b(?:\d{1,2}-[A-Za-z]{3,}-\d{4}|\d{4}-\d{2}-\d{2})\b`)
)

var dateLayouts = []string{
	"02-Jan-2006 15:04",
	"02-Jan-2006 15:04:05",
	"2-Jan-2006 15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

type htmlRow struct {
	href string
	tail strings.Builder
}

func (HTMLParser) Parse(raw []byte) ([]Entry, error) {
	z := html.NewTokenizer(bytes.NewReader(raw))

	var (
		rows    []*htmlRow
		current *htmlRow
		tags    int
		inLink  bool
		// a container was closed after the last link; a page cut off in
		// transit never gets this far
		closed bool
	)

loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, &ParseError{Format: "html", Reason: "tokenizing", Err: err}
			}
			break loop

		case html.StartTagToken, html.SelfClosingTagToken:
			tags++
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.A:
				current = nil
				inLink = true
				closed = false
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						current = &htmlRow{href: string(val)}
					}
				}
				if current != nil {
					rows = append(rows, current)
				}
			case atom.Tr, atom.Pre, atom.Table, atom.Body:
				current = nil
			}

		case html.EndTagToken:
			tags++
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.A:
				inLink = false
			case atom.Tr:
				current = nil
			case atom.Pre, atom.Table, atom.Body, atom.Html:
				current = nil
				closed = true
			}

		case html.TextToken:
			if current != nil && !inLink {
				current.tail.Write(z.Text())
				current.tail.WriteByte(' ')
			}
		}
	}

	if tags == 0 {
		return nil, &ParseError{Format: "html", Reason: "not an html document"}
	}
	if !closed {
		return nil, &ParseError{Format: "html", Reason: "truncated document: no closing </pre>, </table> or </body> after the last link"}
	}

	c := newCollector("html")
	for i, row := range rows {
		name, ok, err := fileFromHref(row.href)
		if err != nil {
			return nil, &ParseError{Format: "html", Line: i + 1, Reason: "bad link", Err: err}
		}
		if !ok {
			continue
		}

		e := Entry{Filename: name}
		if err := parseRowTail(row.tail.String(), &e); err != nil {
			err.Line = i + 1
			return nil, err
		}
		if err := c.add(i+1, e); err != nil {
			return nil, err
		}
	}

	return c.result(), nil
}

// fileFromHref returns the file an index link points at, or false for sort
// links, parent links, subdirectories and off-site links.
func fileFromHref(href string) (string, bool, error) {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "?") ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "/") ||
		strings.HasSuffix(href, "/") ||
		strings.Contains(href, "://") ||
		strings.HasPrefix(href, "mailto:") {
		return "", false, nil
	}

	href = strings.TrimPrefix(href, "./")
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if strings.Contains(href, "/") {
		return "", false, nil
	}

	name, err := url.PathUnescape(href)
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func parseRowTail(tail string, e *Entry) *ParseError {
	tail = strings.Join(strings.Fields(tail), " ")
	if tail == "" {
		return nil
	}

	m := dateDMY.FindStringSubmatchIndex(tail)
	if m == nil {
		m = dateISO.FindStringSubmatchIndex(tail)
	}
	if m == nil {
		if frag := datePart.FindString(tail); frag != "" {
			return &ParseError{Format: "html", Reason: "incomplete timestamp after " + frag}
		}
		return nil
	}

	stamp := tail[m[2]:m[3]]
	ts, ok := parseStamp(stamp)
	if !ok {
		return &ParseError{Format: "html", Reason: "bad timestamp " + stamp}
	}
	e.Modified = &ts

	rest := strings.Fields(tail[m[3]:])
	if len(rest) == 0 {
		return nil
	}
	size := rest[0]
	if !sizeTok.MatchString(size) {
		return nil
	}
	if size == "-" {
		return nil
	}
	// autoindex sizes are binary multiples
	if last := size[len(size)-1]; last < '0' || last > '9' {
		size += "i"
	}
	n, err := humanize.ParseBytes(size)
	if err != nil {
		return &ParseError{Format: "html", Reason: "bad size " + rest[0], Err: err}
	}
	v := int64(n)
	e.Size = &v
	return nil
}

func parseStamp(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
