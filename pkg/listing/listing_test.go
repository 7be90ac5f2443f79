package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🔧 want is a compact expected entry; negative size means unknown.
type want struct {
	name     string
	size     int64
	modified string
}

func sizeOf(n int64) *int64 { return &n }

func assertEntries(t *testing.T, expected []want, got []Entry) {
	t.Helper()
	require.Len(t, got, len(expected), "entry count should match")
	for i, w := range expected {
		assert.Equal(t, w.name, got[i].Filename, "entry %d name", i)
		if w.size < 0 {
			assert.Nil(t, got[i].Size, "entry %d size should be unknown", i)
		} else if assert.NotNil(t, got[i].Size, "entry %d size should be known", i) {
			assert.Equal(t, w.size, *got[i].Size, "entry %d size", i)
		}
		if w.modified == "" {
			assert.Nil(t, got[i].Modified, "entry %d time should be unknown", i)
		} else if assert.NotNil(t, got[i].Modified, "entry %d time should be known", i) {
			ts, err := time.Parse(time.RFC3339, w.modified)
			require.NoError(t, err)
			assert.True(t, ts.Equal(*got[i].Modified), "entry %d time: want %s, got %s", i, ts, got[i].Modified)
		}
	}
}

func TestParsers(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		raw         string
		want        []want
		errContains string
		errLine     int
	}{
		{
			name:   "text_all_columns",
			format: "text",
			raw:    "# drop listing\na.txt\n\nb.txt 12\nc.txt 3 2026-10-15T10:02:00Z\n",
			want: []want{
				{name: "a.txt", size: -1},
				{name: "b.txt", size: 12},
				{name: "c.txt", size: 3, modified: "2026-10-15T10:02:00Z"},
			},
		},
		{
			name:   "text_empty",
			format: "text",
			raw:    "",
			want:   []want{},
		},
		{name: "text_bad_size", format: "text", raw: "a.txt\nb.txt many\n", errContains: "bad size", errLine: 2},
		{name: "text_negative_size", format: "text", raw: "a.txt -4\n", errContains: "bad size", errLine: 1},
		{name: "text_bad_time", format: "text", raw: "a.txt 1 yesterday\n", errContains: "bad modification time", errLine: 1},
		{name: "text_too_many_fields", format: "text", raw: "a b c d\n", errContains: "too many fields", errLine: 1},
		{name: "text_duplicate", format: "text", raw: "a.txt\na.txt\n", errContains: "duplicate entry", errLine: 2},
		{name: "text_path", format: "text", raw: "../etc/passwd\n", errContains: "path separator", errLine: 1},
		{
			name:   "json",
			format: "json",
			raw:    `[{"name":"a.txt","size":5,"modified":"2026-10-15T10:02:00Z"},{"name":"b.txt"}]`,
			want: []want{
				{name: "a.txt", size: 5, modified: "2026-10-15T10:02:00Z"},
				{name: "b.txt", size: -1},
			},
		},
		{name: "json_empty_array", format: "json", raw: `[]`, want: []want{}},
		{name: "json_null", format: "json", raw: `null`, errContains: "expected an array"},
		{name: "json_object", format: "json", raw: `{"name":"a.txt"}`, errContains: "decoding"},
		{name: "json_unknown_field", format: "json", raw: `[{"name":"a.txt","owner":"root"}]`, errContains: "decoding"},
		{name: "json_trailing", format: "json", raw: `[] []`, errContains: "trailing data"},
		{name: "json_negative_size", format: "json", raw: `[{"name":"a.txt","size":-1}]`, errContains: "negative size", errLine: 1},
		{name: "json_empty_name", format: "json", raw: `[{"name":"a.txt"},{"name":""}]`, errContains: "empty filename", errLine: 2},
		{
			name:   "html_apache",
			format: "html",
			raw: `<html><head><title>Index of /drop</title></head><body>
<h1>Index of /drop</h1><pre><a href="?C=N;O=D">Name</a>  <a href="?C=M;O=A">Last modified</a>  <a href="?C=S;O=A">Size</a><hr><a href="/">Parent Directory</a>                             -
<a href="a.txt">a.txt</a>               15-Oct-2026 10:02  1.2K
<a href="sub/">sub/</a>                 15-Oct-2026 10:03    -
<a href="b%20c.txt">b c.txt</a>         15-Oct-2026 10:04  345
<a href="d.txt">d.txt</a>               15-Oct-2026 10:05    -
</pre><hr></body></html>`,
			want: []want{
				{name: "a.txt", size: 1228, modified: "2026-10-15T10:02:00Z"},
				{name: "b c.txt", size: 345, modified: "2026-10-15T10:04:00Z"},
				{name: "d.txt", size: -1, modified: "2026-10-15T10:05:00Z"},
			},
		},
		{
			name:   "html_table",
			format: "html",
			raw: `<table>
<tr><th>Name</th><th>Modified</th><th>Size</th></tr>
<tr><td><a href="../">Parent</a></td><td></td><td>-</td></tr>
<tr><td><a href="x.txt">x.txt</a></td><td>2026-10-15 10:02</td><td>12</td></tr>
<tr><td><a href="https://example.org/y.txt">elsewhere</a></td><td></td><td></td></tr>
<tr><td><a href="./z.txt?download=1">z.txt</a></td></tr>
</table>`,
			want: []want{
				{name: "x.txt", size: 12, modified: "2026-10-15T10:02:00Z"},
				{name: "z.txt", size: -1},
			},
		},
		{name: "html_no_links", format: "html", raw: `<html><body><p>nothing here</p></body></html>`, want: []want{}},
		{name: "html_not_html", format: "html", raw: "just some text", errContains: "not an html document"},
		{name: "html_bad_date", format: "html", raw: `<pre><a href="a.txt">a.txt</a> 99-Foo-2026 10:02 1K</pre>`, errContains: "bad timestamp", errLine: 1},
		{name: "html_duplicate", format: "html", raw: `<pre><a href="a.txt">a</a><a href="a.txt">again</a></pre>`, errContains: "duplicate entry", errLine: 2},
		{name: "html_bad_escape", format: "html", raw: `<pre><a href="a%zz.txt">a</a></pre>`, errContains: "bad link", errLine: 1},
		{
			name:        "html_truncated_mid_row",
			format:      "html",
			raw:         "<html><body><pre><a href=\"a.txt\">a.txt</a>  15-Oct-2026 10:02  1.2K\n<a href=\"b.txt\">b.txt</a>  15-Oct-2026 10:0",
			errContains: "truncated document",
		},
		{
			name:        "html_truncated_mid_tag",
			format:      "html",
			raw:         "<html><body><pre><a href=\"a.txt\">a.txt</a>  15-Oct-2026 10:02  1.2K\n<a href=\"b.t",
			errContains: "truncated document",
		},
		{
			name:        "html_truncated_after_close",
			format:      "html",
			raw:         "<html><body><pre><a href=\"a.txt\">a.txt</a></pre><pre><a href=\"b.txt\">b.txt</a>",
			errContains: "truncated document",
		},
		{
			name:        "html_incomplete_time",
			format:      "html",
			raw:         "<pre><a href=\"a.txt\">a.txt</a>  15-Oct-2026 10:0</pre>",
			errContains: "incomplete timestamp",
			errLine:     1,
		},
		{
			name:        "html_date_without_time",
			format:      "html",
			raw:         "<table><tr><td><a href=\"a.txt\">a.txt</a></td><td>2026-10-15</td></tr></table>",
			errContains: "incomplete timestamp",
			errLine:     1,
		},
		{name: "zip_garbage", format: "zip", raw: "PK not really", errContains: "reading archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.format, []byte(tt.raw))
			if tt.errContains != "" {
				var perr *ParseError
				require.ErrorAs(t, err, &perr, "failure should be a ParseError")
				assert.Equal(t, tt.format, perr.Format, "format should be reported")
				assert.Equal(t, tt.errLine, perr.Line, "line should be reported")
				assert.Contains(t, err.Error(), tt.errContains, "error should explain the problem")
				assert.Nil(t, got, "no partial listing should be returned")
				return
			}

			require.NoError(t, err, "parse should succeed")
			require.NotNil(t, got, "an empty listing is not nil")
			assertEntries(t, tt.want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"html", "json", "text", "zip"}, Formats(), "built-in formats should be registered")

	p, err := Get("HTML")
	require.NoError(t, err, "lookup should ignore case")
	assert.Equal(t, "html", p.Name())

	_, err = Get("gopher")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options: html, json, text, zip", "error should list the options")

	_, err = Parse("gopher", nil)
	assert.Error(t, err, "parsing with an unknown format should fail")
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "plain", input: "A.TXT", ok: true},
		{name: "spaces", input: "b c.txt", ok: true},
		{name: "empty", input: ""},
		{name: "dot", input: "."},
		{name: "dotdot", input: ".."},
		{name: "slash", input: "a/b"},
		{name: "backslash", input: `a\b`},
		{name: "control", input: "a\x00b"},
		{name: "replacement", input: "a\ufffdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		{Filename: "AFDBOX.TXT"},
		{Filename: "RADAR.GIF"},
		{Filename: "zfpbox.txt"},
		{Filename: "TESTAAA.TXT", Size: sizeOf(1)},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "zero", filter: Filter{}, want: []string{"AFDBOX.TXT", "RADAR.GIF", "zfpbox.txt", "TESTAAA.TXT"}},
		{name: "include", filter: Filter{Include: []string{"*.TXT"}}, want: []string{"AFDBOX.TXT", "TESTAAA.TXT"}},
		{name: "include_ignore_case", filter: Filter{Include: []string{"*.TXT"}, IgnoreCase: true}, want: []string{"AFDBOX.TXT", "zfpbox.txt", "TESTAAA.TXT"}},
		{name: "exclude", filter: Filter{Exclude: []string{"TEST*"}}, want: []string{"AFDBOX.TXT", "RADAR.GIF", "zfpbox.txt"}},
		{name: "include_and_exclude", filter: Filter{Include: []string{"*.{TXT,GIF}"}, Exclude: []string{"TEST*", "*.GIF"}}, want: []string{"AFDBOX.TXT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.filter.Validate())
			var got []string
			for _, e := range tt.filter.Apply(entries) {
				got = append(got, e.Filename)
			}
			assert.Equal(t, tt.want, got, "filtered names should keep listing order")
		})
	}

	assert.Error(t, Filter{Include: []string{"["}}.Validate(), "unterminated class should be rejected")
}
