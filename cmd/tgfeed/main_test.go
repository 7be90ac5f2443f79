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

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tgfeed/pkg/transport/archive"
)

func newDropServer(t *testing.T, files map[string]string, order []string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/drop/", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[len("/drop/"):]
		if name == "" {
			for _, n := range order {
				_, _ = w.Write([]byte(n + "\n"))
			}
			return
		}
		body, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tgfeed.yaml")
	cfg := "source:\n  format: text\n  requests_per_second: -1\nretry:\n  base_delay: 10ms\n  max_delay: 50ms\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// writeFeedsConfig writes a two-feed config; extra is appended to the feeds
// list.
func writeFeedsConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tgfeed.yaml")
	cfg := `source:
  format: text
  requests_per_second: -1
feeds:
  - name: live
    listing_path: live.txt
  - name: backlog
    listing_path: backlog.txt
    cycles: 1
` + extra + `retry:
  base_delay: 10ms
  max_delay: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestPresetSources(t *testing.T) {
	o := &rootOpts{preset: "text"}
	cfg, err := o.loadConfig(context.Background())
	require.NoError(t, err, "a preset needs no --url")

	sources, err := newSources(cfg)
	require.NoError(t, err, "building sources should succeed")

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
		assert.IsType(t, &archive.Transport{}, src.Transport, "%s listings are archives", src.Name)
	}
	assert.Equal(t, []string{"txtmin02", "txtmin06", "txtmin20", "txthrs03"}, names, "sources should follow the preset order")
	assert.Equal(t, 47*time.Second, sources[0].PollInterval, "txtmin02 interval should match")
	assert.Equal(t, 3, sources[1].Cycles, "txtmin06 retires after three polls")
	assert.True(t, cfg.UppercaseNames, "preset should uppercase names")

	o = &rootOpts{preset: "image", url: "https://mirror.example.org/emwin/"}
	cfg, err = o.loadConfig(context.Background())
	require.NoError(t, err, "loading should succeed")
	assert.Equal(t, "https://mirror.example.org/emwin/", cfg.Source.URL, "--url overrides the preset url")
	assert.Len(t, cfg.FeedList(), 2, "image preset has two feeds")
}

func TestCommands(t *testing.T) {
	srv := newDropServer(t, map[string]string{
		"A.TXT":       "alpha",
		"B.TXT":       "bravo",
		"live.txt":    "A.TXT\n",
		"backlog.txt": "B.TXT\nA.TXT\n",
		"quiet.txt":   "# nothing yet\n",
	}, []string{"A.TXT", "B.TXT"})

	tests := []struct {
		name        string
		args        func(t *testing.T) []string
		errContains string
		check       func(t *testing.T, args []string, out string)
	}{
		{
			name: "watch_saves_products",
			args: func(t *testing.T) []string {
				return []string{"watch", "--config", writeTestConfig(t), "--url", srv.URL + "/drop/", "--output", t.TempDir(), "--limit", "2"}
			},
			check: func(t *testing.T, args []string, out string) {
				dir := args[6]
				for name, want := range map[string]string{"A.TXT": "alpha", "B.TXT": "bravo"} {
					got, err := os.ReadFile(filepath.Join(dir, name))
					require.NoError(t, err, "%s should be saved", name)
					assert.Equal(t, want, string(got), "%s content should match", name)
				}
				assert.Contains(t, out, "A.TXT", "console should show the first product")
				assert.Contains(t, out, "2 delivered", "console should summarize")
			},
		},
		{
			name: "watch_feeds_share_seen_products",
			args: func(t *testing.T) []string {
				return []string{"watch", "--config", writeFeedsConfig(t, ""), "--url", srv.URL + "/drop/", "--output", t.TempDir(), "--limit", "2"}
			},
			check: func(t *testing.T, args []string, out string) {
				dir := args[6]
				for name, want := range map[string]string{"A.TXT": "alpha", "B.TXT": "bravo"} {
					got, err := os.ReadFile(filepath.Join(dir, name))
					require.NoError(t, err, "%s should be saved", name)
					assert.Equal(t, want, string(got), "%s content should match", name)
				}
				assert.Contains(t, out, "feeds live, backlog", "console should name the feeds")
				assert.Contains(t, out, "2 delivered", "A.TXT listed by both feeds is delivered once")
			},
		},
		{
			name: "list_feeds",
			args: func(t *testing.T) []string {
				return []string{"list", "--config", writeFeedsConfig(t, "  - name: quiet\n    listing_path: quiet.txt\n"), "--url", srv.URL + "/drop/"}
			},
			check: func(t *testing.T, args []string, out string) {
				assert.Contains(t, out, "feeds live, backlog, quiet", "header should name the feeds")
				assert.Contains(t, out, "quiet is empty", "empty feeds should be flagged")
				assert.Contains(t, out, "listing complete", "console should report success")
			},
		},
		{
			name: "list_feed_failure",
			args: func(t *testing.T) []string {
				return []string{"list", "--config", writeFeedsConfig(t, "  - name: gone\n    listing_path: gone.txt\n"), "--url", srv.URL + "/drop/"}
			},
			errContains: "1 of 3 listings failed",
		},
		{
			name: "unknown_preset",
			args: func(t *testing.T) []string {
				return []string{"list", "--source", "radar"}
			},
			errContains: "unknown source preset",
		},
		{
			name: "list",
			args: func(t *testing.T) []string {
				return []string{"list", "--config", writeTestConfig(t), "--url", srv.URL + "/drop/"}
			},
			check: func(t *testing.T, args []string, out string) {
				assert.Contains(t, out, "listing "+srv.URL+"/drop/ (text)", "console should name the source")
			},
		},
		{
			name: "missing_url",
			args: func(t *testing.T) []string {
				return []string{"list", "--config", writeTestConfig(t)}
			},
			errContains: "no source URL",
		},
		{
			name: "bad_format_flag",
			args: func(t *testing.T) []string {
				return []string{"list", "--url", srv.URL + "/drop/", "--format", "gopher"}
			},
			errContains: "source.format",
		},
		{
			name: "version",
			args: func(t *testing.T) []string {
				return []string{"version"}
			},
			check: func(t *testing.T, args []string, out string) {
				assert.Contains(t, out, "tgfeed version info", "version should be printed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			args := tt.args(t)
			buf := &bytes.Buffer{}
			cmd := newRootCmd()
			cmd.SetOut(buf)
			cmd.SetArgs(args)

			err := cmd.ExecuteContext(ctx)
			if tt.errContains != "" {
				require.Error(t, err, "command should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should explain the failure")
				return
			}

			require.NoError(t, err, "command should succeed")
			if tt.check != nil {
				tt.check(t, args, buf.String())
			}
		})
	}
}
