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

package log

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/downloader"
	"github.com/walteh/tgfeed/pkg/feed"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_delivered_event",
			op: func(t *testing.T, logger *Logger) {
				logger.LogEvent(context.Background(), feed.Delivered(feed.NewProduct("A.TXT", make([]byte, 1200))))
			},
			wantLogs: []string{
				"✓ A.TXT                               text/plain          1.2 kB",
			},
		},
		{
			name: "log_watch",
			op: func(t *testing.T, logger *Logger) {
				logger.StartWatch(context.Background(), WatchOperation{
					Source: "https://example.org/drop/",
					Format: "html",
					Stream: "abc",
				})
				logger.LogEvent(context.Background(), feed.Delivered(feed.NewProduct("A.TXT", make([]byte, 1200))))
				logger.LogEvent(context.Background(), feed.Failed(errors.New("boom")))
				logger.EndWatch(context.Background())
			},
			wantLogs: []string{
				"[watching https://example.org/drop/]",
				"◆ html • abc",
				"✓ A.TXT                               text/plain          1.2 kB",
				"✗ (listing)                           boom",
				"• 1 delivered (1.2 kB), 1 failed",
			},
		},
		{
			name: "end_without_start",
			op: func(t *testing.T, logger *Logger) {
				logger.EndWatch(context.Background())
				logger.Info("still here")
			},
			wantLogs: []string{
				"ℹ️  still here",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("watching for products")
			},
			wantLogs: []string{
				"tgfeed • watching for products",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create buffer for console output
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.Disabled)

			// Perform operation
			tt.op(t, logger)

			// Check output
			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), logger)

	got := FromContext(ctx)
	assert.Same(t, logger, got, "logger from context should be the same instance")
	assert.Equal(t, zerolog.InfoLevel, zerolog.Ctx(ctx).GetLevel(), "zerolog logger should ride along")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestEventFormatting(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name string
		ev   feed.Event
		want string
	}{
		{
			name: "delivered_text",
			ev:   feed.Delivered(feed.NewProduct("A.TXT", make([]byte, 1200))),
			want: "    ✓ A.TXT                               text/plain          1.2 kB",
		},
		{
			name: "delivered_unknown_type",
			ev:   feed.Delivered(feed.NewProduct("X.BIN", []byte("abc"))),
			want: "    ✓ X.BIN                               -                      3 B",
		},
		{
			name: "failed_download",
			ev:   feed.Failed(&downloader.Error{Name: "B.TXT", Err: errors.Base("boom")}),
			want: "    ✗ B.TXT                               downloading B.TXT: boom",
		},
		{
			name: "failed_listing",
			ev:   feed.Failed(errors.Base("boom")),
			want: "    ✗ (listing)                           boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(io.Discard, zerolog.Disabled)
			assert.Equal(t, tt.want, logger.formatEvent(tt.ev), "formatted output should match")
		})
	}
}
