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
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/tgfeed/pkg/feed"
)

// 🎨 Display configuration
const (
	eventIndent = 4  // spaces to indent event lines
	nameWidth   = 35 // width for the product filename
	typeWidth   = 15 // width for the mime type
	sizeWidth   = 10 // width for the humanized size
)

// 📡 WatchOperation describes a stream being watched
type WatchOperation struct {
	Source string // listing URL
	Format string // listing parser
	Stream string // stream id
	Output string // destination directory, empty when not saving
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	current   *WatchOperation
	delivered int
	failed    int
	bytes     int64
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context, along with its zerolog logger
// so that zerolog.Ctx works for every package below the CLI.
func NewContext(ctx context.Context, l *Logger) context.Context {
	ctx = l.zlog.WithContext(ctx)
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatEvent formats a stream event for display
func (l *Logger) formatEvent(ev feed.Event) string {
	indent := fmt.Sprintf("%*s", eventIndent, "")

	name := ev.Filename()
	if name == "" {
		name = "(listing)"
	}

	if p, ok := ev.Product(); ok {
		mime := p.MimeType()
		if mime == "" {
			mime = "-"
		}
		return fmt.Sprintf("%s%s %s %s %s",
			indent,
			color.New(color.FgGreen).Sprint("✓"),
			fmt.Sprintf("%-*s", nameWidth, name),
			color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", typeWidth, mime)),
			fmt.Sprintf("%*s", sizeWidth, humanize.Bytes(uint64(p.Size()))))
	}

	return fmt.Sprintf("%s%s %s %s",
		indent,
		color.New(color.FgRed).Sprint("✗"),
		fmt.Sprintf("%-*s", nameWidth, name),
		color.New(color.FgYellow).Sprint(ev.Err()))
}

// 📝 LogEvent logs a stream event
func (l *Logger) LogEvent(ctx context.Context, ev feed.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatEvent(ev))

	if p, ok := ev.Product(); ok {
		l.delivered++
		l.bytes += int64(p.Size())
		l.zlog.Info().
			Str("file", p.Filename()).
			Str("type", p.MimeType()).
			Int("size", p.Size()).
			Msg("product delivered")
		return
	}

	l.failed++
	l.zlog.Warn().
		Err(ev.Err()).
		Str("file", ev.Filename()).
		Msg("product failed")
}

// 📝 StartWatch starts a new watch operation
func (l *Logger) StartWatch(ctx context.Context, op WatchOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &op
	l.delivered, l.failed, l.bytes = 0, 0, 0

	fmt.Fprintf(l.console, "[watching %s]\n",
		color.New(color.FgCyan).Sprint(op.Source))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Format),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.Stream))

	l.zlog.Info().
		Str("source", op.Source).
		Str("format", op.Format).
		Str("stream", op.Stream).
		Str("output", op.Output).
		Msg("starting watch")
}

// 📝 EndWatch ends the current watch operation and prints a summary
func (l *Logger) EndWatch(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return
	}

	fmt.Fprintf(l.console, "%s %d delivered (%s), %d failed\n",
		color.New(color.Faint).Sprint("•"),
		l.delivered,
		humanize.Bytes(uint64(l.bytes)),
		l.failed)

	l.zlog.Info().
		Str("stream", l.current.Stream).
		Int("delivered", l.delivered).
		Int("failed", l.failed).
		Int64("bytes", l.bytes).
		Msg("watch complete")

	l.current = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("tgfeed")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
