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
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/walteh/tgfeed/pkg/listing"
)

// 📢 UserLogger provides user-friendly feedback about what a command did
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
}

// 🎨 SaveResult is the outcome of writing a product to disk
type SaveResult int

const (
	SaveWritten SaveResult = iota
	SaveUnchanged
	SaveError
)

// 🖼️ Save describes one product written by a sink
type Save struct {
	Result   SaveResult
	Path     string
	Size     int
	Checksum string
	Error    error
}

// 🎯 NewUserLogger creates a new user logger
func NewUserLogger(ctx context.Context) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
	}
}

// 📝 LogSave logs a saved product with appropriate emoji and formatting
func (u *UserLogger) LogSave(s Save) {
	name := filepath.Base(s.Path)

	var printer *pterm.PrefixPrinter
	var action string
	switch s.Result {
	case SaveWritten:
		action = "Saved"
		printer = pterm.Success.WithPrefix(pterm.Prefix{Text: "💾"})
	case SaveUnchanged:
		action = "Unchanged"
		printer = pterm.Debug.WithPrefix(pterm.Prefix{Text: "⏭️"})
	default:
		action = "Error saving"
		printer = pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"})
	}

	msg := fmt.Sprintf("%s %s", action, name)
	if s.Size > 0 {
		msg += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(s.Size)))
	}

	printer.Println(msg)
	if s.Error != nil {
		pterm.Error.Println(s.Error)
		u.log.Error().Err(s.Error).Str("path", s.Path).Msg(msg)
		return
	}
	u.log.Debug().Str("path", s.Path).Str("sha256", s.Checksum).Msg(msg)
}

// 📊 LogStateChange logs a change to the overall state
func (u *UserLogger) LogStateChange(description string) {
	printer := pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"})
	printer.Println(description)
	u.log.Info().Msg(description)
}

// 🔍 LogValidation logs validation results
func (u *UserLogger) LogValidation(valid bool, description string, err error) {
	if valid {
		pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).Println(description)
		u.log.Info().Msg(description)
		return
	}
	if err != nil {
		pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Println(description)
		pterm.Error.Println(err)
		u.log.Error().Err(err).Msg(description)
		return
	}
	pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).Println(description)
	u.log.Warn().Msg(description)
}

// 📋 ListingTable renders parsed listing entries as a table
func (u *UserLogger) ListingTable(entries []listing.Entry) error {
	data := pterm.TableData{{"Name", "Size", "Modified"}}
	for _, e := range entries {
		size, modified := "-", "-"
		if e.Size != nil {
			size = humanize.Bytes(uint64(*e.Size))
		}
		if e.Modified != nil {
			modified = e.Modified.UTC().Format("2006-01-02 15:04:05")
		}
		data = append(data, []string{e.Filename, size, modified})
	}

	u.log.Debug().Int("entries", len(entries)).Msg("rendering listing")
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
