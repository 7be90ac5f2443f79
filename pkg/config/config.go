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

package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/downloader"
	"github.com/walteh/tgfeed/pkg/listing"
	"github.com/walteh/tgfeed/pkg/retry"
	"github.com/walteh/tgfeed/pkg/seen"
	"github.com/walteh/tgfeed/pkg/stream"
	"github.com/walteh/tgfeed/pkg/transport/httptransport"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

// 🗺️ parsers is a list of available parsers
var parsers []Parser

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📡 Source describes where products are published.
type Source struct {
	Preset            string  // named feed bundle, see Presets
	URL               string  // base URL of the file drop
	ListingPath       string  // listing location relative to URL
	Format            string  // listing parser name
	Archive           bool    // the listing is a zip holding the products
	UserAgent         string  // sent with every request
	RequestsPerSecond float64 // request throttle, negative disables
}

// 📚 Config represents the complete configuration
type Config struct {
	Source         Source
	Feeds          []Feed // empty means the single Source.ListingPath
	PollInterval   time.Duration
	Retry          retry.Policy
	SeenCapacity   int
	SeenWindow     time.Duration
	Concurrency    int
	MaxBodySize    int64
	Include        []string
	Exclude        []string
	IgnoreCase     bool
	UnwrapArchives bool
	UppercaseNames bool

	location string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Source: Source{
			Format:            stream.DefaultFormat,
			UserAgent:         httptransport.DefaultUserAgent,
			RequestsPerSecond: httptransport.DefaultRequestsPerSecond,
		},
		PollInterval: stream.DefaultPollInterval,
		Retry:        retry.DefaultPolicy(),
		SeenCapacity: seen.DefaultCapacity,
		SeenWindow:   seen.DefaultWindow,
		Concurrency:  1,
		MaxBodySize:  downloader.DefaultMaxSize,
	}
}

// 🎯 LoadConfig loads the configuration from a file. The format is picked
// by extension: .yaml/.yml, .json, .hcl or .toml.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Location returns the file the config was loaded from, if any.
func (cfg *Config) Location() string { return cfg.location }

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if cfg.Source.URL != "" {
		u, err := url.Parse(cfg.Source.URL)
		if err != nil {
			return errors.Errorf("source.url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Errorf("source.url must be http or https, got %q", cfg.Source.URL)
		}
	}
	if _, err := listing.Get(cfg.Source.Format); err != nil {
		return errors.Errorf("source.format: %w", err)
	}
	if cfg.Source.Archive && cfg.Source.Format != "zip" {
		return errors.Errorf("source.format must be zip for archive sources, got %q", cfg.Source.Format)
	}
	if err := cfg.validateFeeds(); err != nil {
		return err
	}
	if cfg.PollInterval <= 0 {
		return errors.Errorf("poll.interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.SeenCapacity <= 0 {
		return errors.Errorf("seen.capacity must be positive, got %d", cfg.SeenCapacity)
	}
	if cfg.Concurrency <= 0 {
		return errors.Errorf("download.concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.MaxBodySize <= 0 {
		return errors.Errorf("download.max_size must be positive, got %d", cfg.MaxBodySize)
	}

	policy := cfg.Retry
	if err := policy.Validate(); err != nil {
		return errors.Errorf("retry: %w", err)
	}

	if err := cfg.Filter().Validate(); err != nil {
		return errors.Errorf("filter: %w", err)
	}

	return nil
}

func (cfg *Config) validateFeeds() error {
	if len(cfg.Feeds) == 0 {
		return nil
	}
	if cfg.Source.ListingPath != "" {
		return errors.New("source.listing_path cannot be combined with feeds")
	}

	names := make(map[string]bool, len(cfg.Feeds))
	forever := false
	for i, f := range cfg.Feeds {
		switch {
		case f.Name == "":
			return errors.Errorf("feeds[%d]: name is required", i)
		case names[f.Name]:
			return errors.Errorf("feeds[%d]: duplicate name %q", i, f.Name)
		case f.PollInterval < 0:
			return errors.Errorf("feed %q: interval must not be negative, got %s", f.Name, f.PollInterval)
		case f.Cycles < 0:
			return errors.Errorf("feed %q: cycles must not be negative, got %d", f.Name, f.Cycles)
		}
		names[f.Name] = true
		forever = forever || f.Cycles == 0
	}
	if !forever {
		return errors.New("feeds: at least one feed must poll forever (cycles = 0)")
	}
	return nil
}

// 📰 FeedList returns the listings to poll. Without configured feeds it is
// the single unnamed Source.ListingPath.
func (cfg *Config) FeedList() []Feed {
	if len(cfg.Feeds) > 0 {
		return cfg.Feeds
	}
	return []Feed{{ListingPath: cfg.Source.ListingPath}}
}

// Filter returns the include/exclude filter.
func (cfg *Config) Filter() listing.Filter {
	return listing.Filter{Include: cfg.Include, Exclude: cfg.Exclude, IgnoreCase: cfg.IgnoreCase}
}

// 🌊 StreamOptions converts the config into stream options.
func (cfg *Config) StreamOptions() stream.Options {
	return stream.Options{
		PollInterval: cfg.PollInterval,
		Retry:        cfg.Retry,
		Seen: seen.Options{
			Capacity: cfg.SeenCapacity,
			Window:   cfg.SeenWindow,
		},
		Concurrency: cfg.Concurrency,
		Format:      cfg.Source.Format,
		Filter:      cfg.Filter(),
		Download: downloader.Options{
			MaxSize:        cfg.MaxBodySize,
			UnwrapArchives: cfg.UnwrapArchives,
			UppercaseNames: cfg.UppercaseNames,
		},
	}
}

// 📡 TransportOptions converts the source settings into HTTP transport
// options.
func (cfg *Config) TransportOptions() httptransport.Options {
	return httptransport.Options{
		BaseURL:           cfg.Source.URL,
		ListingPath:       cfg.Source.ListingPath,
		UserAgent:         cfg.Source.UserAgent,
		MaxBodySize:       cfg.MaxBodySize,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	src := cfg.Source.URL
	if cfg.Source.Preset != "" {
		src = cfg.Source.Preset + " preset " + src
	}
	if len(cfg.Feeds) > 0 {
		names := make([]string, len(cfg.Feeds))
		for i, f := range cfg.Feeds {
			names[i] = f.Name
		}
		return fmt.Sprintf("%s (%s) feeds %s", src, cfg.Source.Format, strings.Join(names, ", "))
	}
	if cfg.Source.ListingPath != "" {
		src += " " + cfg.Source.ListingPath
	}
	return fmt.Sprintf("%s (%s) every %s", src, cfg.Source.Format, cfg.PollInterval)
}
