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
	"time"

	"github.com/dustin/go-humanize"
	"gitlab.com/tozd/go/errors"
)

// fileConfig is the on-disk shape shared by every format. Unset fields keep
// their defaults, so everything is optional.
type fileConfig struct {
	Source   *sourceBlock   `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty" hcl:"source,block"`
	Poll     *pollBlock     `json:"poll,omitempty" yaml:"poll,omitempty" toml:"poll,omitempty" hcl:"poll,block"`
	Retry    *retryBlock    `json:"retry,omitempty" yaml:"retry,omitempty" toml:"retry,omitempty" hcl:"retry,block"`
	Seen     *seenBlock     `json:"seen,omitempty" yaml:"seen,omitempty" toml:"seen,omitempty" hcl:"seen,block"`
	Download *downloadBlock `json:"download,omitempty" yaml:"download,omitempty" toml:"download,omitempty" hcl:"download,block"`
	Filter   *filterBlock   `json:"filter,omitempty" yaml:"filter,omitempty" toml:"filter,omitempty" hcl:"filter,block"`
	Feeds    []feedBlock    `json:"feeds,omitempty" yaml:"feeds,omitempty" toml:"feeds,omitempty" hcl:"feed,block"`
}

type sourceBlock struct {
	Preset            string   `json:"preset,omitempty" yaml:"preset,omitempty" toml:"preset,omitempty" hcl:"preset,optional"`
	URL               string   `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty" hcl:"url,optional"`
	ListingPath       string   `json:"listing_path,omitempty" yaml:"listing_path,omitempty" toml:"listing_path,omitempty" hcl:"listing_path,optional"`
	Format            string   `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty" hcl:"format,optional"`
	Archive           *bool    `json:"archive,omitempty" yaml:"archive,omitempty" toml:"archive,omitempty" hcl:"archive,optional"`
	UserAgent         string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty" toml:"user_agent,omitempty" hcl:"user_agent,optional"`
	RequestsPerSecond *float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty" hcl:"requests_per_second,optional"`
}

// feedBlock is a `feeds` list entry, or a labelled `feed "name" {}` block in
// HCL.
type feedBlock struct {
	Name        string `json:"name" yaml:"name" toml:"name" hcl:"name,label"`
	ListingPath string `json:"listing_path" yaml:"listing_path" toml:"listing_path" hcl:"listing_path"`
	Interval    string `json:"interval,omitempty" yaml:"interval,omitempty" toml:"interval,omitempty" hcl:"interval,optional"`
	Cycles      *int   `json:"cycles,omitempty" yaml:"cycles,omitempty" toml:"cycles,omitempty" hcl:"cycles,optional"`
}

type pollBlock struct {
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty" toml:"interval,omitempty" hcl:"interval,optional"`
}

type retryBlock struct {
	BaseDelay      string   `json:"base_delay,omitempty" yaml:"base_delay,omitempty" toml:"base_delay,omitempty" hcl:"base_delay,optional"`
	MaxDelay       string   `json:"max_delay,omitempty" yaml:"max_delay,omitempty" toml:"max_delay,omitempty" hcl:"max_delay,optional"`
	Multiplier     *float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty" toml:"multiplier,omitempty" hcl:"multiplier,optional"`
	Jitter         *float64 `json:"jitter,omitempty" yaml:"jitter,omitempty" toml:"jitter,omitempty" hcl:"jitter,optional"`
	AttemptTimeout string   `json:"attempt_timeout,omitempty" yaml:"attempt_timeout,omitempty" toml:"attempt_timeout,omitempty" hcl:"attempt_timeout,optional"`
	MaxAttempts    *int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" toml:"max_attempts,omitempty" hcl:"max_attempts,optional"`
}

type seenBlock struct {
	Capacity *int   `json:"capacity,omitempty" yaml:"capacity,omitempty" toml:"capacity,omitempty" hcl:"capacity,optional"`
	Window   string `json:"window,omitempty" yaml:"window,omitempty" toml:"window,omitempty" hcl:"window,optional"`
}

type downloadBlock struct {
	Concurrency    *int   `json:"concurrency,omitempty" yaml:"concurrency,omitempty" toml:"concurrency,omitempty" hcl:"concurrency,optional"`
	MaxSize        string `json:"max_size,omitempty" yaml:"max_size,omitempty" toml:"max_size,omitempty" hcl:"max_size,optional"`
	UnwrapArchives *bool  `json:"unwrap_archives,omitempty" yaml:"unwrap_archives,omitempty" toml:"unwrap_archives,omitempty" hcl:"unwrap_archives,optional"`
	UppercaseNames *bool  `json:"uppercase_names,omitempty" yaml:"uppercase_names,omitempty" toml:"uppercase_names,omitempty" hcl:"uppercase_names,optional"`
}

type filterBlock struct {
	Include    []string `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty" hcl:"include,optional"`
	Exclude    []string `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty" hcl:"exclude,optional"`
	IgnoreCase *bool    `json:"ignore_case,omitempty" yaml:"ignore_case,omitempty" toml:"ignore_case,omitempty" hcl:"ignore_case,optional"`
}

// 🔄 toConfig lays the file values over Default().
func (f *fileConfig) toConfig() (*Config, error) {
	cfg := Default()

	if s := f.Source; s != nil {
		// explicit fields below override the preset
		if s.Preset != "" {
			if err := cfg.ApplyPreset(s.Preset); err != nil {
				return nil, errors.Errorf("source.preset: %w", err)
			}
		}
		setString(&cfg.Source.URL, s.URL)
		setString(&cfg.Source.ListingPath, s.ListingPath)
		setString(&cfg.Source.UserAgent, s.UserAgent)
		set(&cfg.Source.Archive, s.Archive)
		set(&cfg.Source.RequestsPerSecond, s.RequestsPerSecond)
		switch {
		case s.Format != "":
			cfg.Source.Format = s.Format
		case cfg.Source.Archive:
			cfg.Source.Format = "zip"
		}
	}

	if len(f.Feeds) > 0 {
		cfg.Feeds = make([]Feed, len(f.Feeds))
		for i, fb := range f.Feeds {
			feed := Feed{Name: fb.Name, ListingPath: fb.ListingPath}
			if err := setDuration(&feed.PollInterval, "feeds."+fb.Name+".interval", fb.Interval); err != nil {
				return nil, err
			}
			set(&feed.Cycles, fb.Cycles)
			cfg.Feeds[i] = feed
		}
	}

	if p := f.Poll; p != nil {
		if err := setDuration(&cfg.PollInterval, "poll.interval", p.Interval); err != nil {
			return nil, err
		}
	}

	if r := f.Retry; r != nil {
		if err := setDuration(&cfg.Retry.BaseDelay, "retry.base_delay", r.BaseDelay); err != nil {
			return nil, err
		}
		if err := setDuration(&cfg.Retry.MaxDelay, "retry.max_delay", r.MaxDelay); err != nil {
			return nil, err
		}
		if err := setDuration(&cfg.Retry.AttemptTimeout, "retry.attempt_timeout", r.AttemptTimeout); err != nil {
			return nil, err
		}
		set(&cfg.Retry.Multiplier, r.Multiplier)
		set(&cfg.Retry.Jitter, r.Jitter)
		set(&cfg.Retry.MaxAttempts, r.MaxAttempts)
	}

	if s := f.Seen; s != nil {
		set(&cfg.SeenCapacity, s.Capacity)
		if err := setDuration(&cfg.SeenWindow, "seen.window", s.Window); err != nil {
			return nil, err
		}
	}

	if d := f.Download; d != nil {
		set(&cfg.Concurrency, d.Concurrency)
		set(&cfg.UnwrapArchives, d.UnwrapArchives)
		set(&cfg.UppercaseNames, d.UppercaseNames)
		if d.MaxSize != "" {
			n, err := humanize.ParseBytes(d.MaxSize)
			if err != nil {
				return nil, errors.Errorf("download.max_size: %w", err)
			}
			cfg.MaxBodySize = int64(n)
		}
	}

	if fl := f.Filter; fl != nil {
		cfg.Include = fl.Include
		cfg.Exclude = fl.Exclude
		set(&cfg.IgnoreCase, fl.IgnoreCase)
	}

	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}
