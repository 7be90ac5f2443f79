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

package stream

import (
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/downloader"
	"github.com/walteh/tgfeed/pkg/listing"
	"github.com/walteh/tgfeed/pkg/retry"
	"github.com/walteh/tgfeed/pkg/seen"
	"github.com/walteh/tgfeed/pkg/transport"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultFormat       = "html"
)

// 🔧 Options configures a Stream. The zero value is usable.
type Options struct {
	// PollInterval is the wait between the end of one cycle and the next
	// listing fetch.
	PollInterval time.Duration
	Retry        retry.Policy
	RetryOptions []retry.Option
	Seen         seen.Options
	// Concurrency bounds simultaneous downloads; results are still
	// delivered in listing order.
	Concurrency int
	// Format names a registered listing parser.
	Format   string
	Filter   listing.Filter
	Download downloader.Options
	// OnTransition observes every state change. It runs on the goroutine
	// calling Next and must not call back into the Stream.
	OnTransition func(from, to State)
}

// 📡 Source is one listing a stream polls. Every source of a stream shares
// its seen-set, so a file listed by several sources is delivered once.
type Source struct {
	// Name identifies the source in logs, events and retry state. Names
	// must be unique within a stream.
	Name      string
	Transport transport.Transport
	// Format overrides Options.Format.
	Format string
	// PollInterval overrides Options.PollInterval.
	PollInterval time.Duration
	// Cycles retires the source after that many polls; zero polls forever.
	// Short-lived sources catch up on a backlog at startup.
	Cycles int
}

func (o *Options) validate() error {
	if o.PollInterval < 0 {
		return errors.Errorf("poll interval must not be negative, got %s", o.PollInterval)
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Retry == (retry.Policy{}) {
		o.Retry = retry.DefaultPolicy()
	}
	if o.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", o.Concurrency)
	}
	if o.Concurrency == 0 {
		o.Concurrency = 1
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if _, err := listing.Get(o.Format); err != nil {
		return err
	}
	if err := o.Filter.Validate(); err != nil {
		return errors.Errorf("validating filter: %w", err)
	}
	return nil
}

func (o *Options) validateSources(sources []Source) ([]Source, error) {
	if len(sources) == 0 {
		return nil, errors.New("at least one source is required")
	}

	out := make([]Source, len(sources))
	names := make(map[string]bool, len(sources))
	forever := false
	for i, src := range sources {
		if src.Transport == nil {
			return nil, errors.Errorf("source %d %q: transport is required", i, src.Name)
		}
		if names[src.Name] {
			return nil, errors.Errorf("source %d: duplicate name %q", i, src.Name)
		}
		names[src.Name] = true

		if src.PollInterval < 0 {
			return nil, errors.Errorf("source %q: poll interval must not be negative, got %s", src.Name, src.PollInterval)
		}
		if src.PollInterval == 0 {
			src.PollInterval = o.PollInterval
		}
		if src.Cycles < 0 {
			return nil, errors.Errorf("source %q: cycles must not be negative, got %d", src.Name, src.Cycles)
		}
		if src.Cycles == 0 {
			forever = true
		}
		if src.Format == "" {
			src.Format = o.Format
		}
		if _, err := listing.Get(src.Format); err != nil {
			return nil, errors.Errorf("source %q: %w", src.Name, err)
		}
		out[i] = src
	}

	if !forever {
		return nil, errors.New("at least one source must poll forever (cycles = 0)")
	}
	return out, nil
}
