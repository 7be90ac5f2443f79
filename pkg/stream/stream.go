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

// Package stream turns a poll-only remote listing into an ordered sequence
// of delivery events.
//
// A Stream is a pull-driven state machine. Each call to Next advances it on
// the caller's goroutine until an event is ready:
//
//	Idle ─▶ FetchingListing ─▶ Diffing ─▶ Downloading ─▶ Sleeping ─▶ Idle
//	             │                 │                          ▲
//	             └── Failed ───────┴──── nothing new ─────────┘
//
// Failures of any kind are handed out as feed.Failed events and polling
// continues. Only Close (or cancellation of the context the stream was
// created with) ends the sequence.
//
// A stream may poll several sources, each on its own interval. Idle picks
// the source that is due soonest; all of them diff against one seen-set.
package stream

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/tgfeed/pkg/downloader"
	"github.com/walteh/tgfeed/pkg/feed"
	"github.com/walteh/tgfeed/pkg/listing"
	"github.com/walteh/tgfeed/pkg/retry"
	"github.com/walteh/tgfeed/pkg/seen"
	"github.com/walteh/tgfeed/pkg/transport"
)

// ErrClosed is returned by Next once the stream is closed.
var ErrClosed = errors.New("stream: closed")

// result is a finished download waiting to be emitted.
type result struct {
	entry   listing.Entry
	product feed.Product
	err     error
}

// 🌊 Stream delivers every newly listed file once, in listing order.
type Stream struct {
	id      string
	opts    Options
	retry   *retry.Controller
	seen    *seen.Set
	sources []*source
	logger  zerolog.Logger

	// ctx is cancelled by Close
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.Mutex
	state   State
	active  *source // source of the current cycle
	current []listing.Entry
	pending []listing.Entry // new entries not yet downloaded
	ready   []result        // downloaded, not yet emitted
	wakeAt  time.Time
	cycles  int
	emitted int
}

// source is a Source plus its polling state.
type source struct {
	Source
	class      retry.Class
	downloader *downloader.Downloader
	logger     zerolog.Logger

	last   []listing.Entry // last good, filtered listing
	listed bool            // last holds a parsed listing
	dueAt  time.Time
	polls  int
}

func (src *source) retired() bool {
	return src.Cycles > 0 && src.polls >= src.Cycles
}

// 🏭 New creates a Stream reading from t. The stream is closed when ctx is
// cancelled or Close is called. No request is issued until the first Next.
func New(ctx context.Context, t transport.Transport, opts Options) (*Stream, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	return NewMulti(ctx, []Source{{Transport: t}}, opts)
}

// 🏭 NewMulti creates a Stream polling every source. Sources are polled one
// cycle at a time; when several are due the first listed goes first.
func NewMulti(ctx context.Context, sources []Source, opts Options) (*Stream, error) {
	if err := opts.validate(); err != nil {
		return nil, errors.Errorf("validating stream options: %w", err)
	}
	sources, err := opts.validateSources(sources)
	if err != nil {
		return nil, errors.Errorf("validating stream sources: %w", err)
	}

	rc, err := retry.New(opts.Retry, opts.RetryOptions...)
	if err != nil {
		return nil, err
	}

	set, err := seen.New(opts.Seen)
	if err != nil {
		return nil, errors.Errorf("creating seen set: %w", err)
	}

	id := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("stream", id).Logger()

	sctx, cancel := context.WithCancel(ctx)

	s := &Stream{
		id:     id,
		opts:   opts,
		retry:  rc,
		seen:   set,
		logger: logger,
		ctx:    logger.WithContext(sctx),
		cancel: cancel,
		state:  StateIdle,
	}

	for _, src := range sources {
		srcLogger := logger
		if src.Name != "" {
			srcLogger = logger.With().Str("source", src.Name).Logger()
		}
		s.sources = append(s.sources, &source{
			Source:     src,
			class:      retry.ListingClass(src.Name),
			downloader: downloader.New(src.Transport, rc, opts.Download),
			logger:     srcLogger,
		})

		srcLogger.Debug().
			Str("format", src.Format).
			Dur("poll_interval", src.PollInterval).
			Int("cycles", src.Cycles).
			Msg("source added")
	}

	logger.Debug().
		Int("sources", len(sources)).
		Int("concurrency", opts.Concurrency).
		Msg("stream created")

	return s, nil
}

// ID identifies the stream in logs.
func (s *Stream) ID() string { return s.id }

// State returns the current state. It blocks while Next is running.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seen reports whether name has been delivered and is still remembered.
func (s *Stream) Seen(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.Contains(name)
}

// 📊 Stats summarizes a stream's progress.
type Stats struct {
	Cycles    int
	Emitted   int
	Seen      seen.Stats
	Listing   retry.State // listing backoff of the first source
	Downloads retry.State
	Sources   []SourceStats
}

// SourceStats describes one source's polling.
type SourceStats struct {
	Name    string
	Polls   int
	Retired bool
	Listing retry.State
}

// Stats returns a snapshot of the stream's counters.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Cycles:    s.cycles,
		Emitted:   s.emitted,
		Seen:      s.seen.Stats(),
		Listing:   s.retry.State(s.sources[0].class),
		Downloads: s.retry.State(retry.ClassFile),
	}
	for _, src := range s.sources {
		st.Sources = append(st.Sources, SourceStats{
			Name:    src.Name,
			Polls:   src.polls,
			Retired: src.retired(),
			Listing: s.retry.State(src.class),
		})
	}
	return st
}

// 🛑 Close stops the stream. In-flight fetches and sleeps are abandoned and
// Close waits for a concurrent Next to return. It is safe to call more than
// once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.transition(StateClosed)
		s.pending, s.ready, s.current, s.active = nil, nil, nil, nil
		s.logger.Debug().Int("emitted", s.emitted).Msg("stream closed")
	})
	return nil
}

// 📨 Events adapts Next to a range-over-func sequence. Iteration ends when
// ctx ends or the stream is closed.
func (s *Stream) Events(ctx context.Context) iter.Seq[feed.Event] {
	return func(yield func(feed.Event) bool) {
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// ⏭️ Next blocks until the next event is ready.
//
// It returns ErrClosed once the stream is closed, and ctx.Err() if ctx ends
// first; in the latter case the stream stays usable and no work is lost.
func (s *Stream) Next(ctx context.Context) (feed.Event, error) {
	if s.ctx.Err() != nil {
		return feed.Event{}, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.logger.WithContext(ctx))
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	for {
		if err := s.interrupted(ctx); err != nil {
			return feed.Event{}, err
		}

		switch s.state {
		case StateIdle:
			s.active = s.nextDue()
			s.cycles++
			s.transition(StateFetchingListing)

		case StateFetchingListing:
			entries, err := s.fetchListing(ctx, s.active)
			if err != nil {
				if ierr := s.interrupted(ctx); ierr != nil {
					return feed.Event{}, ierr
				}
				s.active.logger.Warn().Err(err).Msg("listing failed")
				if s.active.Name != "" {
					err = errors.Errorf("source %s: %w", s.active.Name, err)
				}
				s.rest()
				return s.emit(feed.Failed(err)), nil
			}
			s.current = entries
			s.transition(StateDiffing)

		case StateDiffing:
			refreshed := s.seen.Refresh(s.current)
			s.pending = s.seen.Diff(s.current)
			s.logger.Debug().
				Int("listed", len(s.current)).
				Int("refreshed", refreshed).
				Int("new", len(s.pending)).
				Msg("diffed listing")
			s.current = nil
			if len(s.pending) == 0 {
				s.rest()
				continue
			}
			s.transition(StateDownloading)

		case StateDownloading:
			if len(s.ready) == 0 {
				if len(s.pending) == 0 {
					s.rest()
					continue
				}
				if err := s.download(ctx); err != nil {
					return feed.Event{}, err
				}
			}

			r := s.ready[0]
			s.ready = s.ready[1:]
			if r.err != nil {
				s.logger.Warn().Err(r.err).Str("file", r.entry.Filename).Msg("download failed")
				return s.emit(feed.Failed(r.err)), nil
			}
			s.seen.Mark(r.entry.Filename)
			return s.emit(feed.Delivered(r.product)), nil

		case StateSleeping:
			if err := s.sleep(ctx); err != nil {
				return feed.Event{}, err
			}
			s.transition(StateIdle)

		case StateClosed:
			return feed.Event{}, ErrClosed
		}
	}
}

// interrupted reports why ctx ended: ErrClosed if the stream was closed,
// otherwise the caller's error.
func (s *Stream) interrupted(ctx context.Context) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *Stream) emit(ev feed.Event) feed.Event {
	s.emitted++
	return ev
}

func (s *Stream) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.logger.Trace().Stringer("from", from).Stringer("to", to).Msg("transition")
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(from, to)
	}
}

// rest ends the active source's cycle, schedules its next poll and goes to
// sleep until some source is due.
func (s *Stream) rest() {
	if src := s.active; src != nil {
		src.polls++
		src.dueAt = time.Now().Add(src.PollInterval)
		if src.retired() {
			src.logger.Debug().Int("polls", src.polls).Msg("source retired")
		}
		s.active = nil
	}
	s.transition(StateSleeping)
}

// nextDue returns the live source due soonest. Validation guarantees one
// source never retires.
func (s *Stream) nextDue() *source {
	var next *source
	for _, src := range s.sources {
		if src.retired() {
			continue
		}
		if next == nil || src.dueAt.Before(next.dueAt) {
			next = src
		}
	}
	return next
}

// fetchListing fetches and parses src's listing. A not-modified answer
// yields the previous listing again so that entries that failed to download
// are retried.
//
// Conditional request state is dropped whenever it describes a listing the
// stream never parsed: before the first fetch and after a parse failure.
// Otherwise the remote would keep answering 304 for a listing that was never
// diffed.
func (s *Stream) fetchListing(ctx context.Context, src *source) ([]listing.Entry, error) {
	if !src.listed {
		transport.Forget(src.Transport)
	}

	notModified := false
	raw, err := retry.Do(ctx, s.retry, src.class, func(ctx context.Context) ([]byte, error) {
		b, err := src.Transport.FetchListing(ctx)
		if errors.Is(err, transport.ErrNotModified) {
			notModified = true
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		return nil, err
	}

	if notModified {
		src.logger.Debug().Int("entries", len(src.last)).Msg("listing not modified")
		return src.last, nil
	}

	entries, err := listing.Parse(src.Format, raw)
	if err != nil {
		transport.Forget(src.Transport)
		return nil, err
	}

	entries = s.opts.Filter.Apply(entries)
	src.last = entries
	src.listed = true
	return entries, nil
}

// download fetches the next batch of pending entries into ready. On
// interruption nothing is consumed, so the batch is fetched again by the
// next call.
func (s *Stream) download(ctx context.Context) error {
	n := min(s.opts.Concurrency, len(s.pending))
	batch := s.pending[:n]
	results := make([]result, n)

	if n == 1 {
		p, err := s.active.downloader.Fetch(ctx, batch[0])
		results[0] = result{entry: batch[0], product: p, err: err}
	} else {
		var g errgroup.Group
		g.SetLimit(n)
		for i, e := range batch {
			g.Go(func() error {
				p, err := s.active.downloader.Fetch(ctx, e)
				results[i] = result{entry: e, product: p, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := s.interrupted(ctx); err != nil {
		return err
	}

	s.pending = s.pending[n:]
	s.ready = append(s.ready, results...)
	return nil
}

// sleep waits until the next source is due. The wake-up time survives an
// interrupted Next, so resuming does not restart the interval.
func (s *Stream) sleep(ctx context.Context) error {
	if s.wakeAt.IsZero() {
		s.wakeAt = s.nextDue().dueAt
		s.logger.Debug().Time("wake_at", s.wakeAt).Msg("sleeping")
	}

	d := time.Until(s.wakeAt)
	if d <= 0 {
		s.wakeAt = time.Time{}
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return s.interrupted(ctx)
	case <-t.C:
		s.wakeAt = time.Time{}
		return nil
	}
}
