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

// Package retry runs fallible remote calls with exponential backoff.
//
// Transient failures are retried until they succeed (or MaxAttempts is
// reached); anything else is handed straight back to the caller. Backoff
// state is kept per Class and survives across calls: consecutive failures
// keep growing the delay until a success resets it.
package retry

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/transport"
)

// Class groups operations that share backoff state.
type Class string

const (
	ClassListing Class = "listing"
	ClassFile    Class = "file"
)

// ListingClass is the listing class of a named source. Each source backs
// off on its own; the unnamed source uses ClassListing.
func ListingClass(source string) Class {
	if source == "" {
		return ClassListing
	}
	return ClassListing + Class(":"+source)
}

// 📊 State is a snapshot of one class's backoff.
type State struct {
	Attempt   int           // consecutive failures since the last success
	NextDelay time.Duration // un-jittered delay before the next retry
}

// 🔁 Controller executes operations under a Policy.
type Controller struct {
	policy    Policy
	transient func(error) bool
	random    func() float64
	sleep     func(context.Context, time.Duration) error

	mu      sync.Mutex
	classes map[Class]*classState
}

// Option customizes a Controller
type Option func(*Controller)

// WithClassifier replaces transport.IsTransient as the retry predicate.
func WithClassifier(f func(error) bool) Option {
	return func(c *Controller) { c.transient = f }
}

// WithRandom replaces the jitter source; f must return values in [0, 1).
func WithRandom(f func() float64) Option {
	return func(c *Controller) { c.random = f }
}

// WithSleep replaces the wait between attempts.
func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(c *Controller) { c.sleep = f }
}

// 🏭 New creates a Controller
func New(p Policy, opts ...Option) (*Controller, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Errorf("validating retry policy: %w", err)
	}

	c := &Controller{
		policy:    p,
		transient: transport.IsTransient,
		random:    rand.Float64,
		sleep:     sleepContext,
		classes:   make(map[Class]*classState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Policy returns the validated policy.
func (c *Controller) Policy() Policy { return c.policy }

// State returns the current backoff state of class.
func (c *Controller) State(class Class) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(class).snapshot()
}

// 🏃 Execute runs op until it succeeds, fails permanently, or ctx ends.
func (c *Controller) Execute(ctx context.Context, class Class, op func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		timedOut, err := c.attempt(ctx, op)
		if err == nil {
			c.succeed(class)
			return nil
		}

		// the caller went away; not a failure of the operation
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if !timedOut && !c.transient(err) {
			return err
		}

		delay := c.fail(class)

		if c.policy.MaxAttempts > 0 && attempt >= c.policy.MaxAttempts {
			return errors.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		wait := delay + c.jitter(delay)
		logger.Warn().
			Err(err).
			Str("class", string(class)).
			Int("attempt", attempt).
			Dur("delay", wait).
			Msg("transient failure, retrying")

		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Do is Execute for operations that produce a value.
func Do[T any](ctx context.Context, c *Controller, class Class, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Execute(ctx, class, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (c *Controller) attempt(ctx context.Context, op func(context.Context) error) (bool, error) {
	if c.policy.AttemptTimeout <= 0 {
		return false, op(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()

	err := op(actx)
	timedOut := err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	return timedOut, err
}

func (c *Controller) jitter(d time.Duration) time.Duration {
	if c.policy.Jitter <= 0 || d <= 0 {
		return 0
	}
	return time.Duration(c.random() * c.policy.Jitter * float64(d))
}

func (c *Controller) succeed(class Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateLocked(class).reset()
}

func (c *Controller) fail(class Class) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(class).failure()
}

func (c *Controller) stateLocked(class Class) *classState {
	s, ok := c.classes[class]
	if !ok {
		s = newClassState(c.policy)
		c.classes[class] = s
	}
	return s
}

// classState tracks one class. Jitter is applied by the controller, so the
// exponential sequence itself stays deterministic and monotonic.
type classState struct {
	bo      *backoff.ExponentialBackOff
	attempt int
}

func newClassState(p Policy) *classState {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return &classState{bo: bo}
}

func (s *classState) reset() {
	s.bo.Reset()
	s.attempt = 0
}

func (s *classState) failure() time.Duration {
	s.attempt++
	return s.bo.NextBackOff()
}

func (s *classState) peek() time.Duration {
	cp := *s.bo
	return cp.NextBackOff()
}

func (s *classState) snapshot() State {
	return State{Attempt: s.attempt, NextDelay: s.peek()}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
