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

package retry

import (
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🔧 Policy configures backoff for every class of a Controller.
type Policy struct {
	// BaseDelay is the first retry delay and the value a class resets to.
	BaseDelay time.Duration
	// MaxDelay caps the un-jittered delay.
	MaxDelay time.Duration
	// Multiplier grows the delay after each consecutive failure.
	Multiplier float64
	// Jitter adds a random extra of up to Jitter*delay to each wait.
	Jitter float64
	// AttemptTimeout bounds a single attempt; zero means no bound.
	AttemptTimeout time.Duration
	// MaxAttempts stops retrying a single call after this many attempts.
	// Zero retries transient failures forever.
	MaxAttempts int
}

// DefaultPolicy returns the policy streams use unless configured otherwise.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:      time.Second,
		MaxDelay:       5 * time.Minute,
		Multiplier:     2,
		Jitter:         0.2,
		AttemptTimeout: 30 * time.Second,
	}
}

// 🔍 Validate checks the policy and fills zero values with defaults
func (p *Policy) Validate() error {
	def := DefaultPolicy()

	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.AttemptTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if p.Jitter < 0 {
		return errors.Errorf("jitter must not be negative, got %v", p.Jitter)
	}
	if p.MaxAttempts < 0 {
		return errors.Errorf("max attempts must not be negative, got %d", p.MaxAttempts)
	}
	if p.Multiplier != 0 && p.Multiplier < 1 {
		return errors.Errorf("multiplier must be at least 1, got %v", p.Multiplier)
	}

	if p.BaseDelay == 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier == 0 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxDelay < p.BaseDelay {
		return errors.Errorf("max delay %s is below base delay %s", p.MaxDelay, p.BaseDelay)
	}

	return nil
}
