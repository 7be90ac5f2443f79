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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/transport"
)

// 💤 sleeper records requested waits without sleeping
type sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

var (
	errTransient = transport.NewStatusError(transport.OpListing, "", 503)
	errPermanent = transport.NewStatusError(transport.OpFile, "b.txt", 404)
)

func newController(t *testing.T, p Policy, opts ...Option) (*Controller, *sleeper) {
	t.Helper()
	s := &sleeper{}
	opts = append([]Option{WithSleep(s.Sleep), WithRandom(func() float64 { return 0 })}, opts...)
	c, err := New(p, opts...)
	require.NoError(t, err, "creating controller should succeed")
	return c, s
}

// failN fails with err n times, then succeeds.
func failN(n int, err error) (func(context.Context) error, *int) {
	calls := 0
	return func(context.Context) error {
		calls++
		if calls <= n {
			return err
		}
		return nil
	}, &calls
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name        string
		policy      Policy
		want        Policy
		errContains string
	}{
		{
			name:   "zero_fills_defaults",
			policy: Policy{},
			want:   Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Minute, Multiplier: 2},
		},
		{
			name:   "explicit",
			policy: Policy{BaseDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 1.5, Jitter: 0.1, MaxAttempts: 3},
			want:   Policy{BaseDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 1.5, Jitter: 0.1, MaxAttempts: 3},
		},
		{name: "negative_delay", policy: Policy{BaseDelay: -1}, errContains: "negative"},
		{name: "negative_jitter", policy: Policy{Jitter: -0.1}, errContains: "jitter"},
		{name: "negative_attempts", policy: Policy{MaxAttempts: -1}, errContains: "max attempts"},
		{name: "shrinking_multiplier", policy: Policy{Multiplier: 0.5}, errContains: "multiplier"},
		{name: "max_below_base", policy: Policy{BaseDelay: time.Minute, MaxDelay: time.Second}, errContains: "below base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.policy
			err := p.Validate()
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestDelaysGrowAndCap(t *testing.T) {
	c, s := newController(t, Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2})

	op, calls := failN(6, errTransient)
	require.NoError(t, c.Execute(context.Background(), ClassListing, op), "transient failures should be retried until success")
	assert.Equal(t, 7, *calls)

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}, s.Waits(), "delays should double up to the cap")
}

func TestDelaysNeverDecreaseBeforeSuccess(t *testing.T) {
	c, _ := newController(t, Policy{BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3, MaxAttempts: 1})

	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		err := c.Execute(context.Background(), ClassFile, func(context.Context) error { return errTransient })
		require.Error(t, err, "max attempts should stop each call")

		st := c.State(ClassFile)
		assert.Equal(t, i+1, st.Attempt, "attempts accumulate across calls")
		assert.GreaterOrEqual(t, st.NextDelay, prev, "delay should not decrease while failures continue")
		prev = st.NextDelay
	}
	assert.Equal(t, time.Second, prev, "delay should be capped")
}

func TestSuccessResets(t *testing.T) {
	c, s := newController(t, Policy{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2})
	ctx := context.Background()

	op, _ := failN(3, errTransient)
	require.NoError(t, c.Execute(ctx, ClassListing, op))
	assert.Equal(t, State{Attempt: 0, NextDelay: time.Second}, c.State(ClassListing), "success should reset to the base delay")

	op, _ = failN(1, errTransient)
	require.NoError(t, c.Execute(ctx, ClassListing, op))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, time.Second}, s.Waits(), "the next failure should start from the base delay")
}

func TestClassesAreIndependent(t *testing.T) {
	c, _ := newController(t, Policy{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, MaxAttempts: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = c.Execute(ctx, ClassListing, func(context.Context) error { return errTransient })
	}

	assert.Equal(t, 3, c.State(ClassListing).Attempt)
	assert.Equal(t, State{Attempt: 0, NextDelay: time.Second}, c.State(ClassFile), "file backoff should be untouched")
}

func TestPermanentIsNotRetried(t *testing.T) {
	c, s := newController(t, Policy{})

	op, calls := failN(5, errPermanent)
	err := c.Execute(context.Background(), ClassFile, op)
	assert.ErrorIs(t, err, errPermanent, "permanent errors should be returned as is")
	assert.Equal(t, 1, *calls, "permanent errors should not be retried")
	assert.Empty(t, s.Waits())
	assert.Equal(t, 0, c.State(ClassFile).Attempt, "permanent errors do not grow the backoff")
}

func TestMaxAttempts(t *testing.T) {
	c, s := newController(t, Policy{BaseDelay: time.Second, MaxAttempts: 3})

	op, calls := failN(10, errTransient)
	err := c.Execute(context.Background(), ClassListing, op)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient, "the last failure should be wrapped")
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, 3, *calls)
	assert.Len(t, s.Waits(), 2, "no wait after the final attempt")
}

func TestJitter(t *testing.T) {
	c, s := newController(t, Policy{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: 0.5},
		WithRandom(func() float64 { return 0.5 }))

	op, _ := failN(2, errTransient)
	require.NoError(t, c.Execute(context.Background(), ClassListing, op))
	assert.Equal(t, []time.Duration{1250 * time.Millisecond, 2500 * time.Millisecond}, s.Waits(), "jitter should add random*jitter*delay")
	assert.Equal(t, time.Second, c.State(ClassListing).NextDelay, "jitter should not leak into the backoff state")
}

func TestAttemptTimeoutIsTransient(t *testing.T) {
	c, s := newController(t, Policy{BaseDelay: time.Millisecond, AttemptTimeout: 20 * time.Millisecond})

	calls := 0
	err := c.Execute(context.Background(), ClassFile, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return errors.New("gave up waiting")
		}
		return nil
	})
	require.NoError(t, err, "an attempt that outlives its timeout should be retried")
	assert.Equal(t, 2, calls)
	assert.Len(t, s.Waits(), 1)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := New(Policy{BaseDelay: time.Hour, MaxDelay: time.Hour})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- c.Execute(ctx, ClassListing, func(context.Context) error { return errTransient })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled, "cancellation should interrupt the backoff wait")
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}

	_, err = Do(ctx, c, ClassListing, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled, "a cancelled context should not run the operation")
}

func TestDo(t *testing.T) {
	c, _ := newController(t, Policy{})

	calls := 0
	v, err := Do(context.Background(), c, ClassFile, func(context.Context) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errTransient
		}
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(v))

	_, err = Do(context.Background(), c, ClassFile, func(context.Context) (string, error) {
		return "", errPermanent
	})
	assert.ErrorIs(t, err, errPermanent)
}

func TestListingClassesAreIndependent(t *testing.T) {
	assert.Equal(t, ClassListing, ListingClass(""), "the unnamed source uses the plain listing class")
	assert.Equal(t, Class("listing:txtmin02"), ListingClass("txtmin02"))

	c, _ := newController(t, Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, MaxAttempts: 2})
	ctx := context.Background()

	_ = c.Execute(ctx, ListingClass("live"), func(context.Context) error { return errTransient })
	assert.Equal(t, 2, c.State(ListingClass("live")).Attempt, "the failing source should back off")
	assert.Equal(t, 0, c.State(ListingClass("backlog")).Attempt, "other sources keep their own state")
}
