// Copyright 2025 Tom Barlow
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

package resilience

import (
	"context"
	"time"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

// recoverable is implemented by error types (pkg/errors' typed errors)
// that know whether they are worth retrying.
type recoverable interface {
	Recoverable() bool
}

// RetryConfig configures a RetryPolicy.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be >= 1.
	MaxAttempts int

	// BaseDelay is the initial backoff delay.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay. Zero means uncapped.
	MaxDelay time.Duration

	// Strategy selects the backoff formula. Defaults to
	// BackoffExponentialFullJitter if empty.
	Strategy BackoffStrategy

	// Multiplier is the exponential base for the exponential* strategies.
	// Defaults to 2 if <= 0.
	Multiplier float64

	// Classify overrides the default recoverability check. If nil, an
	// error is retried when it implements Recoverable() bool and that
	// method returns true; otherwise it is treated as non-retryable.
	Classify func(error) bool
}

// RetryPolicy retries a function according to its RetryConfig, honoring
// ctx cancellation between attempts.
type RetryPolicy struct {
	cfg RetryConfig
}

// NewRetryPolicy returns a RetryPolicy for cfg, filling unset fields with
// their defaults.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Strategy == "" {
		cfg.Strategy = BackoffExponentialFullJitter
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	return &RetryPolicy{cfg: cfg}
}

func (p *RetryPolicy) classify(err error) bool {
	if p.cfg.Classify != nil {
		return p.cfg.Classify(err)
	}
	if r, ok := err.(recoverable); ok {
		return r.Recoverable()
	}
	return false
}

// Execute runs fn, retrying on recoverable errors until MaxAttempts is
// reached, ctx is cancelled, or fn succeeds. It returns a
// *venomerrors.RetryExhaustedError wrapping the final error if every
// attempt was exhausted, or the original error immediately if it is
// classified as non-recoverable.
func (p *RetryPolicy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var state backoffState
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !p.classify(lastErr) {
			return lastErr
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}

		d := delay(p.cfg.Strategy, attempt, p.cfg.BaseDelay, p.cfg.MaxDelay, p.cfg.Multiplier, &state)
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &venomerrors.RetryExhaustedError{
		Attempts: p.cfg.MaxAttempts,
		LastErr:  lastErr,
	}
}
