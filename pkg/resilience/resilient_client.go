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
)

// ResilientClient composes a retry policy, an optional circuit breaker
// and an optional per-call timeout into one wrapper, so a step's action
// doesn't have to nest all three by hand.
type ResilientClient struct {
	retry     *RetryPolicy
	breaker   *CircuitBreaker
	timeout   time.Duration
	operation string
}

// ResilientClientOption configures a ResilientClient.
type ResilientClientOption func(*ResilientClient)

// WithCircuitBreaker attaches a CircuitBreaker to the client.
func WithCircuitBreaker(b *CircuitBreaker) ResilientClientOption {
	return func(c *ResilientClient) { c.breaker = b }
}

// WithCallTimeout bounds each individual call (each retry attempt, not
// the whole retry loop) to d.
func WithCallTimeout(operation string, d time.Duration) ResilientClientOption {
	return func(c *ResilientClient) {
		c.operation = operation
		c.timeout = d
	}
}

// NewResilientClient returns a ResilientClient wrapping retryCfg, plus
// whatever optional breaker/timeout behavior opts configure.
func NewResilientClient(retryCfg RetryConfig, opts ...ResilientClientOption) *ResilientClient {
	c := &ResilientClient{retry: NewRetryPolicy(retryCfg)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call runs fn through the configured timeout, circuit breaker and retry
// policy, in that nesting order: each retry attempt is independently
// timed-out and independently subject to the breaker.
func (c *ResilientClient) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	wrapped := fn

	if c.timeout > 0 {
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return WithTimeout(ctx, c.operation, c.timeout, inner)
		}
	}

	if c.breaker != nil {
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return c.breaker.Execute(ctx, inner)
		}
	}

	return c.retry.Execute(ctx, wrapped)
}
