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

// Package resilience implements the retry, circuit breaker, timeout and
// wait/poll primitives a journey step wraps its action in.
package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy selects the delay formula between retry attempts.
type BackoffStrategy string

const (
	BackoffFixed                        BackoffStrategy = "fixed"
	BackoffLinear                       BackoffStrategy = "linear"
	BackoffExponential                  BackoffStrategy = "exponential"
	BackoffExponentialFullJitter        BackoffStrategy = "exponential_full_jitter"
	BackoffExponentialEqualJitter       BackoffStrategy = "exponential_equal_jitter"
	BackoffExponentialDecorrelatedJitter BackoffStrategy = "exponential_decorrelated_jitter"
)

// backoffState carries the delay actually used for the previous attempt,
// recorded for callers/tests that want to inspect the sequence of delays.
type backoffState struct {
	prevDelay time.Duration
}

// delay computes the backoff before the given attempt (1-indexed: attempt
// 1 is the delay before the first retry, i.e. after the first failure).
func delay(strategy BackoffStrategy, attempt int, base, max time.Duration, multiplier float64, state *backoffState) time.Duration {
	if multiplier <= 0 {
		multiplier = 2
	}

	var d time.Duration
	switch strategy {
	case BackoffFixed:
		d = base

	case BackoffLinear:
		d = base * time.Duration(attempt)

	case BackoffExponential:
		d = exponentialDelay(base, multiplier, attempt)

	case BackoffExponentialFullJitter:
		exp := exponentialDelay(base, multiplier, attempt)
		d = time.Duration(rand.Int63n(int64(exp) + 1))

	case BackoffExponentialEqualJitter:
		exp := exponentialDelay(base, multiplier, attempt)
		half := exp / 2
		d = half + time.Duration(rand.Int63n(int64(half)+1))

	case BackoffExponentialDecorrelatedJitter:
		if attempt <= 1 {
			// First retry: U[0, base], independent of any prior delay.
			d = time.Duration(rand.Int63n(int64(base) + 1))
		} else {
			upper := int64(base) * 3
			if max > 0 && int64(max) < upper {
				upper = int64(max)
			}
			if upper <= int64(base) {
				d = base
			} else {
				d = base + time.Duration(rand.Int63n(upper-int64(base)+1))
			}
		}

	default:
		d = exponentialDelay(base, multiplier, attempt)
	}

	if max > 0 && d > max {
		d = max
	}
	if state != nil {
		state.prevDelay = d
	}
	return d
}

func exponentialDelay(base time.Duration, multiplier float64, attempt int) time.Duration {
	factor := math.Pow(multiplier, float64(attempt-1))
	return time.Duration(float64(base) * factor)
}
