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
	"sync"
	"time"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

// CircuitState is one of the three circuit breaker states.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in CircuitOpenError and logs.
	Name string

	// FailureThreshold is the number of consecutive failures in CLOSED
	// state that trips the breaker to OPEN.
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays OPEN before becoming
	// eligible for HALF_OPEN on the next call.
	RecoveryTimeout time.Duration

	// HalfOpenMaxCalls is how many trial calls are admitted while
	// HALF_OPEN; further calls are rejected. The first trial outcome
	// decides the transition: a success closes, a failure re-opens.
	HalfOpenMaxCalls int
}

// CircuitStats reports the breaker's current counters, for diagnostics.
type CircuitStats struct {
	State             CircuitState
	ConsecutiveFails  int
	HalfOpenAttempts  int
	HalfOpenSuccesses int
	OpenedAt          time.Time
}

// CircuitBreaker implements the CLOSED -> OPEN -> HALF_OPEN -> CLOSED (or
// back to OPEN) state machine. The OPEN -> HALF_OPEN transition is lazy:
// it is only evaluated when a call is attempted, not on a background
// timer.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu                sync.Mutex
	state             CircuitState
	consecutiveFails  int
	openedAt          time.Time
	halfOpenAttempts  int
	halfOpenSuccesses int
}

// NewCircuitBreaker returns a CircuitBreaker starting in CLOSED state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.HalfOpenMaxCalls < 1 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &CircuitBreaker{cfg: cfg, state: CircuitClosed}
}

// Stats returns a snapshot of the breaker's counters.
func (b *CircuitBreaker) Stats() CircuitStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitStats{
		State:             b.state,
		ConsecutiveFails:  b.consecutiveFails,
		HalfOpenAttempts:  b.halfOpenAttempts,
		HalfOpenSuccesses: b.halfOpenSuccesses,
		OpenedAt:          b.openedAt,
	}
}

// allow evaluates the lazy OPEN -> HALF_OPEN transition and reports
// whether a call may proceed right now.
func (b *CircuitBreaker) allow() (bool, *venomerrors.CircuitOpenError) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true, nil

	case CircuitOpen:
		recoversAt := b.openedAt.Add(b.cfg.RecoveryTimeout)
		if time.Now().Before(recoversAt) {
			return false, &venomerrors.CircuitOpenError{
				Name:       b.cfg.Name,
				OpenedAt:   b.openedAt,
				RecoversAt: recoversAt,
			}
		}
		b.state = CircuitHalfOpen
		b.halfOpenAttempts = 0
		b.halfOpenSuccesses = 0
		fallthrough

	case CircuitHalfOpen:
		if b.halfOpenAttempts >= b.cfg.HalfOpenMaxCalls {
			return false, &venomerrors.CircuitOpenError{
				Name:       b.cfg.Name,
				OpenedAt:   b.openedAt,
				RecoversAt: b.openedAt.Add(b.cfg.RecoveryTimeout),
			}
		}
		b.halfOpenAttempts++
		return true, nil
	}

	return true, nil
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		// A single successful probe is enough to close the breaker.
		// HalfOpenMaxCalls only bounds how many trial calls are let
		// through before a still-failing breaker starts rejecting again.
		b.halfOpenSuccesses++
		b.state = CircuitClosed
		b.consecutiveFails = 0
	case CircuitClosed:
		b.consecutiveFails = 0
	}
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		b.state = CircuitOpen
		b.openedAt = time.Now()
	case CircuitClosed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.state = CircuitOpen
			b.openedAt = time.Now()
		}
	}
}

// Execute runs fn if the breaker currently allows a call, recording the
// outcome against the state machine. It returns a *CircuitOpenError
// without calling fn when the breaker rejects the call.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	ok, openErr := b.allow()
	if !ok {
		return openErr
	}

	err := fn(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}
