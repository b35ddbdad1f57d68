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

package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/resilience"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Strategy:    resilience.BackoffFixed,
	})

	attempts := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &venomerrors.ConnectionError{Target: "test", Message: "refused"}
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Strategy:    resilience.BackoffFixed,
	})

	attempts := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return &venomerrors.ConnectionError{Target: "test", Message: "refused"}
	})

	require.Error(t, err)
	var exhausted *venomerrors.RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 2, exhausted.Attempts)
	require.Equal(t, 2, attempts)
}

func TestRetryNonRecoverableStopsImmediately(t *testing.T) {
	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	sentinel := errors.New("plain error, not recoverable")
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		Strategy:    resilience.BackoffFixed,
	})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Execute(ctx, func(ctx context.Context) error {
		attempts++
		return &venomerrors.ConnectionError{Target: "test", Message: "refused"}
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestCustomClassifier(t *testing.T) {
	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Classify: func(err error) bool {
			return err.Error() == "retry-me"
		},
	})

	attempts := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("retry-me")
	})

	require.Error(t, err)
	require.Equal(t, 3, attempts)
}
