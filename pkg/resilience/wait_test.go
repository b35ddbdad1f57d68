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

	"github.com/venomqa/venomqa/pkg/resilience"
)

func TestWaitForSucceedsWhenConditionBecomesTrue(t *testing.T) {
	attempts := 0
	err := resilience.WaitFor(context.Background(), "wait-for-ready", 5*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		attempts++
		return attempts >= 3, nil
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, attempts, 3)
}

func TestWaitForTimesOut(t *testing.T) {
	err := resilience.WaitFor(context.Background(), "never-ready", 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	var timeoutErr *resilience.WaitTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.False(t, timeoutErr.Recoverable())
}

func TestWaitForPropagatesConditionError(t *testing.T) {
	sentinel := errors.New("condition blew up")
	err := resilience.WaitFor(context.Background(), "op", 5*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestWaitForHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := resilience.WaitFor(ctx, "op", 50*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPollUntilIsWaitForAlias(t *testing.T) {
	calls := 0
	err := resilience.PollUntil(context.Background(), "poll", 5*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
