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

package loadtest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/venomqa/venomqa/pkg/journey"
	"github.com/venomqa/venomqa/pkg/loadtest"
	"github.com/venomqa/venomqa/pkg/runner"
)

func fastJourney(t *testing.T) *journey.Journey {
	t.Helper()
	j, err := journey.New("fast", []journey.Item{journey.StepItem(journey.Step{Name: "ping"})})
	require.NoError(t, err)
	return j
}

func fastResolver() journey.MapResolver {
	return journey.MapResolver{
		"ping": func(ctx context.Context, state journey.StepContext) (any, error) {
			return "pong", nil
		},
	}
}

// TestLoadTestAssertionsLenientConfigPasses exercises spec scenario S6:
// a fast journey run for 0.5s with 4 users and no think-time passes
// generous assertions.
func TestLoadTestAssertionsLenientConfigPasses(t *testing.T) {
	cfg := loadtest.Config{
		DurationSeconds: 0.5,
		ConcurrentUsers: 4,
		ThinkTimeMin:    0,
		ThinkTimeMax:    0,
	}
	tester, err := loadtest.New(cfg, nil)
	require.NoError(t, err)

	j := fastJourney(t)
	resolver := fastResolver()
	factory := func() *runner.Runner { return runner.New(resolver, runner.Config{}) }

	res, err := tester.Run(context.Background(), j, factory)
	require.NoError(t, err)
	require.Greater(t, res.Metrics.TotalRequests, int64(0))

	a := loadtest.Assertions{MaxP99Ms: f64p(1e9), MinThroughputRPS: f64p(1)}
	passed, failures := a.Validate(res)
	require.True(t, passed, "expected lenient assertions to pass, got failures: %v", failures)
}

// TestLoadTestAssertionsStrictThroughputFails exercises the other half of
// S6: an unreasonably high throughput floor fails validation.
func TestLoadTestAssertionsStrictThroughputFails(t *testing.T) {
	cfg := loadtest.Config{
		DurationSeconds: 0.5,
		ConcurrentUsers: 4,
		ThinkTimeMin:    0,
		ThinkTimeMax:    0,
	}
	tester, err := loadtest.New(cfg, nil)
	require.NoError(t, err)

	j := fastJourney(t)
	resolver := fastResolver()
	factory := func() *runner.Runner { return runner.New(resolver, runner.Config{}) }

	res, err := tester.Run(context.Background(), j, factory)
	require.NoError(t, err)

	a := loadtest.Assertions{MinThroughputRPS: f64p(1e9)}
	passed, failures := a.Validate(res)
	require.False(t, passed)
	require.Len(t, failures, 1)
	require.Contains(t, failures[0], "Throughput")
}

func TestConfigValidateRejectsBadInputs(t *testing.T) {
	_, err := loadtest.New(loadtest.Config{DurationSeconds: 0, ConcurrentUsers: 1}, nil)
	require.Error(t, err)

	_, err = loadtest.New(loadtest.Config{DurationSeconds: 1, ConcurrentUsers: 0}, nil)
	require.Error(t, err)

	_, err = loadtest.New(loadtest.Config{DurationSeconds: 1, ConcurrentUsers: 1, ThinkTimeMin: 2, ThinkTimeMax: 1}, nil)
	require.Error(t, err)
}

func TestStopEndsRunEarly(t *testing.T) {
	cfg := loadtest.Config{
		DurationSeconds: 10,
		ConcurrentUsers: 1,
	}
	tester, err := loadtest.New(cfg, nil)
	require.NoError(t, err)

	j := fastJourney(t)
	resolver := fastResolver()
	factory := func() *runner.Runner { return runner.New(resolver, runner.Config{}) }

	done := make(chan *loadtest.Result, 1)
	go func() {
		res, runErr := tester.Run(context.Background(), j, factory)
		require.NoError(t, runErr)
		done <- res
	}()

	time.Sleep(50 * time.Millisecond)
	tester.Stop()

	select {
	case res := <-done:
		require.Less(t, res.DurationSecs, 5.0)
	case <-time.After(5 * time.Second):
		t.Fatal("load test did not stop promptly after Stop()")
	}
}

func f64p(v float64) *float64 { return &v }
