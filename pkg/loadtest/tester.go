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

package loadtest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/venomqa/venomqa/pkg/journey"
	"github.com/venomqa/venomqa/pkg/result"
	"github.com/venomqa/venomqa/pkg/runner"
)

// RunnerFactory builds a fresh *runner.Runner for one worker's iteration.
// Each worker calls it at the start of every iteration, so no Runner (nor
// the HTTP client or ExecutionContext behind it) is shared between
// workers or reused across iterations.
type RunnerFactory func() *runner.Runner

// Result is the outcome of one load test run.
type Result struct {
	Config         Config
	Metrics        Snapshot
	StartedAt      time.Time
	FinishedAt     time.Time
	DurationSecs   float64
	Percentiles    map[string]float64
	Throughput     float64
	ErrorRate      float64
	JourneyResults []*result.JourneyResult
	Errors         []string
	TimeSeries     []TimeSeries
	ErrorBreakdown map[string]int64
	StdDeviationMs float64
}

// Tester drives a journey repeatedly under the concurrency pattern
// described by its Config, recording per-invocation latency samples.
type Tester struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New returns a Tester for cfg, or an error if cfg fails Validate.
func New(cfg Config, log *slog.Logger) (*Tester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tester{cfg: cfg, log: log}, nil
}

// Stop signals every worker to exit at its next iteration boundary. It is
// idempotent and safe to call from any goroutine, including before Run
// has been called (in which case it has no effect).
func (t *Tester) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

// Run executes the load test against j, using factory to build each
// worker's own Runner. It blocks until the configured duration elapses,
// Stop is called, or ctx is cancelled.
func (t *Tester) Run(ctx context.Context, j *journey.Journey, factory RunnerFactory) (*Result, error) {
	startedAt := time.Now()
	deadline := time.Duration(t.cfg.DurationSeconds * float64(time.Second))

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	m := newMetrics()
	warmupEnd := startedAt.Add(time.Duration(t.cfg.WarmupSeconds * float64(time.Second)))

	var resultsMu sync.Mutex
	var allResults []*result.JourneyResult
	var errs []string

	rampStep := 0.0
	if t.cfg.RampUpSeconds > 0 {
		rampStep = t.cfg.RampUpSeconds / float64(t.cfg.ConcurrentUsers)
	}

	g, gctx := errgroup.WithContext(runCtx)

	for i := 0; i < t.cfg.ConcurrentUsers; i++ {
		workerID := i
		g.Go(func() error {
			if rampStep > 0 {
				select {
				case <-time.After(time.Duration(float64(workerID) * rampStep * float64(time.Second))):
				case <-gctx.Done():
					return nil
				}
			}

			t.adjustActiveUsers(m, 1)
			defer t.adjustActiveUsers(m, -1)

			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				reqStart := time.Now()
				isWarmup := reqStart.Before(warmupEnd)

				r := factory()
				jr, runErr := r.Run(gctx, j)
				durationMs := float64(time.Since(reqStart).Microseconds()) / 1000

				if !isWarmup {
					sample := RequestSample{
						Timestamp:   reqStart,
						DurationMs:  durationMs,
						JourneyName: j.Name,
					}
					switch {
					case runErr != nil:
						sample.Success = false
						sample.Error = runErr.Error()
					case jr != nil:
						sample.Success = jr.Passed()
						if !sample.Success {
							sample.Error = firstIssueMessage(jr)
						}
					}
					m.record(sample)

					resultsMu.Lock()
					if jr != nil {
						allResults = append(allResults, jr)
					}
					if !sample.Success {
						errs = append(errs, fmt.Sprintf("%s: %s", j.Name, sample.Error))
					}
					resultsMu.Unlock()
				}

				if sleepFor := t.pacingDelay(rng); sleepFor > 0 {
					select {
					case <-time.After(sleepFor):
					case <-gctx.Done():
						return nil
					}
				}
			}
		})
	}

	g.Go(func() error {
		return t.runMonitor(gctx, m)
	})

	_ = g.Wait()

	finishedAt := time.Now()
	durations := m.durationsCopy()

	res := &Result{
		Config:         t.cfg,
		Metrics:        m.snapshot(),
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		DurationSecs:   finishedAt.Sub(startedAt).Seconds(),
		Percentiles:    percentiles(durations),
		JourneyResults: allResults,
		Errors:         errs,
		TimeSeries:     m.timeSeriesCopy(),
		ErrorBreakdown: m.errorBreakdownCopy(),
		StdDeviationMs: stdDeviation(durations),
	}
	if res.DurationSecs > 0 {
		res.Throughput = float64(res.Metrics.TotalRequests) / res.DurationSecs
	}
	res.ErrorRate = percentOf(res.Metrics.FailedRequests, res.Metrics.TotalRequests)

	t.log.Info("load test completed",
		"journey", j.Name,
		"total_requests", res.Metrics.TotalRequests,
		"throughput_rps", res.Throughput,
		"error_rate_pct", res.ErrorRate,
	)
	return res, nil
}

// pacingDelay returns how long a worker should sleep between iterations:
// the fixed rate-limiting interval if RequestsPerSecond is set, otherwise
// a uniform-random think-time in [ThinkTimeMin, ThinkTimeMax].
func (t *Tester) pacingDelay(rng *rand.Rand) time.Duration {
	if t.cfg.RequestsPerSecond > 0 {
		return time.Duration(float64(time.Second) / t.cfg.RequestsPerSecond)
	}
	if t.cfg.ThinkTimeMax <= 0 {
		return 0
	}
	think := t.cfg.ThinkTimeMin
	if spread := t.cfg.ThinkTimeMax - t.cfg.ThinkTimeMin; spread > 0 {
		think += rng.Float64() * spread
	}
	return time.Duration(think * float64(time.Second))
}

func (t *Tester) adjustActiveUsers(m *metrics, delta int) {
	m.mu.Lock()
	n := m.activeUsers + delta
	m.mu.Unlock()
	m.setActiveUsers(n)
}

func (t *Tester) runMonitor(ctx context.Context, m *metrics) error {
	if t.cfg.SampleIntervalSeconds <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(time.Duration(t.cfg.SampleIntervalSeconds * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.captureTimeSeriesPoint()
		}
	}
}

func firstIssueMessage(jr *result.JourneyResult) string {
	if len(jr.Issues) == 0 {
		return "journey failed"
	}
	return jr.Issues[0].Message
}
