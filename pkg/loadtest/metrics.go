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
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venomqa_loadtest_samples_total",
			Help: "Total load test request samples by journey and outcome",
		},
		[]string{"journey", "outcome"},
	)

	sampleDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venomqa_loadtest_sample_duration_seconds",
			Help:    "Load test journey invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"journey"},
	)

	activeWorkersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "venomqa_loadtest_active_workers",
			Help: "Currently active load test workers",
		},
	)
)

// RequestSample is one recorded journey invocation.
type RequestSample struct {
	Timestamp   time.Time
	DurationMs  float64
	Success     bool
	JourneyName string
	Error       string
}

// TimeSeries is a periodic summary of throughput/latency during a run,
// covering only the samples recorded since the previous point.
type TimeSeries struct {
	Timestamp      time.Time
	ElapsedSeconds float64
	RequestsCount  int
	SuccessCount   int
	ErrorCount     int
	ActiveUsers    int
	RPS            float64
	AvgResponseMs  float64
	P50Ms          float64
	P95Ms          float64
	P99Ms          float64
}

// Snapshot is a point-in-time view of a running test's cumulative
// metrics, safe to read concurrently with further recording.
type Snapshot struct {
	ElapsedSeconds float64
	TotalRequests  int64
	SuccessfulReqs int64
	FailedRequests int64
	SuccessRatePct float64
	ErrorRatePct   float64
	AvgDurationMs  float64
	MinDurationMs  float64
	MaxDurationMs  float64
	ActualRPS      float64
	ActiveUsers    int
}

// metrics accumulates samples and time-series points for one run, guarded
// by a single mutex per the bounded-O(samples-since-last-capture) policy
// this engine follows for time-series capture.
type metrics struct {
	mu sync.Mutex

	startTime       time.Time
	samples         []RequestSample
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	totalDurationMs float64
	minDurationMs   float64
	maxDurationMs   float64
	activeUsers     int
	timeSeries      []TimeSeries
	errorBreakdown  map[string]int64
	lastSampleCount int
}

func newMetrics() *metrics {
	return &metrics{
		startTime:      time.Now(),
		minDurationMs:  math.Inf(1),
		errorBreakdown: make(map[string]int64),
	}
}

func (m *metrics) record(s RequestSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, s)
	m.totalRequests++
	m.totalDurationMs += s.DurationMs

	outcome := "success"
	if s.Success {
		m.successRequests++
	} else {
		m.failedRequests++
		outcome = "failure"
		key := s.Error
		if key == "" {
			key = "unknown error"
		}
		if len(key) > 50 {
			key = key[:50] + "...(truncated)"
		}
		m.errorBreakdown[key]++
	}
	if s.DurationMs < m.minDurationMs {
		m.minDurationMs = s.DurationMs
	}
	if s.DurationMs > m.maxDurationMs {
		m.maxDurationMs = s.DurationMs
	}

	samplesTotal.WithLabelValues(s.JourneyName, outcome).Inc()
	sampleDurationSeconds.WithLabelValues(s.JourneyName).Observe(s.DurationMs / 1000)
}

func (m *metrics) setActiveUsers(n int) {
	m.mu.Lock()
	m.activeUsers = n
	m.mu.Unlock()
	activeWorkersGauge.Set(float64(n))
}

// captureTimeSeriesPoint summarizes every sample recorded since the last
// capture using index-truncated percentiles, distinct from the
// linear-interpolation formula used for the run's final percentiles.
func (m *metrics) captureTimeSeriesPoint() {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.samples[m.lastSampleCount:]
	if len(recent) == 0 {
		return
	}

	durations := make([]float64, len(recent))
	var sum float64
	successCount, errorCount := 0, 0
	for i, s := range recent {
		durations[i] = s.DurationMs
		sum += s.DurationMs
		if s.Success {
			successCount++
		} else {
			errorCount++
		}
	}
	sort.Float64s(durations)

	intervalElapsed := 1.0
	if len(recent) > 1 {
		intervalElapsed = recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp).Seconds()
		if intervalElapsed <= 0 {
			intervalElapsed = 0.001
		}
	}

	point := TimeSeries{
		Timestamp:      time.Now(),
		ElapsedSeconds: time.Since(m.startTime).Seconds(),
		RequestsCount:  len(recent),
		SuccessCount:   successCount,
		ErrorCount:     errorCount,
		ActiveUsers:    m.activeUsers,
		RPS:            float64(len(recent)) / intervalElapsed,
		AvgResponseMs:  sum / float64(len(recent)),
		P50Ms:          truncatedPercentile(durations, 50),
		P95Ms:          truncatedPercentile(durations, 95),
		P99Ms:          truncatedPercentile(durations, 99),
	}
	m.timeSeries = append(m.timeSeries, point)
	m.lastSampleCount = len(m.samples)
}

func (m *metrics) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := time.Since(m.startTime).Seconds()
	avg := 0.0
	if m.totalRequests > 0 {
		avg = m.totalDurationMs / float64(m.totalRequests)
	}
	rps := 0.0
	if elapsed > 0 {
		rps = float64(m.totalRequests) / elapsed
	}
	minMs := m.minDurationMs
	if len(m.samples) == 0 {
		minMs = 0
	}

	return Snapshot{
		ElapsedSeconds: elapsed,
		TotalRequests:  m.totalRequests,
		SuccessfulReqs: m.successRequests,
		FailedRequests: m.failedRequests,
		SuccessRatePct: percentOf(m.successRequests, m.totalRequests),
		ErrorRatePct:   percentOf(m.failedRequests, m.totalRequests),
		AvgDurationMs:  avg,
		MinDurationMs:  minMs,
		MaxDurationMs:  m.maxDurationMs,
		ActualRPS:      rps,
		ActiveUsers:    m.activeUsers,
	}
}

func (m *metrics) timeSeriesCopy() []TimeSeries {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TimeSeries, len(m.timeSeries))
	copy(out, m.timeSeries)
	return out
}

func (m *metrics) errorBreakdownCopy() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.errorBreakdown))
	for k, v := range m.errorBreakdown {
		out[k] = v
	}
	return out
}

func (m *metrics) durationsCopy() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.samples))
	for i, s := range m.samples {
		out[i] = s.DurationMs
	}
	return out
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// percentiles computes p50/p75/p90/p95/p99 over the full post-warmup
// sample set using linear interpolation on the sorted array, per the
// final-summary formula: k = (n-1)*p/100; f = floor(k); value =
// arr[f] + (k-f)*(arr[f+1]-arr[f]).
func percentiles(durations []float64) map[string]float64 {
	if len(durations) == 0 {
		return map[string]float64{}
	}
	sorted := append([]float64(nil), durations...)
	sort.Float64s(sorted)

	calc := func(p float64) float64 {
		n := len(sorted)
		if n == 1 {
			return sorted[0]
		}
		k := float64(n-1) * p / 100
		f := int(k)
		c := f + 1
		if c >= n {
			c = f
		}
		return sorted[f] + (k-float64(f))*(sorted[c]-sorted[f])
	}

	return map[string]float64{
		"p50": calc(50),
		"p75": calc(75),
		"p90": calc(90),
		"p95": calc(95),
		"p99": calc(99),
	}
}

// truncatedPercentile computes one percentile over an already-sorted
// slice using index truncation (idx = floor(n*p/100), clamped), the
// interval time-series formula distinct from percentiles' interpolation.
func truncatedPercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * p / 100)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func stdDeviation(durations []float64) float64 {
	n := len(durations)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, d := range durations {
		mean += d
	}
	mean /= float64(n)

	var sumSq float64
	for _, d := range durations {
		diff := d - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
