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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercentilesLinearInterpolation(t *testing.T) {
	durations := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	p := percentiles(durations)

	require.InDelta(t, 55.0, p["p50"], 0.01)
	require.LessOrEqual(t, p["p50"], p["p75"])
	require.LessOrEqual(t, p["p75"], p["p90"])
	require.LessOrEqual(t, p["p90"], p["p95"])
	require.LessOrEqual(t, p["p95"], p["p99"])
}

func TestPercentilesSingleSample(t *testing.T) {
	p := percentiles([]float64{42})
	require.Equal(t, 42.0, p["p50"])
	require.Equal(t, 42.0, p["p99"])
}

func TestPercentilesEmpty(t *testing.T) {
	p := percentiles(nil)
	require.Empty(t, p)
}

func TestTruncatedPercentileIndexBased(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	require.Equal(t, 60.0, truncatedPercentile(sorted, 50))
	require.Equal(t, 100.0, truncatedPercentile(sorted, 99))
}

func TestMetricsRecordTracksMinMaxAndBreakdown(t *testing.T) {
	m := newMetrics()
	m.record(RequestSample{DurationMs: 50, Success: true, JourneyName: "j"})
	m.record(RequestSample{DurationMs: 10, Success: false, Error: "boom", JourneyName: "j"})
	m.record(RequestSample{DurationMs: 90, Success: false, Error: "boom", JourneyName: "j"})

	snap := m.snapshot()
	require.Equal(t, int64(3), snap.TotalRequests)
	require.Equal(t, int64(1), snap.SuccessfulReqs)
	require.Equal(t, int64(2), snap.FailedRequests)
	require.Equal(t, 10.0, snap.MinDurationMs)
	require.Equal(t, 90.0, snap.MaxDurationMs)

	breakdown := m.errorBreakdownCopy()
	require.Equal(t, int64(2), breakdown["boom"])
}

func TestCaptureTimeSeriesPointOnlyCoversNewSamples(t *testing.T) {
	m := newMetrics()
	m.record(RequestSample{DurationMs: 10, Success: true, JourneyName: "j"})
	m.record(RequestSample{DurationMs: 20, Success: true, JourneyName: "j"})
	m.captureTimeSeriesPoint()

	m.record(RequestSample{DurationMs: 30, Success: true, JourneyName: "j"})
	m.captureTimeSeriesPoint()

	series := m.timeSeriesCopy()
	require.Len(t, series, 2)
	require.Equal(t, 2, series[0].RequestsCount)
	require.Equal(t, 1, series[1].RequestsCount)
}

func TestStdDeviation(t *testing.T) {
	require.Equal(t, 0.0, stdDeviation(nil))
	require.Equal(t, 0.0, stdDeviation([]float64{5}))
	require.Greater(t, stdDeviation([]float64{10, 20, 30}), 0.0)
}
