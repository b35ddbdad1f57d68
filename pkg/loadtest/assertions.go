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
	"fmt"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

// Assertions declares pass/fail thresholds checked against a Result. A
// nil threshold is not checked.
type Assertions struct {
	MaxP50Ms              *float64
	MaxP90Ms              *float64
	MaxP95Ms              *float64
	MaxP99Ms              *float64
	MaxAvgMs              *float64
	MaxErrorRatePercent   *float64
	MinThroughputRPS      *float64
	MinSuccessRatePercent *float64
}

// Validate checks r against every configured threshold, returning whether
// all passed and the list of human-readable failure messages.
func (a Assertions) Validate(r *Result) (bool, []string) {
	var failures []string

	check := func(threshold *float64, actual float64, exceeds bool, format string) {
		if threshold == nil {
			return
		}
		violated := actual > *threshold
		if !exceeds {
			violated = actual < *threshold
		}
		if violated {
			failures = append(failures, fmt.Sprintf(format, actual, *threshold))
		}
	}

	check(a.MaxP50Ms, r.Percentiles["p50"], true, "P50 latency %.2fms exceeds max %.2fms")
	check(a.MaxP90Ms, r.Percentiles["p90"], true, "P90 latency %.2fms exceeds max %.2fms")
	check(a.MaxP95Ms, r.Percentiles["p95"], true, "P95 latency %.2fms exceeds max %.2fms")
	check(a.MaxP99Ms, r.Percentiles["p99"], true, "P99 latency %.2fms exceeds max %.2fms")
	check(a.MaxAvgMs, r.Metrics.AvgDurationMs, true, "Avg latency %.2fms exceeds max %.2fms")
	check(a.MaxErrorRatePercent, r.ErrorRate, true, "Error rate %.2f%% exceeds max %.2f%%")
	check(a.MinThroughputRPS, r.Throughput, false, "Throughput %.2f req/s below min %.2f req/s")

	if a.MinSuccessRatePercent != nil {
		successRate := 100 - r.ErrorRate
		if successRate < *a.MinSuccessRatePercent {
			failures = append(failures, fmt.Sprintf(
				"Success rate %.2f%% below min %.2f%%", successRate, *a.MinSuccessRatePercent))
		}
	}

	return len(failures) == 0, failures
}

// AssertValid returns a *venomerrors.ValidationError describing every
// violated threshold, or nil if r satisfies all of them.
func (a Assertions) AssertValid(r *Result) error {
	passed, failures := a.Validate(r)
	if passed {
		return nil
	}
	msg := "load test assertions failed:"
	for _, f := range failures {
		msg += "\n  - " + f
	}
	return &venomerrors.ValidationError{Field: "load_test", Message: msg}
}
