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

// Package loadtest drives a journey repeatedly under concurrent load and
// produces latency/throughput statistics.
package loadtest

import (
	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

// Pattern selects how worker concurrency is shaped over the test's
// lifetime. Ramp-up staggering is the only shaping this core implements
// structurally (there is no ramp-down); spike/stress are configuration presets a
// caller builds on top of the same Config (larger RampUpSeconds relative
// to DurationSeconds, etc.) rather than distinct code paths.
type Pattern string

const (
	PatternConstant Pattern = "constant"
	PatternRampUp   Pattern = "ramp_up"
	PatternSpike    Pattern = "spike"
	PatternStress   Pattern = "stress"
)

// Config controls one load test run.
type Config struct {
	// DurationSeconds is the total test duration.
	DurationSeconds float64

	// ConcurrentUsers is the target number of concurrent workers.
	ConcurrentUsers int

	// RampUpSeconds staggers worker starts across this window.
	RampUpSeconds float64

	// RampDownSeconds is reserved for a future graceful wind-down; workers
	// currently stop at the next iteration boundary once the deadline
	// passes, matching the reference implementation's own behavior.
	RampDownSeconds float64

	// RequestsPerSecond, if > 0, rate-limits each worker to one iteration
	// every 1/RequestsPerSecond seconds instead of applying think-time.
	RequestsPerSecond float64

	// Pattern is recorded for reporting; it does not change scheduling.
	Pattern Pattern

	// SampleIntervalSeconds is how often a TimeSeries point is captured.
	SampleIntervalSeconds float64

	// ThinkTimeMin/ThinkTimeMax bound the uniform-random delay applied
	// between a worker's iterations when RequestsPerSecond is 0.
	ThinkTimeMin float64
	ThinkTimeMax float64

	// WarmupSeconds discards samples collected before this elapsed time.
	WarmupSeconds float64
}

// Validate rejects a Config that the engine cannot run safely.
func (c Config) Validate() error {
	if c.DurationSeconds <= 0 {
		return &venomerrors.ValidationError{Field: "duration_seconds", Message: "must be positive"}
	}
	if c.ConcurrentUsers < 1 {
		return &venomerrors.ValidationError{Field: "concurrent_users", Message: "must be >= 1"}
	}
	if c.RampUpSeconds < 0 {
		return &venomerrors.ValidationError{Field: "ramp_up_seconds", Message: "must be >= 0"}
	}
	if c.RampDownSeconds < 0 {
		return &venomerrors.ValidationError{Field: "ramp_down_seconds", Message: "must be >= 0"}
	}
	if c.ThinkTimeMin < 0 {
		return &venomerrors.ValidationError{Field: "think_time_min", Message: "must be >= 0"}
	}
	if c.ThinkTimeMax < c.ThinkTimeMin {
		return &venomerrors.ValidationError{Field: "think_time_max", Message: "must be >= think_time_min"}
	}
	if c.WarmupSeconds < 0 {
		return &venomerrors.ValidationError{Field: "warmup_seconds", Message: "must be >= 0"}
	}
	return nil
}
