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

package config

import (
	"strconv"
	"time"

	"github.com/venomqa/venomqa/internal/util"
	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/loadtest"
	"github.com/venomqa/venomqa/pkg/resilience"
)

// ToRetryConfig converts the YAML retry: section into the in-memory
// config pkg/resilience.RetryPolicy consumes. When retry_on is given, it
// overrides the policy's default Recoverable()-based classification with
// a lookup against the configured HTTP status codes and error kind names.
func (c *Config) ToRetryConfig() resilience.RetryConfig {
	cfg := resilience.RetryConfig{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.InitialDelay * float64(time.Second)),
		MaxDelay:    time.Duration(c.Retry.MaxDelay * float64(time.Second)),
		Strategy:    resilience.BackoffStrategy(c.Retry.Backoff),
	}
	if len(c.Retry.RetryOn) > 0 {
		cfg.Classify = classifyRetryOn(c.Retry.RetryOn)
	}
	return cfg
}

// classifyRetryOn builds a Classify func matching spec §6's retry_on list:
// HTTP status codes given as strings ("500") and error kind names
// ("ConnectionError", "Timeout"). Any error outside those kinds falls back
// to its own Recoverable() bool.
func classifyRetryOn(retryOn []string) func(error) bool {
	return func(err error) bool {
		switch e := err.(type) {
		case *venomerrors.RequestError:
			if util.Contains(retryOn, strconv.Itoa(e.StatusCode)) {
				return true
			}
		case *venomerrors.ConnectionError:
			if util.Contains(retryOn, "ConnectionError") {
				return true
			}
		case *venomerrors.TimeoutError:
			if util.Contains(retryOn, "Timeout") {
				return true
			}
		}
		if r, ok := err.(interface{ Recoverable() bool }); ok {
			return r.Recoverable()
		}
		return false
	}
}

// ToCircuitBreakerConfigs converts every circuit_breakers: entry into
// the in-memory config pkg/resilience.CircuitBreaker consumes, keyed by
// the same name used in the YAML document.
func (c *Config) ToCircuitBreakerConfigs() map[string]resilience.CircuitBreakerConfig {
	out := make(map[string]resilience.CircuitBreakerConfig, len(c.CircuitBreakers))
	for name, cb := range c.CircuitBreakers {
		out[name] = resilience.CircuitBreakerConfig{
			Name:             name,
			FailureThreshold: cb.FailureThreshold,
			RecoveryTimeout:  time.Duration(cb.RecoveryTimeout * float64(time.Second)),
			HalfOpenMaxCalls: cb.HalfOpenMaxCalls,
		}
	}
	return out
}

// ToLoadTestConfig converts the YAML load_test: section into the
// in-memory config pkg/loadtest.Tester consumes.
func (c *Config) ToLoadTestConfig() loadtest.Config {
	lt := c.LoadTest
	return loadtest.Config{
		DurationSeconds:       lt.Duration.AsDuration().Seconds(),
		ConcurrentUsers:       lt.Users,
		RampUpSeconds:         lt.RampUp.AsDuration().Seconds(),
		RampDownSeconds:       lt.RampDown.AsDuration().Seconds(),
		RequestsPerSecond:     lt.RPS,
		Pattern:               loadtest.Pattern(orDefault(lt.Pattern, string(loadtest.PatternConstant))),
		SampleIntervalSeconds: lt.SampleEvery.AsDuration().Seconds(),
		ThinkTimeMin:          lt.ThinkTime.Min.Seconds(),
		ThinkTimeMax:          lt.ThinkTime.Max.Seconds(),
		WarmupSeconds:         lt.WarmupSeconds.AsDuration().Seconds(),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
