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

// Package config loads the resilience-stack YAML shape (retry,
// circuit_breakers, load_test) and converts it into the in-memory
// config types pkg/resilience and pkg/loadtest consume.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

// RetryConfig is the YAML shape of the retry: top-level key.
type RetryConfig struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	Backoff      string   `yaml:"backoff"`
	InitialDelay float64  `yaml:"initial_delay"`
	MaxDelay     float64  `yaml:"max_delay"`
	RetryOn      []string `yaml:"retry_on,omitempty"`
}

// CircuitBreakerConfig is the YAML shape of one entry under
// circuit_breakers:.
type CircuitBreakerConfig struct {
	FailureThreshold int     `yaml:"failure_threshold"`
	RecoveryTimeout  float64 `yaml:"recovery_timeout"`
	HalfOpenMaxCalls int     `yaml:"half_open_max_calls,omitempty"`
}

// LoadTestConfig is the YAML shape of the load_test: top-level key.
type LoadTestConfig struct {
	Duration      Duration  `yaml:"duration"`
	Users         int       `yaml:"users"`
	RampUp        Duration  `yaml:"ramp_up,omitempty"`
	RampDown      Duration  `yaml:"ramp_down,omitempty"`
	RPS           float64   `yaml:"rps,omitempty"`
	Pattern       string    `yaml:"pattern,omitempty"`
	SampleEvery   Duration  `yaml:"sample_interval,omitempty"`
	ThinkTime     ThinkTime `yaml:"think_time,omitempty"`
	WarmupSeconds Duration  `yaml:"warmup,omitempty"`
}

// Config is the full resilience-stack configuration document described
// in spec §6.
type Config struct {
	Retry           RetryConfig                     `yaml:"retry"`
	CircuitBreakers map[string]CircuitBreakerConfig `yaml:"circuit_breakers,omitempty"`
	LoadTest        LoadTestConfig                  `yaml:"load_test"`
}

// Default returns a Config with the defaults shown in spec §6's example
// document.
func Default() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts:  3,
			Backoff:      "exponential_full_jitter",
			InitialDelay: 1.0,
			MaxDelay:     60.0,
			RetryOn:      []string{"500", "502", "503", "504", "ConnectionError", "Timeout"},
		},
		CircuitBreakers: map[string]CircuitBreakerConfig{
			"default": {FailureThreshold: 5, RecoveryTimeout: 30},
		},
		LoadTest: LoadTestConfig{
			Duration: Duration(60_000_000_000), // 60s
			Users:    10,
		},
	}
}

// Load reads and parses a resilience-stack YAML document from path,
// filling any missing sections with their defaults, then applying
// VENOMQA_*-prefixed environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override a handful of
// load-sensitive knobs without editing the checked-in YAML file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VENOMQA_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := parseIntEnv(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("VENOMQA_LOAD_TEST_USERS"); v != "" {
		if n, err := parseIntEnv(v); err == nil {
			c.LoadTest.Users = n
		}
	}
	if v := os.Getenv("VENOMQA_LOAD_TEST_DURATION"); v != "" {
		node := yaml.Node{Kind: yaml.ScalarNode, Value: v}
		var d Duration
		if err := d.UnmarshalYAML(&node); err == nil {
			c.LoadTest.Duration = d
		}
	}
}

func parseIntEnv(v string) (int, error) {
	var n int
	_, err := fmt.Sscanf(v, "%d", &n)
	return n, err
}

// Validate rejects a Config the core cannot run safely.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return &venomerrors.ValidationError{Field: "retry.max_attempts", Message: "must be >= 1"}
	}
	if c.Retry.InitialDelay < 0 {
		return &venomerrors.ValidationError{Field: "retry.initial_delay", Message: "must be >= 0"}
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return &venomerrors.ValidationError{Field: "retry.max_delay", Message: "must be >= retry.initial_delay"}
	}
	for name, cb := range c.CircuitBreakers {
		if cb.FailureThreshold < 1 {
			return &venomerrors.ValidationError{
				Field:   fmt.Sprintf("circuit_breakers.%s.failure_threshold", name),
				Message: "must be >= 1",
			}
		}
		if cb.RecoveryTimeout < 0 {
			return &venomerrors.ValidationError{
				Field:   fmt.Sprintf("circuit_breakers.%s.recovery_timeout", name),
				Message: "must be >= 0",
			}
		}
	}
	if c.LoadTest.Users < 1 {
		return &venomerrors.ValidationError{Field: "load_test.users", Message: "must be >= 1"}
	}
	if c.LoadTest.Duration.AsDuration() <= 0 {
		return &venomerrors.ValidationError{Field: "load_test.duration", Message: "must be positive"}
	}
	if c.LoadTest.ThinkTime.Max < c.LoadTest.ThinkTime.Min {
		return &venomerrors.ValidationError{Field: "load_test.think_time", Message: "max must be >= min"}
	}
	return nil
}
