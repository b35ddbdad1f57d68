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
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be loaded from a plain scalar
// like "60s" or "1m" in the resilience-stack YAML (§6), rather than
// yaml.v3's default int64-nanoseconds representation.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string ("60s", "1m", "1.5h")
// or a bare number, treated as whole seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			if secs, nerr := strconv.ParseFloat(raw, 64); nerr == nil {
				*d = Duration(time.Duration(secs * float64(time.Second)))
				return nil
			}
			return fmt.Errorf("invalid duration %q: %w", raw, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration in Go's canonical string form, so a
// round-tripped config stays human-readable.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// AsDuration converts to a standard time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// ThinkTime is a think-time bound, parsed from either a single value
// ("2s", applied as both min and max) or a range ("1-3s").
type ThinkTime struct {
	Min time.Duration
	Max time.Duration
}

// UnmarshalYAML parses "1-3s"-style ranges and plain "2s" scalars.
func (tt *ThinkTime) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid think_time: %w", err)
	}

	if idx := strings.IndexByte(raw, '-'); idx > 0 {
		lo, hi := raw[:idx], raw[idx+1:]
		min, err := time.ParseDuration(maybeAppendUnit(lo, hi))
		if err != nil {
			return fmt.Errorf("invalid think_time range %q: %w", raw, err)
		}
		max, err := time.ParseDuration(hi)
		if err != nil {
			return fmt.Errorf("invalid think_time range %q: %w", raw, err)
		}
		tt.Min, tt.Max = min, max
		return nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid think_time %q: %w", raw, err)
	}
	tt.Min, tt.Max = v, v
	return nil
}

// MarshalYAML renders the bound in a form UnmarshalYAML accepts: a single
// value when Min equals Max, otherwise a "min-max" range such as "1s-3s".
func (tt ThinkTime) MarshalYAML() (any, error) {
	if tt.Min == tt.Max {
		return tt.Min.String(), nil
	}
	return tt.Min.String() + "-" + tt.Max.String(), nil
}

// maybeAppendUnit borrows the unit suffix from hi ("3s") when lo ("1")
// has none, so "1-3s" parses both bounds as seconds.
func maybeAppendUnit(lo, hi string) string {
	if _, err := strconv.ParseFloat(lo, 64); err != nil {
		return lo
	}
	i := len(hi)
	for i > 0 && !isDigit(hi[i-1]) {
		i--
	}
	return lo + hi[i:]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
