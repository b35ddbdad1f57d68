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

package errors_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

func TestConnectionError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &venomerrors.ConnectionError{
		Target:  "postgres",
		Message: "could not connect",
		Cause:   cause,
	}

	if got := err.Error(); got != "connection to postgres failed: could not connect" {
		t.Errorf("Error() = %q", got)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return cause")
	}
	if !err.Recoverable() {
		t.Error("ConnectionError should be recoverable")
	}
}

func TestStateError(t *testing.T) {
	tests := []struct {
		name       string
		err        *venomerrors.StateError
		wantMsg    string
		wantRecov  bool
	}{
		{
			name: "with checkpoint",
			err: &venomerrors.StateError{
				Op:         "rollback",
				Checkpoint: "after-login",
				Message:    "checkpoint has been invalidated",
			},
			wantMsg:   `state rollback failed at checkpoint "after-login": checkpoint has been invalidated`,
			wantRecov: false,
		},
		{
			name: "without checkpoint",
			err: &venomerrors.StateError{
				Op:      "connect",
				Message: "not connected",
			},
			wantMsg:   "state connect failed: not connected",
			wantRecov: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if tt.err.Recoverable() != tt.wantRecov {
				t.Errorf("Recoverable() = %v, want %v", tt.err.Recoverable(), tt.wantRecov)
			}
		})
	}
}

func TestJourneyError(t *testing.T) {
	err := &venomerrors.JourneyError{
		Journey: "checkout-flow",
		Reason:  "duplicate step name \"login\"",
	}

	want := `journey "checkout-flow": duplicate step name "login"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Recoverable() {
		t.Error("JourneyError should not be recoverable")
	}
}

func TestCircuitOpenError(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := &venomerrors.CircuitOpenError{
		Name:       "payments-api",
		OpenedAt:   now,
		RecoversAt: now.Add(30 * time.Second),
	}

	if err.Recoverable() {
		t.Error("CircuitOpenError should not be directly recoverable")
	}
	if !strings.Contains(err.Error(), "payments-api") {
		t.Errorf("Error() = %q, want it to mention circuit name", err.Error())
	}
}

func TestRetryExhaustedError(t *testing.T) {
	last := errors.New("connection reset")
	err := &venomerrors.RetryExhaustedError{
		Attempts: 3,
		LastErr:  last,
	}

	if err.Unwrap() != last {
		t.Error("Unwrap() should return last error")
	}
	if err.Recoverable() {
		t.Error("RetryExhaustedError should not be recoverable")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("Error() = %q, want attempt count", err.Error())
	}
}

func TestRateLimitedError(t *testing.T) {
	err := &venomerrors.RateLimitedError{
		Operation:  "create-order",
		RetryAfter: 2 * time.Second,
	}

	if !err.Recoverable() {
		t.Error("RateLimitedError should be recoverable")
	}
	if !strings.Contains(err.Error(), "2s") {
		t.Errorf("Error() = %q, want retry-after duration", err.Error())
	}

	noHint := &venomerrors.RateLimitedError{Operation: "create-order"}
	if !strings.Contains(noHint.Error(), "create-order") {
		t.Errorf("Error() = %q", noHint.Error())
	}
}
