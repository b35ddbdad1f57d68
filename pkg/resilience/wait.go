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

package resilience

import (
	"context"
	"fmt"
	"time"
)

// WaitTimeoutError is returned by WaitFor/PollUntil when the condition
// never became true before the deadline.
type WaitTimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%s: condition not met within %s", e.Operation, e.Timeout)
}

// Recoverable is false: the caller has already waited the full budget,
// so a surrounding retry policy gains nothing from trying again
// immediately.
func (e *WaitTimeoutError) Recoverable() bool {
	return false
}

// WaitFor polls condition every interval until it returns true, returns
// an error, ctx is cancelled, or timeout elapses. It is the building
// block behind eventually-consistent assertions in a journey step (e.g.
// waiting for an async side effect to land).
func WaitFor(ctx context.Context, operation string, interval, timeout time.Duration, condition func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := condition(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return &WaitTimeoutError{Operation: operation, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollUntil is an alias for WaitFor kept under the name the original
// implementation used for the same helper, since some callers read more
// naturally as "poll until X happens" than "wait for X".
func PollUntil(ctx context.Context, operation string, interval, timeout time.Duration, condition func(ctx context.Context) (bool, error)) error {
	return WaitFor(ctx, operation, interval, timeout, condition)
}
