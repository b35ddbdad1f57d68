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
	"time"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
)

// WithTimeout runs fn with a derived context bounded by d, converting a
// context-deadline failure into a *venomerrors.TimeoutError so callers
// (and the retry classifier) see a typed, recoverable error rather than
// a bare context.DeadlineExceeded.
func WithTimeout(ctx context.Context, operation string, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}

	childCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(childCtx)
	if err != nil && childCtx.Err() == context.DeadlineExceeded {
		return &venomerrors.TimeoutError{
			Operation: operation,
			Duration:  d,
			Cause:     err,
		}
	}
	return err
}
