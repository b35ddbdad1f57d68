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

package cli

import (
	"fmt"
	"os"
)

// Exit codes a subcommand's ExitError can carry. Success (0) is implicit:
// a subcommand that returns nil from RunE never reaches HandleExitError.
const (
	ExitGeneral       = 1
	ExitInvalidConfig = 2
	ExitJourneyFailed = 3
)

// ExitError is an error that carries the process exit code main should
// use once it propagates up through cobra.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Cause }

// NewConfigError wraps a resilience-stack YAML validation failure.
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidConfig, Message: msg, Cause: cause}
}

// NewJourneyFailedError reports that a journey ran to completion but at
// least one of its results did not pass (spec §6: non-zero exit whenever
// any journey's success is false).
func NewJourneyFailedError(msg string) *ExitError {
	return &ExitError{Code: ExitJourneyFailed, Message: msg}
}

// HandleExitError prints err and exits the process with its carried code,
// or ExitGeneral for an error that isn't an *ExitError.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	if exitErr, ok := err.(*ExitError); ok {
		fmt.Fprintln(os.Stderr, "Error:", exitErr.Error())
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	os.Exit(ExitGeneral)
}
