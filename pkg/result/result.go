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

// Package result holds the record types a journey run produces: one
// StepResult per executed step, rolled up into PathResult, BranchResult
// and finally JourneyResult, plus the Issue records a failure generates.
package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/venomqa/venomqa/pkg/journey"
)

// StepResult records the outcome of one executed step.
type StepResult struct {
	StepName string            `json:"step_name"`
	Passed   bool              `json:"passed"`
	Duration time.Duration     `json:"duration"`
	Output   any               `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
	Issue    *Issue            `json:"issue,omitempty"`
	Attempts int               `json:"attempts,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PathResult records the outcome of one branch path: the sequence of
// step results it produced and whether every one of them passed.
type PathResult struct {
	PathName    string       `json:"path_name"`
	StepResults []StepResult `json:"step_results"`
}

// AllPassed reports whether every step in this path passed.
func (p PathResult) AllPassed() bool {
	for _, sr := range p.StepResults {
		if !sr.Passed {
			return false
		}
	}
	return true
}

// BranchResult records the outcome of one branch: every path explored
// from its checkpoint.
type BranchResult struct {
	Checkpoint  string       `json:"checkpoint"`
	PathResults []PathResult `json:"path_results"`
}

// AllPassed reports whether every path in this branch passed.
func (b BranchResult) AllPassed() bool {
	for _, pr := range b.PathResults {
		if !pr.AllPassed() {
			return false
		}
	}
	return true
}

// Issue is a recorded defect: a step failed (or, for an ExpectFailure
// step, unexpectedly succeeded), with enough captured context to
// diagnose it without rerunning the journey.
type Issue struct {
	ID          string            `json:"id"`
	StepName    string            `json:"step_name"`
	Severity    journey.Severity  `json:"severity"`
	Message     string            `json:"message"`
	Suggestion  string            `json:"suggestion,omitempty"`
	StatusCode  int               `json:"status_code,omitempty"`
	Request     string            `json:"request,omitempty"`
	Response    string            `json:"response,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
	PathName    string            `json:"path_name,omitempty"`
	Checkpoint  string            `json:"checkpoint,omitempty"`
	ExtraFields map[string]string `json:"extra_fields,omitempty"`
}

const maxCapturedBodyLen = 500

// CaptureBody renders v as pretty JSON, truncated to avoid bloating a
// report with large response payloads, falling back to its string form
// if it isn't JSON-serializable.
func CaptureBody(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.MarshalIndent(v, "", "  ")
	var s string
	if err != nil {
		if str, ok := v.(string); ok {
			s = str
		} else {
			s = fmt.Sprintf("%v", v)
		}
	} else {
		s = string(b)
	}
	if len(s) > maxCapturedBodyLen {
		return s[:maxCapturedBodyLen] + "...(truncated)"
	}
	return s
}

// suggestionsByStatus maps common HTTP status codes to actionable hints,
// used when a caller does not supply an explicit Suggestion.
var suggestionsByStatus = map[int]string{
	400: "check the request payload against the endpoint's expected schema",
	401: "verify the journey's authentication step ran and its token was captured",
	403: "check the test identity's permissions for this operation",
	404: "verify the resource ID used in this step was captured from a prior step's output",
	409: "the resource may already exist or be in a conflicting state; check test isolation",
	422: "the request failed validation; check required fields and value constraints",
	429: "the journey is exceeding the target service's rate limit; add think-time or back off",
	500: "the target service raised an internal error; check its logs for a stack trace",
	502: "the target service's upstream dependency may be unavailable",
	503: "the target service may be overloaded or in maintenance",
	504: "the target service's upstream dependency timed out",
}

// suggestionKeywords maps substrings found in an error message to hints,
// checked when no status-code suggestion applies.
var suggestionKeywords = []struct {
	keyword    string
	suggestion string
}{
	{"timeout", "increase the step timeout or check the target service's latency"},
	{"connection refused", "verify the target service is running and reachable"},
	{"no such host", "check the configured base URL/hostname"},
	{"eof", "the connection was closed unexpectedly; check for a crashed or restarting service"},
}

// GenerateSuggestion returns a suggestion for an Issue lacking one,
// preferring a status-code match and falling back to a keyword match
// against the failure message.
func GenerateSuggestion(statusCode int, message string) string {
	if s, ok := suggestionsByStatus[statusCode]; ok {
		return s
	}
	lower := strings.ToLower(message)
	for _, kw := range suggestionKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.suggestion
		}
	}
	return ""
}

// JourneyResult is the top-level outcome of one journey run.
type JourneyResult struct {
	JourneyName  string         `json:"journey_name"`
	RunID        string         `json:"run_id"`
	StepResults  []StepResult   `json:"step_results"`
	BranchResults []BranchResult `json:"branch_results"`
	Issues       []Issue        `json:"issues"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// Passed reports whether the run succeeded: no Issue of severity high or
// critical was recorded, and every linear step and every branch path
// passed.
func (r JourneyResult) Passed() bool {
	for _, is := range r.Issues {
		if is.Severity == journey.SeverityCritical || is.Severity == journey.SeverityHigh {
			return false
		}
	}
	for _, sr := range r.StepResults {
		if !sr.Passed {
			return false
		}
	}
	for _, br := range r.BranchResults {
		if !br.AllPassed() {
			return false
		}
	}
	return true
}

// TotalSteps counts every step result across the linear steps and every
// branch path.
func (r JourneyResult) TotalSteps() int {
	total := len(r.StepResults)
	for _, br := range r.BranchResults {
		for _, pr := range br.PathResults {
			total += len(pr.StepResults)
		}
	}
	return total
}

// PassedSteps counts every passing step result across the linear steps
// and every branch path.
func (r JourneyResult) PassedSteps() int {
	passed := 0
	for _, sr := range r.StepResults {
		if sr.Passed {
			passed++
		}
	}
	for _, br := range r.BranchResults {
		for _, pr := range br.PathResults {
			for _, sr := range pr.StepResults {
				if sr.Passed {
					passed++
				}
			}
		}
	}
	return passed
}

// TotalPaths counts every path explored across every branch.
func (r JourneyResult) TotalPaths() int {
	total := 0
	for _, br := range r.BranchResults {
		total += len(br.PathResults)
	}
	return total
}

// PassedPaths counts every path where all its steps passed.
func (r JourneyResult) PassedPaths() int {
	passed := 0
	for _, br := range r.BranchResults {
		for _, pr := range br.PathResults {
			if pr.AllPassed() {
				passed++
			}
		}
	}
	return passed
}

// Duration is how long the journey run took end to end.
func (r JourneyResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
