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

// Package json is the one reference result reporter this repo ships:
// a stable JSON rendering of a run's JourneyResults plus a rolled-up
// summary. JUnit/SARIF/HTML/webhook emitters are out of scope (§6).
package json

import (
	"encoding/json"
	"time"

	"github.com/venomqa/venomqa/pkg/result"
)

const reportVersion = "1.0"

// Report is the top-level document one reporter Generate call produces.
type Report struct {
	GeneratedAt string         `json:"generated_at"`
	Version     string         `json:"version"`
	Summary     Summary        `json:"summary"`
	Journeys    []JourneyEntry `json:"journeys"`
}

// Summary rolls up pass/fail counts across every journey in the report.
type Summary struct {
	TotalJourneys  int     `json:"total_journeys"`
	PassedJourneys int     `json:"passed_journeys"`
	FailedJourneys int     `json:"failed_journeys"`
	TotalSteps     int     `json:"total_steps"`
	PassedSteps    int     `json:"passed_steps"`
	FailedSteps    int     `json:"failed_steps"`
	TotalPaths     int     `json:"total_paths"`
	PassedPaths    int     `json:"passed_paths"`
	FailedPaths    int     `json:"failed_paths"`
	TotalIssues    int     `json:"total_issues"`
	TotalDuration  float64 `json:"total_duration_ms"`
	SuccessRate    float64 `json:"success_rate"`
}

// JourneyEntry is one journey's result, reshaped for stable JSON output.
type JourneyEntry struct {
	JourneyName   string                `json:"journey_name"`
	RunID         string                `json:"run_id"`
	Success       bool                  `json:"success"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	DurationMs    float64               `json:"duration_ms"`
	TotalSteps    int                   `json:"total_steps"`
	PassedSteps   int                   `json:"passed_steps"`
	TotalPaths    int                   `json:"total_paths"`
	PassedPaths   int                   `json:"passed_paths"`
	StepResults   []result.StepResult   `json:"step_results"`
	BranchResults []result.BranchResult `json:"branch_results"`
	Issues        []result.Issue        `json:"issues"`
}

// Reporter renders a slice of JourneyResults as one JSON document.
type Reporter struct {
	// Indent controls json.MarshalIndent's indent string; empty means
	// compact (no indentation) output, matching encoding/json's default.
	Indent string
}

// New returns a Reporter that pretty-prints with a 2-space indent, the
// reference implementation's own default.
func New() *Reporter {
	return &Reporter{Indent: "  "}
}

// Generate renders results as one JSON document.
func (r *Reporter) Generate(results []*result.JourneyResult) ([]byte, error) {
	report := Report{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     reportVersion,
		Summary:     buildSummary(results),
		Journeys:    make([]JourneyEntry, 0, len(results)),
	}
	for _, jr := range results {
		report.Journeys = append(report.Journeys, toJourneyEntry(jr))
	}

	if r.Indent != "" {
		return json.MarshalIndent(report, "", r.Indent)
	}
	return json.Marshal(report)
}

func buildSummary(results []*result.JourneyResult) Summary {
	s := Summary{TotalJourneys: len(results)}
	for _, jr := range results {
		if jr.Passed() {
			s.PassedJourneys++
		}
		s.TotalSteps += jr.TotalSteps()
		s.PassedSteps += jr.PassedSteps()
		s.TotalPaths += jr.TotalPaths()
		s.PassedPaths += jr.PassedPaths()
		s.TotalIssues += len(jr.Issues)
		s.TotalDuration += float64(jr.Duration().Milliseconds())
	}
	s.FailedJourneys = s.TotalJourneys - s.PassedJourneys
	s.FailedSteps = s.TotalSteps - s.PassedSteps
	s.FailedPaths = s.TotalPaths - s.PassedPaths
	if s.TotalJourneys > 0 {
		s.SuccessRate = float64(s.PassedJourneys) / float64(s.TotalJourneys) * 100
	} else {
		s.SuccessRate = 100.0
	}
	return s
}

func toJourneyEntry(jr *result.JourneyResult) JourneyEntry {
	return JourneyEntry{
		JourneyName:   jr.JourneyName,
		RunID:         jr.RunID,
		Success:       jr.Passed(),
		StartedAt:     jr.StartedAt,
		FinishedAt:    jr.FinishedAt,
		DurationMs:    float64(jr.Duration().Milliseconds()),
		TotalSteps:    jr.TotalSteps(),
		PassedSteps:   jr.PassedSteps(),
		TotalPaths:    jr.TotalPaths(),
		PassedPaths:   jr.PassedPaths(),
		StepResults:   jr.StepResults,
		BranchResults: jr.BranchResults,
		Issues:        jr.Issues,
	}
}
