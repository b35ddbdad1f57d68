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

package json_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	reportjson "github.com/venomqa/venomqa/pkg/report/json"
	"github.com/venomqa/venomqa/pkg/result"
)

func sampleResults() []*result.JourneyResult {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*result.JourneyResult{
		{
			JourneyName: "checkout",
			RunID:       "run-1",
			StepResults: []result.StepResult{
				{StepName: "login", Passed: true, Duration: 10 * time.Millisecond},
				{StepName: "pay", Passed: false, Error: "402", Issue: &result.Issue{
					ID: "iss-1", StepName: "pay", Message: "payment rejected",
				}},
			},
			Issues:     []result.Issue{{ID: "iss-1", StepName: "pay", Message: "payment rejected"}},
			StartedAt:  start,
			FinishedAt: start.Add(50 * time.Millisecond),
		},
		{
			JourneyName: "signup",
			RunID:       "run-2",
			StepResults: []result.StepResult{
				{StepName: "register", Passed: true, Duration: 5 * time.Millisecond},
			},
			StartedAt:  start,
			FinishedAt: start.Add(5 * time.Millisecond),
		},
	}
}

func TestGenerateProducesWellFormedReport(t *testing.T) {
	r := reportjson.New()
	out, err := r.Generate(sampleResults())
	require.NoError(t, err)
	require.NotEmpty(t, out)

	var report reportjson.Report
	require.NoError(t, json.Unmarshal(out, &report))

	require.Equal(t, "1.0", report.Version)
	require.NotEmpty(t, report.GeneratedAt)
	require.Len(t, report.Journeys, 2)

	require.Equal(t, 2, report.Summary.TotalJourneys)
	require.Equal(t, 1, report.Summary.PassedJourneys)
	require.Equal(t, 1, report.Summary.FailedJourneys)
	require.Equal(t, 3, report.Summary.TotalSteps)
	require.Equal(t, 2, report.Summary.PassedSteps)
	require.Equal(t, 1, report.Summary.FailedSteps)
	require.Equal(t, 1, report.Summary.TotalIssues)
	require.InDelta(t, 50.0, report.Summary.SuccessRate, 0.01)
}

// TestRoundTripReconstructsRecordFields checks that parsing generated
// output reconstructs the per-journey/step/issue fields defined in the
// result package's own record types.
func TestRoundTripReconstructsRecordFields(t *testing.T) {
	r := reportjson.New()
	results := sampleResults()
	out, err := r.Generate(results)
	require.NoError(t, err)

	var report reportjson.Report
	require.NoError(t, json.Unmarshal(out, &report))

	checkout := report.Journeys[0]
	require.Equal(t, "checkout", checkout.JourneyName)
	require.Equal(t, "run-1", checkout.RunID)
	require.False(t, checkout.Success)
	require.Len(t, checkout.StepResults, 2)
	require.Equal(t, "login", checkout.StepResults[0].StepName)
	require.True(t, checkout.StepResults[0].Passed)
	require.Equal(t, "pay", checkout.StepResults[1].StepName)
	require.False(t, checkout.StepResults[1].Passed)
	require.Equal(t, "402", checkout.StepResults[1].Error)
	require.Equal(t, "payment rejected", checkout.StepResults[1].Issue.Message)
	require.Len(t, checkout.Issues, 1)
	require.Equal(t, "iss-1", checkout.Issues[0].ID)

	signup := report.Journeys[1]
	require.True(t, signup.Success)
	require.Equal(t, 1, signup.TotalSteps)
	require.Equal(t, 1, signup.PassedSteps)
}

func TestGenerateEmptyResultsYieldsFullSuccessRate(t *testing.T) {
	r := reportjson.New()
	out, err := r.Generate(nil)
	require.NoError(t, err)

	var report reportjson.Report
	require.NoError(t, json.Unmarshal(out, &report))
	require.Equal(t, 0, report.Summary.TotalJourneys)
	require.Equal(t, 100.0, report.Summary.SuccessRate)
	require.Empty(t, report.Journeys)
}

func TestCompactOutputHasNoIndent(t *testing.T) {
	r := &reportjson.Reporter{}
	out, err := r.Generate(sampleResults())
	require.NoError(t, err)
	require.NotContains(t, string(out), "\n  ")
}
