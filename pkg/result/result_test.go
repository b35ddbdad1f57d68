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

package result_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/venomqa/venomqa/pkg/result"
)

func TestJourneyResultRollups(t *testing.T) {
	r := result.JourneyResult{
		StepResults: []result.StepResult{
			{StepName: "login", Passed: true},
			{StepName: "create-order", Passed: true},
		},
		BranchResults: []result.BranchResult{
			{
				Checkpoint: "after-login",
				PathResults: []result.PathResult{
					{
						PathName: "happy-path",
						StepResults: []result.StepResult{
							{StepName: "pay", Passed: true},
						},
					},
					{
						PathName: "declined-card",
						StepResults: []result.StepResult{
							{StepName: "pay", Passed: false},
						},
					},
				},
			},
		},
	}

	require.False(t, r.Passed())
	require.Equal(t, 4, r.TotalSteps())
	require.Equal(t, 3, r.PassedSteps())
	require.Equal(t, 2, r.TotalPaths())
	require.Equal(t, 1, r.PassedPaths())
}

func TestJourneyResultAllPassed(t *testing.T) {
	r := result.JourneyResult{
		StepResults: []result.StepResult{{StepName: "login", Passed: true}},
	}
	require.True(t, r.Passed())
}

func TestPathResultAllPassed(t *testing.T) {
	p := result.PathResult{
		StepResults: []result.StepResult{
			{Passed: true},
			{Passed: true},
		},
	}
	require.True(t, p.AllPassed())

	p.StepResults = append(p.StepResults, result.StepResult{Passed: false})
	require.False(t, p.AllPassed())
}

func TestGenerateSuggestionByStatus(t *testing.T) {
	s := result.GenerateSuggestion(404, "not found")
	require.Contains(t, s, "resource ID")
}

func TestGenerateSuggestionByKeyword(t *testing.T) {
	s := result.GenerateSuggestion(0, "dial tcp: connection refused")
	require.Contains(t, s, "target service")
}

func TestGenerateSuggestionNoMatch(t *testing.T) {
	s := result.GenerateSuggestion(0, "something entirely unexpected")
	require.Empty(t, s)
}

func TestCaptureBodyTruncates(t *testing.T) {
	huge := strings.Repeat("a", 1000)
	captured := result.CaptureBody(huge)
	require.LessOrEqual(t, len(captured), 1000)
	require.Contains(t, captured, "truncated")
}

func TestCaptureBodyJSON(t *testing.T) {
	body := map[string]any{"id": "123", "status": "ok"}
	captured := result.CaptureBody(body)
	require.Contains(t, captured, "\"id\"")
	require.Contains(t, captured, "123")
}

func TestJourneyResultDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := result.JourneyResult{StartedAt: start, FinishedAt: start.Add(5 * time.Second)}
	require.Equal(t, 5*time.Second, r.Duration())
}
