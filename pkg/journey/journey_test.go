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

package journey_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/execctx"
	"github.com/venomqa/venomqa/pkg/journey"
)

func TestNewValidJourney(t *testing.T) {
	j, err := journey.New("checkout-flow", []journey.Item{
		journey.StepItem(journey.Step{Name: "login"}),
		journey.CheckpointItem("after-login"),
		journey.StepItem(journey.Step{Name: "add-to-cart"}),
		journey.BranchItem(journey.Branch{
			Checkpoint: "after-login",
			Paths: []journey.Path{
				journey.NewPath("happy-path", journey.PathStep(journey.Step{Name: "pay"})),
				journey.NewPath("declined-card", journey.PathStep(journey.Step{Name: "pay"})),
			},
		}),
	})

	require.NoError(t, err)
	require.Equal(t, "checkout-flow", j.Name)
}

func TestTrunkStepCanFollowABranch(t *testing.T) {
	// The case the two-slice Journey model used to make impossible: a
	// trunk step resumes after a branch has been fully evaluated.
	j, err := journey.New("resumes-after-branch", []journey.Item{
		journey.StepItem(journey.Step{Name: "login"}),
		journey.CheckpointItem("after-login"),
		journey.BranchItem(journey.Branch{
			Checkpoint: "after-login",
			Paths:      []journey.Path{journey.NewPath("p1", journey.PathStep(journey.Step{Name: "pay"}))},
		}),
		journey.StepItem(journey.Step{Name: "send-receipt"}),
	})

	require.NoError(t, err)
	require.Len(t, j.Items, 4)
	require.Equal(t, journey.StepKind, j.Items[3].Kind)
	require.Equal(t, "send-receipt", j.Items[3].Step.Name)
}

func TestDuplicateStepNameWithinSameSequence(t *testing.T) {
	_, err := journey.New("j", []journey.Item{
		journey.StepItem(journey.Step{Name: "login"}),
		journey.StepItem(journey.Step{Name: "login"}),
	})

	require.Error(t, err)
	var jerr *venomerrors.JourneyError
	require.ErrorAs(t, err, &jerr)
}

func TestSameStepNameAllowedAcrossDifferentSequences(t *testing.T) {
	// Step name uniqueness is scoped to its own sequence: the trunk and a
	// path may each independently use "pay".
	_, err := journey.New("j", []journey.Item{
		journey.StepItem(journey.Step{Name: "pay"}),
		journey.CheckpointItem("cp"),
		journey.BranchItem(journey.Branch{
			Checkpoint: "cp",
			Paths:      []journey.Path{journey.NewPath("p1", journey.PathStep(journey.Step{Name: "pay"}))},
		}),
	})

	require.NoError(t, err)
}

func TestDuplicateCheckpointName(t *testing.T) {
	_, err := journey.New("j", []journey.Item{
		journey.StepItem(journey.Step{Name: "login"}),
		journey.CheckpointItem("cp"),
		journey.StepItem(journey.Step{Name: "browse"}),
		journey.CheckpointItem("cp"),
	})

	require.Error(t, err)
}

func TestDuplicateCheckpointNameAcrossTrunkAndPath(t *testing.T) {
	// Checkpoint uniqueness is global, unlike step name uniqueness.
	_, err := journey.New("j", []journey.Item{
		journey.CheckpointItem("cp"),
		journey.BranchItem(journey.Branch{
			Checkpoint: "cp",
			Paths:      []journey.Path{journey.NewPath("p1", journey.PathCheckpoint("cp"))},
		}),
	})

	require.Error(t, err)
}

func TestBranchReferencesUnknownCheckpoint(t *testing.T) {
	_, err := journey.New("j", []journey.Item{
		journey.StepItem(journey.Step{Name: "login"}),
		journey.BranchItem(journey.Branch{Checkpoint: "does-not-exist", Paths: []journey.Path{journey.NewPath("p1")}}),
	})

	require.Error(t, err)
}

func TestBranchCannotReferenceACheckpointDefinedLater(t *testing.T) {
	_, err := journey.New("j", []journey.Item{
		journey.BranchItem(journey.Branch{Checkpoint: "cp", Paths: []journey.Path{journey.NewPath("p1")}}),
		journey.CheckpointItem("cp"),
	})

	require.Error(t, err)
}

func TestDuplicatePathName(t *testing.T) {
	_, err := journey.New("j", []journey.Item{
		journey.StepItem(journey.Step{Name: "login"}),
		journey.CheckpointItem("cp"),
		journey.BranchItem(journey.Branch{
			Checkpoint: "cp",
			Paths: []journey.Path{
				journey.NewPath("p1"),
				journey.NewPath("p1"),
			},
		}),
	})

	require.Error(t, err)
}

func TestMapResolver(t *testing.T) {
	resolver := journey.MapResolver{
		"login": func(ctx context.Context, state journey.StepContext) (any, error) {
			return "ok", nil
		},
	}

	fn, ok := resolver.Resolve("login")
	require.True(t, ok)
	out, err := fn(context.Background(), execctx.New())
	require.NoError(t, err)
	require.Equal(t, "ok", out)

	_, ok = resolver.Resolve("missing")
	require.False(t, ok)
}
