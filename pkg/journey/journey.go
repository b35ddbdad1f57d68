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

// Package journey defines the VenomQA journey model: ordered steps,
// savepoint checkpoints, and the branches explored from them.
package journey

import (
	"context"
	"time"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/execctx"
)

// StepContext is the execution context an ActionFunc observes and
// contributes to: every prior step's recorded output, reachable through
// execctx's typed accessors.
type StepContext = *execctx.Context

// Severity classifies how serious an Issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ActionFunc performs one step's work against the system under test. It
// receives the execution context up to and including this step, and
// returns the value to be recorded for this step (stored in the context
// under the step's name) or an error.
type ActionFunc func(ctx context.Context, state StepContext) (any, error)

// ActionResolver looks up the ActionFunc to run for a named step. A
// journey is built from step names plus a resolver rather than closures
// baked directly into the Step, so the same journey definition can be
// replayed against different resolvers (e.g. a test double).
type ActionResolver interface {
	Resolve(stepName string) (ActionFunc, bool)
}

// MapResolver is a reference ActionResolver backed by a plain map.
type MapResolver map[string]ActionFunc

func (m MapResolver) Resolve(stepName string) (ActionFunc, bool) {
	fn, ok := m[stepName]
	return fn, ok
}

// Step is one unit of work in a journey.
type Step struct {
	// Name uniquely identifies this step within its sequence (the
	// journey's trunk, or a single path — the same name may recur in a
	// different sequence).
	Name string

	// Timeout bounds this step's execution. Zero means no per-step timeout
	// beyond the journey's own deadline.
	Timeout time.Duration

	// ExpectFailure inverts the step's pass/fail verdict: an action error
	// becomes a pass, and a successful action becomes a failure. No Issue
	// is recorded when inversion yields success.
	ExpectFailure bool

	// RetryPolicyName, if non-empty, selects a named retry policy to wrap
	// this step's action with. Empty means no retry wrapping.
	RetryPolicyName string
}

// Checkpoint instructs the runner to materialize a savepoint of the state
// manager's data under Name, for a later Branch to roll back to. It is
// its own sequence item, not a property of the step before it.
type Checkpoint struct {
	Name string
}

// Branch is a reference to a prior Checkpoint together with the
// alternative Paths explored from it, each restored independently to the
// checkpoint's state before it runs.
type Branch struct {
	// Checkpoint is the name of a Checkpoint that must appear earlier in
	// the same journey's item sequence.
	Checkpoint string

	// Paths are explored in order. After the last path, the runner
	// restores state to Checkpoint so journey execution continues from a
	// clean, known point whenever an item follows this branch (spec:
	// required post-branch rollback).
	Paths []Path
}

// PathItemKind selects which field of a PathItem is meaningful.
type PathItemKind int

const (
	PathItemStepKind PathItemKind = iota
	PathItemCheckpointKind
)

// PathItem is one element of a Path's sequence: a Step or a nested
// Checkpoint. Branches never nest inside a path — branches are flat
// within a journey.
type PathItem struct {
	Kind       PathItemKind
	Step       Step
	Checkpoint Checkpoint
}

// PathStep wraps s as a Path sequence item.
func PathStep(s Step) PathItem { return PathItem{Kind: PathItemStepKind, Step: s} }

// PathCheckpoint wraps a checkpoint named name as a Path sequence item.
func PathCheckpoint(name string) PathItem {
	return PathItem{Kind: PathItemCheckpointKind, Checkpoint: Checkpoint{Name: name}}
}

// Path is one named alternative continuation explored from a Branch's
// checkpoint, with its own sub-sequence of steps and nested checkpoints.
type Path struct {
	// Name identifies this path for reporting.
	Name string

	// Items executed in order, starting from the branch's checkpoint
	// state.
	Items []PathItem
}

// NewPath builds a Path from a name and its sequence items.
func NewPath(name string, items ...PathItem) Path {
	return Path{Name: name, Items: items}
}

// ItemKind selects which field of an Item is meaningful.
type ItemKind int

const (
	StepKind ItemKind = iota
	CheckpointKind
	BranchKind
)

// Item is one element of a Journey's ordered sequence: a Step, a
// Checkpoint, or a Branch. Which field is meaningful is selected by Kind,
// set by the StepItem/CheckpointItem/BranchItem constructors.
type Item struct {
	Kind       ItemKind
	Step       Step
	Checkpoint Checkpoint
	Branch     Branch
}

// StepItem wraps s as a Journey sequence item.
func StepItem(s Step) Item { return Item{Kind: StepKind, Step: s} }

// CheckpointItem wraps a checkpoint named name as a Journey sequence item.
func CheckpointItem(name string) Item {
	return Item{Kind: CheckpointKind, Checkpoint: Checkpoint{Name: name}}
}

// BranchItem wraps b as a Journey sequence item.
func BranchItem(b Branch) Item { return Item{Kind: BranchKind, Branch: b} }

// Journey is an ordered sequence of steps, checkpoints and branches,
// together with construction-time invariants that must hold before it
// can run.
type Journey struct {
	// Name identifies the journey for reporting and logging.
	Name string

	// Timeout bounds the whole journey's execution. Zero means no
	// journey-level deadline beyond the caller's own context.
	Timeout time.Duration

	// Items is the ordered sequence of Step, Checkpoint and Branch
	// elements making up the journey, walked in order.
	Items []Item
}

// New validates and returns a Journey. It is the only supported
// constructor: invariant violations are reported here rather than
// discovered mid-run.
//
// Three invariants are enforced:
//  1. every Branch's Checkpoint names a Checkpoint appearing earlier in
//     items;
//  2. step names are unique within any single sequence (the trunk, or a
//     single path — the same name may recur across different sequences);
//  3. checkpoint names are unique across the whole journey, including
//     those nested inside paths.
func New(name string, items []Item) (*Journey, error) {
	j := &Journey{Name: name, Items: items}
	if err := j.validate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journey) validate() error {
	allCheckpoints := make(map[string]bool)
	precedingCheckpoints := make(map[string]bool)
	seenSteps := make(map[string]bool, len(j.Items))

	for _, item := range j.Items {
		switch item.Kind {
		case StepKind:
			s := item.Step
			if s.Name == "" {
				return &venomerrors.JourneyError{Journey: j.Name, Reason: "step name must not be empty"}
			}
			if seenSteps[s.Name] {
				return &venomerrors.JourneyError{Journey: j.Name, Reason: "duplicate step name \"" + s.Name + "\""}
			}
			seenSteps[s.Name] = true

		case CheckpointKind:
			name := item.Checkpoint.Name
			if name == "" {
				return &venomerrors.JourneyError{Journey: j.Name, Reason: "checkpoint name must not be empty"}
			}
			if allCheckpoints[name] {
				return &venomerrors.JourneyError{Journey: j.Name, Reason: "duplicate checkpoint name \"" + name + "\""}
			}
			allCheckpoints[name] = true
			precedingCheckpoints[name] = true

		case BranchKind:
			b := item.Branch
			if b.Checkpoint == "" {
				return &venomerrors.JourneyError{Journey: j.Name, Reason: "branch checkpoint must not be empty"}
			}
			if !precedingCheckpoints[b.Checkpoint] {
				return &venomerrors.JourneyError{Journey: j.Name, Reason: "branch references checkpoint \"" + b.Checkpoint + "\" which is not created by an earlier item"}
			}

			seenPaths := make(map[string]bool, len(b.Paths))
			for _, p := range b.Paths {
				if p.Name == "" {
					return &venomerrors.JourneyError{Journey: j.Name, Reason: "path name must not be empty"}
				}
				if seenPaths[p.Name] {
					return &venomerrors.JourneyError{Journey: j.Name, Reason: "duplicate path name \"" + p.Name + "\" in branch at \"" + b.Checkpoint + "\""}
				}
				seenPaths[p.Name] = true

				pathStepNames := make(map[string]bool)
				for _, pi := range p.Items {
					switch pi.Kind {
					case PathItemStepKind:
						if pi.Step.Name == "" {
							return &venomerrors.JourneyError{Journey: j.Name, Reason: "step name must not be empty"}
						}
						if pathStepNames[pi.Step.Name] {
							return &venomerrors.JourneyError{Journey: j.Name, Reason: "duplicate step name \"" + pi.Step.Name + "\" in path \"" + p.Name + "\""}
						}
						pathStepNames[pi.Step.Name] = true

					case PathItemCheckpointKind:
						name := pi.Checkpoint.Name
						if name == "" {
							return &venomerrors.JourneyError{Journey: j.Name, Reason: "checkpoint name must not be empty"}
						}
						if allCheckpoints[name] {
							return &venomerrors.JourneyError{Journey: j.Name, Reason: "duplicate checkpoint name \"" + name + "\""}
						}
						allCheckpoints[name] = true
					}
				}
			}
		}
	}

	return nil
}
