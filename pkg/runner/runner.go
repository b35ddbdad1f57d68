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

// Package runner walks a journey's steps and branches against a state
// manager, producing a JourneyResult. It never panics on a user step's
// failure; every action error becomes a StepResult and, usually, an
// Issue.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/execctx"
	"github.com/venomqa/venomqa/pkg/journey"
	"github.com/venomqa/venomqa/pkg/resilience"
	"github.com/venomqa/venomqa/pkg/result"
	"github.com/venomqa/venomqa/pkg/statemanager"
)

// Config controls how a Runner walks a journey.
type Config struct {
	// FailFast stops the walk at the first failing trunk step or
	// checkpoint, and stops a branch path at its first failing step or
	// checkpoint; the branch's remaining paths still run.
	FailFast bool

	// CaptureLogs is not read by the runner: no log lines are collected
	// during a step, and none are attached to its Issue.
	CaptureLogs bool
}

// Runner walks one journey definition against an HTTP capability and an
// optional state manager.
type Runner struct {
	cfg      Config
	resolver journey.ActionResolver
	state    statemanager.StateManager
	retries  map[string]*resilience.RetryPolicy
	log      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithStateManager attaches the state manager a journey's checkpoints and
// branches operate against. Without one, checkpoints are no-ops and any
// branch referencing one is recorded as skipped.
func WithStateManager(sm statemanager.StateManager) Option {
	return func(r *Runner) { r.state = sm }
}

// WithRetryPolicy registers a named retry policy a Step can opt into via
// Step.RetryPolicyName.
func WithRetryPolicy(name string, policy *resilience.RetryPolicy) Option {
	return func(r *Runner) {
		if r.retries == nil {
			r.retries = make(map[string]*resilience.RetryPolicy)
		}
		r.retries[name] = policy
	}
}

// WithLogger overrides the default slog.Logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// New returns a Runner resolving step actions through resolver.
func New(resolver journey.ActionResolver, cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, resolver: resolver, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run walks j's steps and branches to completion (or until fail-fast
// trips, or the journey's own timeout expires), returning the resulting
// JourneyResult. Run itself only returns a non-nil error for a
// construction-level problem (none currently exist, since Journey is
// validated at New time) — step, branch, and state-manager failures are
// all captured as Issues on the returned result.
func (r *Runner) Run(ctx context.Context, j *journey.Journey) (*result.JourneyResult, error) {
	runID := uuid.NewString()
	log := r.log.With("journey", j.Name, "run_id", runID)

	jr := &result.JourneyResult{
		JourneyName: j.Name,
		RunID:       runID,
		StartedAt:   time.Now(),
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	ec := execctx.New()
	w := &walker{runner: r, log: log, ctx: ec}

	for i, item := range j.Items {
		if ctx.Err() != nil {
			jr.Issues = append(jr.Issues, journeyTimeoutIssue(j.Name))
			break
		}

		halt := false
		switch item.Kind {
		case journey.StepKind:
			sr, issue := w.runStep(ctx, item.Step)
			jr.StepResults = append(jr.StepResults, sr)
			if issue != nil {
				jr.Issues = append(jr.Issues, *issue)
			}
			if !sr.Passed && r.cfg.FailFast {
				halt = true
			}

		case journey.CheckpointKind:
			if r.state != nil {
				if err := r.state.Checkpoint(ctx, item.Checkpoint.Name); err != nil {
					issue := result.Issue{
						ID:         uuid.NewString(),
						Severity:   journey.SeverityCritical,
						Message:    fmt.Sprintf("checkpoint %q failed: %v", item.Checkpoint.Name, err),
						Checkpoint: item.Checkpoint.Name,
						OccurredAt: time.Now(),
					}
					jr.Issues = append(jr.Issues, issue)
					if r.cfg.FailFast {
						halt = true
					}
				}
			}

		case journey.BranchKind:
			hasFollowingItems := i < len(j.Items)-1
			br, issues := w.runBranch(ctx, item.Branch, hasFollowingItems)
			jr.BranchResults = append(jr.BranchResults, br)
			jr.Issues = append(jr.Issues, issues...)
		}

		if halt {
			break
		}
	}

	jr.FinishedAt = time.Now()
	log.Debug("journey run finished", "passed", jr.Passed(), "duration", jr.Duration())
	return jr, nil
}

func journeyTimeoutIssue(journeyName string) result.Issue {
	return result.Issue{
		ID:         uuid.NewString(),
		Severity:   journey.SeverityCritical,
		Message:    fmt.Sprintf("journey %q exceeded its timeout", journeyName),
		OccurredAt: time.Now(),
	}
}

// walker carries the mutable state one Run call threads through step and
// branch evaluation: the trunk execution context and a reference back to
// the owning Runner for its resolver/state manager/retry policies.
type walker struct {
	runner *Runner
	log    *slog.Logger
	ctx    *execctx.Context
}

func (w *walker) runStep(ctx context.Context, step journey.Step) (result.StepResult, *result.Issue) {
	start := time.Now()

	action, ok := w.runner.resolver.Resolve(step.Name)
	if !ok {
		err := &venomerrors.JourneyError{Reason: fmt.Sprintf("no action registered for step %q", step.Name)}
		return w.failedStep(step, start, err, 0)
	}

	call := func(ctx context.Context) error {
		out, err := action(ctx, w.ctx)
		if err != nil {
			return err
		}
		w.ctx.Set(step.Name, out)
		return nil
	}

	wrapped := call
	if step.RetryPolicyName != "" {
		if policy, ok := w.runner.retries[step.RetryPolicyName]; ok {
			inner := wrapped
			wrapped = func(ctx context.Context) error {
				return policy.Execute(ctx, inner)
			}
		}
	}

	runCtx := ctx
	if step.Timeout > 0 {
		err := resilience.WithTimeout(ctx, step.Name, step.Timeout, wrapped)
		return w.finishStep(step, start, err)
	}

	err := wrapped(runCtx)
	return w.finishStep(step, start, err)
}

func (w *walker) finishStep(step journey.Step, start time.Time, err error) (result.StepResult, *result.Issue) {
	succeeded := err == nil
	if step.ExpectFailure {
		succeeded = !succeeded
		if succeeded {
			err = nil
		} else if err == nil {
			err = errors.New("expected failure but step succeeded")
		}
	}

	if succeeded {
		return result.StepResult{
			StepName: step.Name,
			Passed:   true,
			Duration: time.Since(start),
		}, nil
	}

	return w.failedStep(step, start, err, 0)
}

func (w *walker) failedStep(step journey.Step, start time.Time, err error, statusCode int) (result.StepResult, *result.Issue) {
	message := err.Error()
	issue := result.Issue{
		ID:         uuid.NewString(),
		StepName:   step.Name,
		Severity:   journey.SeverityHigh,
		Message:    message,
		StatusCode: statusCode,
		Suggestion: result.GenerateSuggestion(statusCode, message),
		OccurredAt: time.Now(),
	}
	sr := result.StepResult{
		StepName: step.Name,
		Passed:   false,
		Duration: time.Since(start),
		Error:    message,
		Issue:    &issue,
	}
	return sr, &issue
}

// runBranch evaluates every path of branch against an independent fork of
// the trunk context, rolling back the state manager to branch's checkpoint
// before each path. hasFollowingItems reports whether any item (step,
// checkpoint, or branch) follows this branch in the journey's sequence;
// when true the post-branch rollback is mandatory rather than advisory.
func (w *walker) runBranch(ctx context.Context, branch journey.Branch, hasFollowingItems bool) (result.BranchResult, []result.Issue) {
	br := result.BranchResult{Checkpoint: branch.Checkpoint}
	var issues []result.Issue

	if w.runner.state == nil {
		issues = append(issues, result.Issue{
			ID:         uuid.NewString(),
			Severity:   journey.SeverityCritical,
			Message:    fmt.Sprintf("branch at checkpoint %q skipped: no state manager configured", branch.Checkpoint),
			Checkpoint: branch.Checkpoint,
			OccurredAt: time.Now(),
		})
		return br, issues
	}

	for _, path := range branch.Paths {
		if err := w.runner.state.Rollback(ctx, branch.Checkpoint); err != nil {
			issues = append(issues, result.Issue{
				ID:         uuid.NewString(),
				Severity:   journey.SeverityCritical,
				Message:    fmt.Sprintf("rollback to checkpoint %q failed: %v", branch.Checkpoint, err),
				Checkpoint: branch.Checkpoint,
				PathName:   path.Name,
				OccurredAt: time.Now(),
			})
			br.PathResults = append(br.PathResults, result.PathResult{PathName: path.Name})
			continue
		}

		pathCtx := w.ctx.Copy()
		pathWalker := &walker{runner: w.runner, log: w.log, ctx: pathCtx}

		pr := result.PathResult{PathName: path.Name}
		haltPath := false
		for _, pi := range path.Items {
			if haltPath {
				break
			}
			switch pi.Kind {
			case journey.PathItemStepKind:
				sr, issue := pathWalker.runStep(ctx, pi.Step)
				sr.Metadata = withPathName(sr.Metadata, path.Name)
				pr.StepResults = append(pr.StepResults, sr)
				if issue != nil {
					issue.PathName = path.Name
					issues = append(issues, *issue)
				}
				if !sr.Passed && w.runner.cfg.FailFast {
					haltPath = true
				}

			case journey.PathItemCheckpointKind:
				if err := w.runner.state.Checkpoint(ctx, pi.Checkpoint.Name); err != nil {
					issue := result.Issue{
						ID:         uuid.NewString(),
						Severity:   journey.SeverityCritical,
						Message:    fmt.Sprintf("checkpoint %q failed: %v", pi.Checkpoint.Name, err),
						Checkpoint: pi.Checkpoint.Name,
						PathName:   path.Name,
						OccurredAt: time.Now(),
					}
					issues = append(issues, issue)
					if w.runner.cfg.FailFast {
						haltPath = true
					}
				}
			}
		}
		br.PathResults = append(br.PathResults, pr)
	}

	if hasFollowingItems || len(branch.Paths) > 0 {
		if err := w.runner.state.Rollback(ctx, branch.Checkpoint); err != nil {
			issues = append(issues, result.Issue{
				ID:         uuid.NewString(),
				Severity:   journey.SeverityCritical,
				Message:    fmt.Sprintf("post-branch rollback to checkpoint %q failed: %v", branch.Checkpoint, err),
				Checkpoint: branch.Checkpoint,
				OccurredAt: time.Now(),
			})
		}
	}

	return br, issues
}

func withPathName(metadata map[string]string, pathName string) map[string]string {
	if metadata == nil {
		metadata = make(map[string]string, 1)
	}
	metadata["path"] = pathName
	return metadata
}
