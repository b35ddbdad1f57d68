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

// Package statemanager defines the backend-agnostic checkpoint/rollback
// contract a journey runner uses to isolate each path's side effects, and
// a sanitizer shared by every backend's checkpoint naming scheme.
package statemanager

import (
	"context"
	"strings"
)

// StateManager is implemented by every state backend (in-memory, Postgres,
// SQLite, MySQL). The caller connects it before a run and disconnects it
// afterwards; the runner takes a checkpoint at each Checkpoint item, and
// rolls back to a branch's checkpoint before each of its paths and once
// more after the last one.
type StateManager interface {
	// Connect establishes the underlying connection/session.
	Connect(ctx context.Context) error

	// Disconnect tears down the connection, discarding any open checkpoints.
	Disconnect(ctx context.Context) error

	// Checkpoint records a named savepoint of the current state.
	Checkpoint(ctx context.Context, name string) error

	// Rollback restores state to a previously created checkpoint,
	// invalidating any checkpoints taken after it.
	Rollback(ctx context.Context, name string) error

	// Release discards a checkpoint without restoring to it, freeing
	// whatever resources the backend held for it.
	Release(ctx context.Context, name string) error

	// Reset clears all data back to the backend's initial/clean state.
	Reset(ctx context.Context) error

	// IsConnected reports whether Connect has succeeded and Disconnect
	// has not since been called.
	IsConnected() bool
}

// SanitizeCheckpointName strips any character that is not alphanumeric or
// an underscore, prefixes a leading digit so the result is a valid SQL
// identifier, and applies prefix/maxLen to fit the backend's naming rules
// (e.g. Postgres identifiers are capped at 63 bytes). maxLen <= 0 means
// uncapped.
func SanitizeCheckpointName(name, prefix string, maxLen int) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	safe := b.String()
	if safe != "" && safe[0] >= '0' && safe[0] <= '9' {
		safe = "sp_" + safe
	}

	full := prefix + safe
	if maxLen > 0 && len(full) > maxLen {
		full = full[:maxLen]
	}
	return full
}
