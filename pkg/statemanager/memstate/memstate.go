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

// Package memstate implements an in-memory statemanager.StateManager
// backed by deep-copied snapshots, for journeys that don't need a real
// SQL backend to exercise their checkpoint/rollback semantics.
package memstate

import (
	"context"
	"log/slog"
	"sync"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/statemanager"
)

const checkpointPrefix = "mem_"

var _ statemanager.StateManager = (*Manager)(nil)

// Manager is a statemanager.StateManager storing data as a map[string]any,
// snapshotted on each Checkpoint call via a recursive deep copy.
type Manager struct {
	initial map[string]any
	log     *slog.Logger

	mu          sync.Mutex
	connected   bool
	data        map[string]any
	snapshots   map[string]map[string]any
	checkpoints []string
}

// New returns a Manager seeded with a deep copy of initial (nil is treated
// as an empty initial state).
func New(initial map[string]any, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{initial: deepCopyMap(initial), log: log}
}

func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = deepCopyMap(m.initial)
	m.snapshots = make(map[string]map[string]any)
	m.checkpoints = nil
	m.connected = true
	m.log.Debug("memstate connected")
	return nil
}

func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	m.snapshots = nil
	m.checkpoints = nil
	m.connected = false
	m.log.Debug("memstate disconnected")
	return nil
}

func (m *Manager) Checkpoint(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return &venomerrors.StateError{Op: "checkpoint", Checkpoint: name, Message: "not connected"}
	}

	safe := sanitize(name)
	m.snapshots[safe] = deepCopyMap(m.data)
	m.checkpoints = append(m.checkpoints, safe)
	m.log.Debug("memstate checkpoint created", "checkpoint", safe)
	return nil
}

func (m *Manager) Rollback(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return &venomerrors.StateError{Op: "rollback", Checkpoint: name, Message: "not connected"}
	}

	safe := sanitize(name)
	snap, ok := m.snapshots[safe]
	if !ok {
		return &venomerrors.StateError{Op: "rollback", Checkpoint: name, Message: "checkpoint not found"}
	}

	m.data = deepCopyMap(snap)

	idx := -1
	for i, c := range m.checkpoints {
		if c == safe {
			idx = i
			break
		}
	}
	if idx >= 0 {
		for _, stale := range m.checkpoints[idx+1:] {
			delete(m.snapshots, stale)
		}
		m.checkpoints = m.checkpoints[:idx+1]
	}

	m.log.Debug("memstate rolled back", "checkpoint", safe)
	return nil
}

func (m *Manager) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return &venomerrors.StateError{Op: "release", Checkpoint: name, Message: "not connected"}
	}

	safe := sanitize(name)
	delete(m.snapshots, safe)
	for i, c := range m.checkpoints {
		if c == safe {
			m.checkpoints = append(m.checkpoints[:i], m.checkpoints[i+1:]...)
			break
		}
	}
	m.log.Debug("memstate released", "checkpoint", safe)
	return nil
}

func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return &venomerrors.StateError{Op: "reset", Message: "not connected"}
	}

	m.data = deepCopyMap(m.initial)
	m.snapshots = make(map[string]map[string]any)
	m.checkpoints = nil
	m.log.Debug("memstate reset")
	return nil
}

func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Data returns a deep copy of the current state, for assertions in tests
// or journey actions that need to inspect backing data directly.
func (m *Manager) Data() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deepCopyMap(m.data)
}

// SetData replaces the current state directly, bypassing checkpointing.
func (m *Manager) SetData(data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = deepCopyMap(data)
}

func sanitize(name string) string {
	return statemanager.SanitizeCheckpointName(name, checkpointPrefix, 0)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
