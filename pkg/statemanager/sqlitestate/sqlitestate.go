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

// Package sqlitestate implements statemanager.StateManager against SQLite
// (via the pure-Go modernc.org/sqlite driver) using SQL SAVEPOINTs, for
// journeys run against an embedded or file-backed database rather than a
// client/server one.
package sqlitestate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/statemanager"
)

const checkpointPrefix = "sp_"

var _ statemanager.StateManager = (*Manager)(nil)

// Config configures a Manager.
type Config struct {
	// Path is the SQLite database file path, or ":memory:" for an
	// in-process database.
	Path string

	// TablesToReset names the tables Reset deletes from. If empty, Reset
	// discovers every user table via sqlite_master.
	TablesToReset []string

	// ExcludeTables is subtracted from TablesToReset (or the discovered
	// table list).
	ExcludeTables []string
}

// Manager is a statemanager.StateManager backed by database/sql against
// SQLite, holding one transaction open for the lifetime of a run. WAL mode
// is enabled on connect so concurrent readers don't block the writer
// holding the savepoint transaction.
type Manager struct {
	cfg Config
	log *slog.Logger

	db          *sql.DB
	tx          *sql.Tx
	checkpoints []string
	connected   bool
}

// New returns a Manager for cfg.
func New(cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{cfg: cfg, log: log}
}

func (m *Manager) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", m.cfg.Path)
	if err != nil {
		return &venomerrors.ConnectionError{Target: "sqlite", Message: err.Error(), Cause: err}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return &venomerrors.ConnectionError{Target: "sqlite", Message: err.Error(), Cause: err}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return &venomerrors.ConnectionError{Target: "sqlite", Message: err.Error(), Cause: err}
	}
	m.db = db
	m.connected = true
	m.log.Debug("sqlitestate connected", "path", m.cfg.Path)
	return nil
}

func (m *Manager) Disconnect(ctx context.Context) error {
	if m.tx != nil {
		_ = m.tx.Rollback()
		m.tx = nil
	}
	if m.db != nil {
		err := m.db.Close()
		m.db = nil
		m.connected = false
		m.checkpoints = nil
		if err != nil {
			return &venomerrors.ConnectionError{Target: "sqlite", Message: err.Error(), Cause: err}
		}
	}
	m.log.Debug("sqlitestate disconnected")
	return nil
}

func (m *Manager) ensureTransaction(ctx context.Context) error {
	if !m.connected {
		return &venomerrors.StateError{Op: "checkpoint", Message: "not connected"}
	}
	if m.tx != nil {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return &venomerrors.StateError{Op: "begin", Message: err.Error(), Cause: err}
	}
	m.tx = tx
	return nil
}

func (m *Manager) Checkpoint(ctx context.Context, name string) error {
	if err := m.ensureTransaction(ctx); err != nil {
		return err
	}
	safe := sanitize(name)

	if _, err := m.tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", safe)); err != nil {
		return &venomerrors.StateError{Op: "checkpoint", Checkpoint: name, Message: err.Error(), Cause: err}
	}
	m.checkpoints = append(m.checkpoints, safe)
	m.log.Debug("sqlitestate checkpoint created", "checkpoint", safe)
	return nil
}

func (m *Manager) Rollback(ctx context.Context, name string) error {
	if err := m.ensureTransaction(ctx); err != nil {
		return err
	}
	safe := sanitize(name)

	idx := indexOf(m.checkpoints, safe)
	if idx < 0 {
		return &venomerrors.StateError{Op: "rollback", Checkpoint: name, Message: "checkpoint not found"}
	}

	if _, err := m.tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", safe)); err != nil {
		return &venomerrors.StateError{Op: "rollback", Checkpoint: name, Message: err.Error(), Cause: err}
	}
	m.checkpoints = m.checkpoints[:idx+1]
	m.log.Debug("sqlitestate rolled back", "checkpoint", safe)
	return nil
}

func (m *Manager) Release(ctx context.Context, name string) error {
	if err := m.ensureTransaction(ctx); err != nil {
		return err
	}
	safe := sanitize(name)

	if _, err := m.tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", safe)); err != nil {
		return &venomerrors.StateError{Op: "release", Checkpoint: name, Message: err.Error(), Cause: err}
	}
	if idx := indexOf(m.checkpoints, safe); idx >= 0 {
		m.checkpoints = append(m.checkpoints[:idx], m.checkpoints[idx+1:]...)
	}
	m.log.Debug("sqlitestate released", "checkpoint", safe)
	return nil
}

func (m *Manager) Reset(ctx context.Context) error {
	if !m.connected {
		return &venomerrors.StateError{Op: "reset", Message: "not connected"}
	}

	if m.tx != nil {
		_ = m.tx.Rollback()
		m.tx = nil
	}

	tables, err := m.tablesToReset(ctx)
	if err != nil {
		return &venomerrors.StateError{Op: "reset", Message: err.Error(), Cause: err}
	}
	if len(tables) > 0 {
		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return &venomerrors.StateError{Op: "reset", Message: err.Error(), Cause: err}
		}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				_ = tx.Rollback()
				return &venomerrors.StateError{Op: "reset", Message: err.Error(), Cause: err}
			}
		}
		if err := tx.Commit(); err != nil {
			return &venomerrors.StateError{Op: "reset", Message: err.Error(), Cause: err}
		}
		m.log.Info("sqlitestate reset tables", "count", len(tables))
	}

	m.checkpoints = nil
	return nil
}

func (m *Manager) IsConnected() bool {
	return m.connected
}

// DB exposes the underlying *sql.DB for schema setup and assertions in
// tests and in journey actions that need to issue raw SQL.
func (m *Manager) DB() *sql.DB {
	return m.db
}

func (m *Manager) tablesToReset(ctx context.Context) ([]string, error) {
	exclude := make(map[string]bool, len(m.cfg.ExcludeTables))
	for _, t := range m.cfg.ExcludeTables {
		exclude[t] = true
	}

	if len(m.cfg.TablesToReset) > 0 {
		var out []string
		for _, t := range m.cfg.TablesToReset {
			if !exclude[t] {
				out = append(out, t)
			}
		}
		return out, nil
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if !exclude[name] {
			out = append(out, name)
		}
	}
	return out, rows.Err()
}

func sanitize(name string) string {
	return statemanager.SanitizeCheckpointName(name, checkpointPrefix, 0)
}

func indexOf(s []string, v string) int {
	for i, item := range s {
		if item == v {
			return i
		}
	}
	return -1
}
