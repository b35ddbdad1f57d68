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

// Package mysqlstate implements statemanager.StateManager against MySQL
// using SQL SAVEPOINTs inside one long-lived transaction.
//
// MySQL savepoints have sharper edges than Postgres': RELEASE SAVEPOINT is
// advisory only (the engine frees the savepoint's resources at commit
// regardless), DDL statements implicitly commit the surrounding
// transaction and so silently invalidate every open savepoint, and
// MyISAM-backed tables do not support transactions at all.
package mysqlstate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/statemanager"
)

const (
	checkpointPrefix = "chk_"
	maxIdentifierLen = 64
)

var _ statemanager.StateManager = (*Manager)(nil)

// Config configures a Manager.
type Config struct {
	// DSN is a go-sql-driver/mysql data source name, e.g.
	// "user:pass@tcp(127.0.0.1:3306)/dbname".
	DSN string

	// TablesToReset names the tables Reset truncates. If empty, Reset
	// discovers every table via SHOW TABLES.
	TablesToReset []string

	// ExcludeTables is subtracted from TablesToReset (or the discovered
	// table list).
	ExcludeTables []string
}

// Manager is a statemanager.StateManager backed by database/sql against
// MySQL, holding one transaction open for the lifetime of a run.
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
	db, err := sql.Open("mysql", m.cfg.DSN)
	if err != nil {
		return &venomerrors.ConnectionError{Target: "mysql", Message: err.Error(), Cause: err}
	}
	if err := db.PingContext(ctx); err != nil {
		return &venomerrors.ConnectionError{Target: "mysql", Message: err.Error(), Cause: err}
	}
	m.db = db
	m.connected = true
	m.log.Debug("mysqlstate connected")
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
			return &venomerrors.ConnectionError{Target: "mysql", Message: err.Error(), Cause: err}
		}
	}
	m.log.Debug("mysqlstate disconnected")
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
	m.log.Debug("mysqlstate checkpoint created", "checkpoint", safe)
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
	m.log.Debug("mysqlstate rolled back", "checkpoint", safe)
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
	m.log.Debug("mysqlstate released", "checkpoint", safe)
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
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
				_ = tx.Rollback()
				return &venomerrors.StateError{Op: "reset", Message: err.Error(), Cause: err}
			}
		}
		if err := tx.Commit(); err != nil {
			return &venomerrors.StateError{Op: "reset", Message: err.Error(), Cause: err}
		}
		m.log.Info("mysqlstate reset tables", "count", len(tables))
	}

	m.checkpoints = nil
	return nil
}

func (m *Manager) IsConnected() bool {
	return m.connected
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

	rows, err := m.db.QueryContext(ctx, "SHOW TABLES")
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
	return statemanager.SanitizeCheckpointName(name, checkpointPrefix, maxIdentifierLen)
}

func indexOf(s []string, v string) int {
	for i, item := range s {
		if item == v {
			return i
		}
	}
	return -1
}
