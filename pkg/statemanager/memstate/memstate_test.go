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

package memstate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	venomerrors "github.com/venomqa/venomqa/pkg/errors"
	"github.com/venomqa/venomqa/pkg/statemanager/memstate"
)

func TestConnectSeedsInitialState(t *testing.T) {
	m := memstate.New(map[string]any{"balance": int64(100)}, nil)
	require.NoError(t, m.Connect(context.Background()))
	require.True(t, m.IsConnected())
	require.Equal(t, map[string]any{"balance": int64(100)}, m.Data())
}

func TestCheckpointAndRollback(t *testing.T) {
	m := memstate.New(map[string]any{"balance": int64(100)}, nil)
	require.NoError(t, m.Connect(context.Background()))

	require.NoError(t, m.Checkpoint(context.Background(), "before-withdrawal"))
	m.SetData(map[string]any{"balance": int64(50)})
	require.Equal(t, int64(50), m.Data()["balance"])

	require.NoError(t, m.Rollback(context.Background(), "before-withdrawal"))
	require.Equal(t, int64(100), m.Data()["balance"])
}

func TestRollbackInvalidatesLaterCheckpoints(t *testing.T) {
	m := memstate.New(map[string]any{"step": int64(0)}, nil)
	require.NoError(t, m.Connect(context.Background()))

	require.NoError(t, m.Checkpoint(context.Background(), "a"))
	m.SetData(map[string]any{"step": int64(1)})
	require.NoError(t, m.Checkpoint(context.Background(), "b"))
	m.SetData(map[string]any{"step": int64(2)})

	require.NoError(t, m.Rollback(context.Background(), "a"))

	err := m.Rollback(context.Background(), "b")
	var stateErr *venomerrors.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestRollbackUnknownCheckpoint(t *testing.T) {
	m := memstate.New(nil, nil)
	require.NoError(t, m.Connect(context.Background()))

	err := m.Rollback(context.Background(), "does-not-exist")
	var stateErr *venomerrors.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestReleaseRemovesCheckpoint(t *testing.T) {
	m := memstate.New(nil, nil)
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Checkpoint(context.Background(), "cp1"))
	require.NoError(t, m.Release(context.Background(), "cp1"))

	err := m.Rollback(context.Background(), "cp1")
	require.Error(t, err)
}

func TestResetRestoresInitialState(t *testing.T) {
	m := memstate.New(map[string]any{"count": int64(0)}, nil)
	require.NoError(t, m.Connect(context.Background()))
	m.SetData(map[string]any{"count": int64(99)})

	require.NoError(t, m.Reset(context.Background()))
	require.Equal(t, int64(0), m.Data()["count"])
}

func TestOperationsRequireConnect(t *testing.T) {
	m := memstate.New(nil, nil)
	err := m.Checkpoint(context.Background(), "x")
	var stateErr *venomerrors.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestDisconnectClearsState(t *testing.T) {
	m := memstate.New(map[string]any{"x": int64(1)}, nil)
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Disconnect(context.Background()))
	require.False(t, m.IsConnected())
}

func TestDataIsIndependentCopy(t *testing.T) {
	m := memstate.New(map[string]any{"nested": map[string]any{"v": int64(1)}}, nil)
	require.NoError(t, m.Connect(context.Background()))

	snapshot := m.Data()
	snapshot["nested"].(map[string]any)["v"] = int64(999)

	require.Equal(t, int64(1), m.Data()["nested"].(map[string]any)["v"])
}
