// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sqltable

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
	"github.com/luxfi/skipledger/sldg"
)

// Capability gating happens before any SQL is issued, so these tests run
// against a nil *sql.DB; driver-backed behavior is the embedding
// program's integration concern.

func writableEnv() ledgers.Env {
	return ledgers.Env{
		TablePrefix:   "test",
		AllowDelete:   true,
		AllowCommit:   true,
		AllowRollback: true,
	}
}

func TestEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  ledgers.Env
	}{
		{"deleteOnReadOnly", ledgers.Env{ReadOnly: true, AllowDelete: true}},
		{"rollbackWithoutCommit", ledgers.Env{AllowRollback: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.env.Validate(), ledgers.ErrConfig)
			_, err := New(nil, tc.env)
			require.ErrorIs(t, err, ledgers.ErrConfig)
			_, err = NewRegistry(nil, tc.env)
			require.ErrorIs(t, err, ledgers.ErrConfig)
		})
	}
	require.NoError(t, writableEnv().Validate())
}

func TestAppendRequiresCommitCapability(t *testing.T) {
	ctx := context.Background()

	env := writableEnv()
	env.AllowCommit = false
	env.AllowRollback = false
	table, err := New(nil, env)
	require.NoError(t, err)

	_, err = table.Append(ctx, 1, []sldg.HashPair{{}})
	require.ErrorIs(t, err, ledgers.ErrUnsupported)
}

func TestTrimRequiresRollbackCapability(t *testing.T) {
	ctx := context.Background()

	env := writableEnv()
	env.AllowRollback = false
	table, err := New(nil, env)
	require.NoError(t, err)

	require.ErrorIs(t, table.Trim(ctx, 0), ledgers.ErrUnsupported)
}

func TestReadOnlyEnvRefusesWrites(t *testing.T) {
	ctx := context.Background()
	env := ledgers.Env{TablePrefix: "ro", ReadOnly: true}

	table, err := New(nil, env)
	require.NoError(t, err)
	_, err = table.Append(ctx, 1, nil)
	require.ErrorIs(t, err, ledgers.ErrUnsupported)
	require.ErrorIs(t, table.Trim(ctx, 0), ledgers.ErrUnsupported)

	reg, err := NewRegistry(nil, env)
	require.NoError(t, err)
	_, err = reg.RegisterLedger(ctx, "x", ledgers.TypeLog, "")
	require.ErrorIs(t, err, ledgers.ErrUnsupported)
	_, err = reg.DefineMicrochain(ctx, 1, "def")
	require.ErrorIs(t, err, ledgers.ErrUnsupported)
	require.ErrorIs(t, reg.AddEpochSeed(ctx, 1, salt.EpochSeed{StartRow: 1}), ledgers.ErrUnsupported)

	require.ErrorIs(t, CreateTables(ctx, nil, env), ledgers.ErrUnsupported)
}

func TestDeleteRequiresCapability(t *testing.T) {
	ctx := context.Background()
	env := writableEnv()
	env.AllowDelete = false
	reg, err := NewRegistry(nil, env)
	require.NoError(t, err)
	require.ErrorIs(t, reg.DeleteLedger(ctx, 1), ledgers.ErrUnsupported)
}

func TestAddTrailGating(t *testing.T) {
	ctx := context.Background()

	env := writableEnv()
	env.AllowCommit = false
	env.AllowRollback = false
	reg, err := NewRegistry(nil, env)
	require.NoError(t, err)
	_, err = reg.AddTrail(ctx, TrailRecord{RowNum: 1})
	require.ErrorIs(t, err, ledgers.ErrUnsupported)

	// Committing env, but an empty chain is a config error before any SQL.
	reg, err = NewRegistry(nil, writableEnv())
	require.NoError(t, err)
	_, err = reg.AddTrail(ctx, TrailRecord{RowNum: 1})
	require.ErrorIs(t, err, ledgers.ErrConfig)
}

func TestAddEpochSeedRejectsRowZero(t *testing.T) {
	reg, err := NewRegistry(nil, writableEnv())
	require.NoError(t, err)
	err = reg.AddEpochSeed(context.Background(), 1, salt.EpochSeed{StartRow: 0})
	require.ErrorIs(t, err, ledgers.ErrConfig)
}

func TestSchemaUsesPrefixEverywhere(t *testing.T) {
	for _, ddl := range createDDL {
		stmt := fmt.Sprintf(ddl, "acme")
		require.Contains(t, stmt, "IF NOT EXISTS acme_")
		require.NotContains(t, stmt, "%")
	}
	// One DDL statement per mapped table.
	require.Len(t, createDDL, 6)
	joined := fmt.Sprintf(strings.Join(createDDL, "\n"), "p")
	for _, table := range []string{
		"p_sldg", "p_sldg_tr", "p_sldg_ch", "p_chain_infos", "p_microchains", "p_ledger_salts",
	} {
		require.Contains(t, joined, table)
	}
}

func TestQueriesUsePrefix(t *testing.T) {
	table, err := New(nil, writableEnv())
	require.NoError(t, err)
	for _, q := range []string{table.sizeQ, table.readQ, table.insertQ, table.trimQ, table.countQ} {
		require.Contains(t, q, "test_sldg")
	}
}
