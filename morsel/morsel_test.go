// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
	"github.com/luxfi/skipledger/sldg"
	"github.com/luxfi/skipledger/source"
)

const algo = hashing.SHA256

// fixture is a small ledger with salted three-column source rows.
type fixture struct {
	table  *sldg.MemTable
	rows   []source.Row // salted, 1-based off-by-one: rows[i] is row i+1
	salter *salt.TableSalt
	scheme salt.Scheme
}

func newFixture(t *testing.T, numRows int) *fixture {
	t.Helper()
	ctx := context.Background()

	var seed [salt.SeedWidth]byte
	copy(seed[:], "fixture-seed-fixture-seed-fixtur")
	fx := &fixture{
		table:  sldg.NewMemTable(),
		salter: salt.NewTableSalt(algo, seed),
		scheme: salt.SaltAll,
	}
	t.Cleanup(func() { fx.salter.Close() })

	app, err := sldg.NewAppender(ctx, fx.table, algo)
	require.NoError(t, err)
	for k := 1; k <= numRows; k++ {
		row, err := source.SaltedRow(fx.salter, fx.scheme, uint64(k),
			source.Long(int64(k)),
			source.String(fmt.Sprintf("name-%d", k)),
			source.Bytes([]byte{byte(k), 0xee}),
		)
		require.NoError(t, err)
		fx.rows = append(fx.rows, row)
		_, err = app.AddInputs(ctx, row.InputHash(algo))
		require.NoError(t, err)
	}
	return fx
}

func (fx *fixture) path(t *testing.T, targets ...uint64) *sldg.Path {
	t.Helper()
	p, err := sldg.LoadPath(context.Background(), fx.table, algo, targets)
	require.NoError(t, err)
	return p
}

func (fx *fixture) rowHash(t *testing.T, n uint64) hashing.Hash {
	t.Helper()
	pair, err := fx.table.Read(context.Background(), n)
	require.NoError(t, err)
	return pair.RowHash
}

func logID(t *testing.T, no uint32) ledgers.ID {
	t.Helper()
	id, err := ledgers.NewID(no, ledgers.TypeLog, fmt.Sprintf("ledger-%d", no))
	require.NoError(t, err)
	return id
}

// builder returns a builder for a LOG nugget covering the fixture rows.
func (fx *fixture) builder(t *testing.T, idNo uint32, targets ...uint64) *Builder {
	t.Helper()
	b, err := NewBuilder(logID(t, idNo), fx.path(t, targets...))
	require.NoError(t, err)
	require.NoError(t, b.SetSaltScheme(fx.scheme))
	return b
}
