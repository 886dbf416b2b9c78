// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvtable

import (
	"context"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/sldg"
)

const algo = hashing.SHA256

func testPairs(n int) []sldg.HashPair {
	pairs := make([]sldg.HashPair, n)
	for i := range pairs {
		pairs[i] = sldg.HashPair{
			InputHash: algo.Sum([]byte("in"), []byte{byte(i)}),
			RowHash:   algo.Sum([]byte("row"), []byte{byte(i)}),
		}
	}
	return pairs
}

func TestAppendReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	table, err := New(memdb.New())
	require.NoError(t, err)
	defer table.Close()

	pairs := testPairs(5)
	size, err := table.Append(ctx, 1, pairs)
	require.NoError(t, err)
	require.Equal(t, uint64(5), size)

	for i, want := range pairs {
		got, err := table.Read(ctx, uint64(i+1))
		require.NoError(t, err)
		require.Equal(t, want, got, "row %d", i+1)
	}

	_, err = table.Read(ctx, 6)
	require.ErrorIs(t, err, ledgers.ErrOutOfBounds)
	_, err = table.Read(ctx, 0)
	require.ErrorIs(t, err, ledgers.ErrOutOfBounds)
}

func TestIdempotentAppend(t *testing.T) {
	ctx := context.Background()
	table, err := New(memdb.New())
	require.NoError(t, err)

	pairs := testPairs(3)
	_, err = table.Append(ctx, 1, pairs)
	require.NoError(t, err)

	size, err := table.Append(ctx, 1, pairs)
	require.NoError(t, err)
	require.Equal(t, uint64(3), size)

	bad := testPairs(3)
	bad[0].InputHash[0] ^= 1
	_, err = table.Append(ctx, 1, bad)
	require.ErrorIs(t, err, ledgers.ErrHashConflict)

	size, err = table.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), size)
}

func TestAppendRejectsGap(t *testing.T) {
	ctx := context.Background()
	table, err := New(memdb.New())
	require.NoError(t, err)
	_, err = table.Append(ctx, 2, testPairs(1))
	require.ErrorIs(t, err, ledgers.ErrOutOfBounds)
}

func TestSizeSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	db := memdb.New()

	table, err := New(db)
	require.NoError(t, err)
	_, err = table.Append(ctx, 1, testPairs(4))
	require.NoError(t, err)
	require.NoError(t, table.Close())

	reopened, err := New(db)
	require.NoError(t, err)
	size, err := reopened.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), size)

	got, err := reopened.Read(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, testPairs(4)[2], got)
}

func TestTrimCapability(t *testing.T) {
	ctx := context.Background()

	fixed, err := New(memdb.New())
	require.NoError(t, err)
	_, err = fixed.Append(ctx, 1, testPairs(2))
	require.NoError(t, err)
	require.ErrorIs(t, fixed.Trim(ctx, 1), ledgers.ErrUnsupported)

	trimmable, err := New(memdb.New(), WithTrim())
	require.NoError(t, err)
	_, err = trimmable.Append(ctx, 1, testPairs(4))
	require.NoError(t, err)

	require.ErrorIs(t, trimmable.Trim(ctx, 9), ledgers.ErrOutOfBounds)
	require.NoError(t, trimmable.Trim(ctx, 2))

	size, err := trimmable.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), size)
	_, err = trimmable.Read(ctx, 3)
	require.ErrorIs(t, err, ledgers.ErrOutOfBounds)

	// Rows can be re-appended after a trim.
	_, err = trimmable.Append(ctx, 3, testPairs(4)[2:])
	require.NoError(t, err)
}

func TestWorksAsSldgTable(t *testing.T) {
	ctx := context.Background()
	table, err := New(memdb.New())
	require.NoError(t, err)

	app, err := sldg.NewAppender(ctx, table, algo)
	require.NoError(t, err)
	inputs := make([]hashing.Hash, 9)
	for i := range inputs {
		inputs[i] = algo.Sum([]byte{byte(i + 1)})
	}
	_, err = app.AddInputs(ctx, inputs...)
	require.NoError(t, err)

	require.NoError(t, sldg.VerifyTable(ctx, table, algo))

	p, err := sldg.LoadPath(ctx, table, algo, []uint64{2, 9})
	require.NoError(t, err)
	require.Equal(t, uint64(9), p.Hi())
}
