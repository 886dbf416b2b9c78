// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
)

const algo = hashing.SHA256

// rowInput derives the test input hash for row k: H("row", be64(k)).
func rowInput(k uint64) hashing.Hash {
	var no [8]byte
	binary.BigEndian.PutUint64(no[:], k)
	return algo.Sum([]byte("row"), no[:])
}

// naiveRowHashes recomputes row hashes from first principles, reading
// referenced hashes out of the growing slice.
func naiveRowHashes(inputs []hashing.Hash) []hashing.Hash {
	hashes := make([]hashing.Hash, len(inputs))
	for i, in := range inputs {
		n := uint64(i + 1)
		chunks := [][]byte{in[:]}
		for l := 0; l < SkipCount(n); l++ {
			ref := SkipRef(n, l)
			if ref == 0 {
				chunks = append(chunks, hashing.SentinelHash[:])
			} else {
				chunks = append(chunks, hashes[ref-1][:])
			}
		}
		hashes[i] = algo.Sum(chunks...)
	}
	return hashes
}

func TestFrontierMatchesNaiveChain(t *testing.T) {
	const m = 300
	inputs := make([]hashing.Hash, m)
	for i := range inputs {
		inputs[i] = rowInput(uint64(i + 1))
	}
	want := naiveRowHashes(inputs)

	f := FirstRow(algo, inputs[0])
	require.Equal(t, want[0], f.RowHash())
	for i := 1; i < m; i++ {
		f = f.NextRow(inputs[i])
		require.Equal(t, uint64(i+1), f.RowNo())
		require.Equal(t, want[i], f.RowHash(), "row %d", i+1)
	}
	require.Equal(t, Levels(m), f.LevelCount())
}

func TestFrontierVsLoadedSkipTable(t *testing.T) {
	ctx := context.Background()
	table := NewMemTable()
	app, err := NewAppender(ctx, table, algo)
	require.NoError(t, err)

	// Feed rows 1..5 through the in-memory frontier.
	f := FirstRow(algo, rowInput(1))
	hashes := []hashing.Hash{f.RowHash()}
	for k := uint64(2); k <= 5; k++ {
		f = f.NextRow(rowInput(k))
		hashes = append(hashes, f.RowHash())
	}

	// Append the same inputs into a fresh table.
	inputs := make([]hashing.Hash, 5)
	for i := range inputs {
		inputs[i] = rowInput(uint64(i + 1))
	}
	size, err := app.AddInputs(ctx, inputs...)
	require.NoError(t, err)
	require.Equal(t, uint64(5), size)

	for k := uint64(1); k <= 5; k++ {
		pair, err := table.Read(ctx, k)
		require.NoError(t, err)
		require.Equal(t, hashes[k-1], pair.RowHash, "row %d", k)
	}

	loaded, err := LoadFrontier(ctx, table, algo, 5)
	require.NoError(t, err)
	require.Equal(t, f.RowNo(), loaded.RowNo())
	require.Equal(t, f.LevelCount(), loaded.LevelCount())
	for l := 0; l < f.LevelCount(); l++ {
		require.Equal(t, f.LevelHash(l), loaded.LevelHash(l), "level %d", l)
	}

	require.NoError(t, VerifyTable(ctx, table, algo))
}

func TestLoadFrontierBounds(t *testing.T) {
	ctx := context.Background()
	table := NewMemTable()
	_, err := LoadFrontier(ctx, table, algo, 1)
	require.ErrorIs(t, err, ledgers.ErrOutOfBounds)
	_, err = LoadFrontier(ctx, table, algo, 0)
	require.ErrorIs(t, err, ledgers.ErrOutOfBounds)
}

func TestVerifyTableDetectsTamper(t *testing.T) {
	ctx := context.Background()
	table := NewMemTable()
	app, err := NewAppender(ctx, table, algo)
	require.NoError(t, err)
	_, err = app.AddInputs(ctx, rowInput(1), rowInput(2), rowInput(3))
	require.NoError(t, err)

	table.pairs[1].RowHash[0] ^= 1
	require.ErrorIs(t, VerifyTable(ctx, table, algo), ledgers.ErrHashConflict)
}

func TestAppenderResumes(t *testing.T) {
	ctx := context.Background()
	table := NewMemTable()
	app, err := NewAppender(ctx, table, algo)
	require.NoError(t, err)
	_, err = app.AddInputs(ctx, rowInput(1), rowInput(2), rowInput(3))
	require.NoError(t, err)

	// A second appender over the same table continues the chain exactly.
	app2, err := NewAppender(ctx, table, algo)
	require.NoError(t, err)
	require.Equal(t, uint64(3), app2.Size())
	_, err = app2.AddInputs(ctx, rowInput(4))
	require.NoError(t, err)
	require.NoError(t, VerifyTable(ctx, table, algo))
}
