// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"context"
	"fmt"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
)

// Frontier is the minimum per-level state needed to extend a skip ledger:
// the row hash of each level row of the current row number. Frontiers are
// immutable values; NextRow returns the advanced frontier.
type Frontier struct {
	algo   hashing.Algo
	row    uint64
	levels []hashing.Hash // levels[l] = row hash of LevelRow(row, l)
}

// FirstRow returns the frontier after row 1, whose single skip reference is
// the sentinel hash.
func FirstRow(algo hashing.Algo, input hashing.Hash) Frontier {
	h1 := algo.Sum(input[:], hashing.SentinelHash[:])
	return Frontier{algo: algo, row: 1, levels: []hashing.Hash{h1}}
}

// Algo returns the frontier's digest algorithm.
func (f Frontier) Algo() hashing.Algo { return f.algo }

// RowNo returns the frontier's current row number.
func (f Frontier) RowNo() uint64 { return f.row }

// RowHash returns the hash of the current row.
func (f Frontier) RowHash() hashing.Hash { return f.levels[0] }

// LevelCount returns the number of levels.
func (f Frontier) LevelCount() int { return len(f.levels) }

// LevelHash returns the row hash at level l.
func (f Frontier) LevelHash(l int) hashing.Hash { return f.levels[l] }

// NextRow derives the frontier after appending the next row's input hash.
//
// The new row n+1 references rows (n+1)−2^l for l below its skip count;
// each such row is exactly the level-l row of this frontier, or row 0
// (sentinel) when n+1 is a power of two and l is the new top level.
func (f Frontier) NextRow(input hashing.Hash) Frontier {
	newNo := f.row + 1
	k := SkipCount(newNo)

	d := f.algo.New()
	d.Write(input[:])
	for l := 0; l < k; l++ {
		if l < len(f.levels) {
			d.Write(f.levels[l][:])
		} else {
			d.Write(hashing.SentinelHash[:])
		}
	}
	var rowHash hashing.Hash
	d.Sum(rowHash[:0])

	levels := make([]hashing.Hash, Levels(newNo))
	for l := range levels {
		if l < k {
			levels[l] = rowHash
		} else {
			levels[l] = f.levels[l]
		}
	}
	return Frontier{algo: f.algo, row: newNo, levels: levels}
}

// LoadFrontier reconstructs the frontier at row n from a skip table,
// reading one row hash per level.
func LoadFrontier(ctx context.Context, t Table, algo hashing.Algo, n uint64) (Frontier, error) {
	if n == 0 {
		return Frontier{}, fmt.Errorf("%w: frontier at row 0", ledgers.ErrOutOfBounds)
	}
	size, err := t.Size(ctx)
	if err != nil {
		return Frontier{}, err
	}
	if n > size {
		return Frontier{}, fmt.Errorf("%w: frontier at row %d of %d", ledgers.ErrOutOfBounds, n, size)
	}
	levels := make([]hashing.Hash, Levels(n))
	for l := range levels {
		pair, err := t.Read(ctx, LevelRow(n, l))
		if err != nil {
			return Frontier{}, err
		}
		levels[l] = pair.RowHash
	}
	return Frontier{algo: algo, row: n, levels: levels}, nil
}

// VerifyTable replays every stored input hash through a fresh frontier and
// compares the derived row hashes with the stored ones. The first
// disagreement fails with ErrHashConflict.
func VerifyTable(ctx context.Context, t Table, algo hashing.Algo) error {
	size, err := t.Size(ctx)
	if err != nil {
		return err
	}
	var f Frontier
	for n := uint64(1); n <= size; n++ {
		pair, err := t.Read(ctx, n)
		if err != nil {
			return err
		}
		if n == 1 {
			f = FirstRow(algo, pair.InputHash)
		} else {
			f = f.NextRow(pair.InputHash)
		}
		if f.RowHash() != pair.RowHash {
			return fmt.Errorf("%w: stored row %d hash disagrees with recomputation", ledgers.ErrHashConflict, n)
		}
	}
	return nil
}
