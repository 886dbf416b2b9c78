// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package salt

import (
	"fmt"
	"sort"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
)

// EpochSeed is one segment of a rotating seed, effective from StartRow on.
type EpochSeed struct {
	StartRow uint64
	Seed     [SeedWidth]byte
}

// EpochedTableSalt derives row salts under seed rotation: the seed for row n
// is the epoch with the greatest StartRow ≤ n. Single-threaded, with the
// same one-row cache as TableSalt.
type EpochedTableSalt struct {
	algo    hashing.Algo
	epochs  []EpochSeed
	lastRow uint64
	last    [SeedWidth]byte
	cached  bool
	closed  bool
}

// NewEpochedTableSalt validates and adopts the epoch list. The list must be
// non-empty, start at row 1 exactly, and strictly ascend.
func NewEpochedTableSalt(algo hashing.Algo, epochs []EpochSeed) (*EpochedTableSalt, error) {
	if len(epochs) == 0 {
		return nil, fmt.Errorf("%w: empty epoch list", ledgers.ErrConfig)
	}
	if epochs[0].StartRow != 1 {
		return nil, fmt.Errorf("%w: first epoch starts at row %d, want 1", ledgers.ErrConfig, epochs[0].StartRow)
	}
	for i := 1; i < len(epochs); i++ {
		if epochs[i].StartRow <= epochs[i-1].StartRow {
			return nil, fmt.Errorf("%w: epoch start rows not ascending at index %d", ledgers.ErrConfig, i)
		}
	}
	return &EpochedTableSalt{algo: algo, epochs: append([]EpochSeed(nil), epochs...)}, nil
}

// Algo returns the engine's digest algorithm.
func (ts *EpochedTableSalt) Algo() hashing.Algo { return ts.algo }

// SeedFor returns the epoch seed governing row n.
func (ts *EpochedTableSalt) SeedFor(n uint64) [SeedWidth]byte {
	// First epoch past n, minus one.
	i := sort.Search(len(ts.epochs), func(i int) bool {
		return ts.epochs[i].StartRow > n
	})
	return ts.epochs[i-1].Seed
}

// RowSalt returns the salt for row n under the governing epoch.
func (ts *EpochedTableSalt) RowSalt(n uint64) ([SeedWidth]byte, error) {
	if ts.closed {
		return [SeedWidth]byte{}, ErrClosed
	}
	if n == 0 {
		return [SeedWidth]byte{}, fmt.Errorf("%w: row 0", ledgers.ErrOutOfBounds)
	}
	if ts.cached && ts.lastRow == n {
		return ts.last, nil
	}
	s := RowSalt(ts.algo, ts.SeedFor(n), n)
	ts.lastRow, ts.last, ts.cached = n, s, true
	return s, nil
}

// CellSalt returns the salt for (row n, column col).
func (ts *EpochedTableSalt) CellSalt(n uint64, col uint32) ([SeedWidth]byte, error) {
	rs, err := ts.RowSalt(n)
	if err != nil {
		return [SeedWidth]byte{}, err
	}
	return CellSalt(ts.algo, rs, col), nil
}

// Close zeroes every epoch seed. The engine is unusable after.
func (ts *EpochedTableSalt) Close() error {
	for i := range ts.epochs {
		ts.epochs[i].Seed = [SeedWidth]byte{}
	}
	ts.last = [SeedWidth]byte{}
	ts.cached = false
	ts.closed = true
	return nil
}
