// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package salt derives deterministic per-row and per-cell salts from a
// secret seed. Salting hashed cell values forecloses rainbow-table attacks
// against redacted cells; the derivation is pure, so emitter and verifier
// agree byte-for-byte.
package salt

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/luxfi/skipledger/hashing"
)

// SeedWidth is the byte width of a salt seed and of every derived salt.
const SeedWidth = 32

// ErrClosed is returned by salt engines after Close.
var ErrClosed = errors.New("salt: engine closed")

// RowSalt derives the salt for row n: H(seed, big_endian_u64(n)).
func RowSalt(algo hashing.Algo, seed [SeedWidth]byte, n uint64) [SeedWidth]byte {
	var rowNo [8]byte
	binary.BigEndian.PutUint64(rowNo[:], n)
	return hashing.Hash(algo.Sum(seed[:], rowNo[:]))
}

// CellSalt derives the salt for one cell: H(row_salt, big_endian_i32(col)).
func CellSalt(algo hashing.Algo, rowSalt [SeedWidth]byte, col uint32) [SeedWidth]byte {
	var colNo [4]byte
	binary.BigEndian.PutUint32(colNo[:], col)
	return hashing.Hash(algo.Sum(rowSalt[:], colNo[:]))
}

// RowSalter is the read side of a salt engine.
type RowSalter interface {
	// Algo returns the digest algorithm the engine derives with.
	Algo() hashing.Algo
	// RowSalt returns the salt for row n. Fails with ErrClosed after Close.
	RowSalt(n uint64) ([SeedWidth]byte, error)
}

// TableSalt is a single-threaded salt engine over one seed. It caches the
// most recently derived row salt, which amortizes per-cell derivations
// within a row without locking. Not safe for concurrent use; see
// SharedTableSalt for that.
type TableSalt struct {
	algo    hashing.Algo
	seed    [SeedWidth]byte
	lastRow uint64
	last    [SeedWidth]byte
	cached  bool
	closed  bool
}

// NewTableSalt returns an engine over the given seed. The caller's copy of
// the seed remains the caller's to scrub.
func NewTableSalt(algo hashing.Algo, seed [SeedWidth]byte) *TableSalt {
	return &TableSalt{algo: algo, seed: seed}
}

// Algo returns the engine's digest algorithm.
func (ts *TableSalt) Algo() hashing.Algo { return ts.algo }

// RowSalt returns the salt for row n.
func (ts *TableSalt) RowSalt(n uint64) ([SeedWidth]byte, error) {
	if ts.closed {
		return [SeedWidth]byte{}, ErrClosed
	}
	if ts.cached && ts.lastRow == n {
		return ts.last, nil
	}
	s := RowSalt(ts.algo, ts.seed, n)
	ts.lastRow, ts.last, ts.cached = n, s, true
	return s, nil
}

// CellSalt returns the salt for (row n, column col).
func (ts *TableSalt) CellSalt(n uint64, col uint32) ([SeedWidth]byte, error) {
	rs, err := ts.RowSalt(n)
	if err != nil {
		return [SeedWidth]byte{}, err
	}
	return CellSalt(ts.algo, rs, col), nil
}

// Close zeroes the seed and the cached salt. The engine is unusable after.
func (ts *TableSalt) Close() error {
	ts.seed = [SeedWidth]byte{}
	ts.last = [SeedWidth]byte{}
	ts.cached = false
	ts.closed = true
	return nil
}

// SharedTableSalt is the multi-threaded variant: it serializes access to
// its digest state and skips the row-salt cache.
type SharedTableSalt struct {
	mu     sync.Mutex
	algo   hashing.Algo
	seed   [SeedWidth]byte
	closed bool
}

// NewSharedTableSalt returns a concurrency-safe engine over the given seed.
func NewSharedTableSalt(algo hashing.Algo, seed [SeedWidth]byte) *SharedTableSalt {
	return &SharedTableSalt{algo: algo, seed: seed}
}

// Algo returns the engine's digest algorithm.
func (ts *SharedTableSalt) Algo() hashing.Algo { return ts.algo }

// RowSalt returns the salt for row n.
func (ts *SharedTableSalt) RowSalt(n uint64) ([SeedWidth]byte, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.closed {
		return [SeedWidth]byte{}, ErrClosed
	}
	return RowSalt(ts.algo, ts.seed, n), nil
}

// Close zeroes the seed. The engine is unusable after.
func (ts *SharedTableSalt) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.seed = [SeedWidth]byte{}
	ts.closed = true
	return nil
}
