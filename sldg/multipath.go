// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"fmt"
	"sort"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
)

// MultiPath is a set of mutually consistent commitment paths. Paths are
// admitted only when they share at least one covered row with the set, and
// every shared row's hash must agree, so the whole bundle commits to a
// single ledger state.
type MultiPath struct {
	algo    hashing.Algo
	paths   []*Path
	covered map[uint64]hashing.Hash
	listed  map[uint64]PathRow
}

// NewMultiPath starts a multi-path from its first path.
func NewMultiPath(first *Path) *MultiPath {
	mp := &MultiPath{
		algo:    first.Algo(),
		covered: make(map[uint64]hashing.Hash),
		listed:  make(map[uint64]PathRow),
	}
	mp.merge(first)
	return mp
}

func (mp *MultiPath) merge(p *Path) {
	mp.paths = append(mp.paths, p)
	for n, h := range p.covered {
		mp.covered[n] = h
	}
	for _, r := range p.rows {
		if _, ok := mp.listed[r.No]; !ok {
			mp.listed[r.No] = r
		}
	}
}

// AddPath admits p if it intersects the covered set consistently, and
// returns the lowest shared row number. A disjoint path fails
// ErrUnlinkedPath; a disagreeing hash on any shared row, listed or
// referenced, fails ErrHashConflict. Failure leaves the set unchanged.
func (mp *MultiPath) AddPath(p *Path) (uint64, error) {
	if p.Algo() != mp.algo {
		return 0, fmt.Errorf("%w: path algo %v, multi-path algo %v", ledgers.ErrConfig, p.Algo(), mp.algo)
	}
	var intersect uint64
	for n, h := range p.covered {
		have, ok := mp.covered[n]
		if !ok {
			continue
		}
		if have != h {
			return 0, fmt.Errorf("%w: row %d hash disagrees across paths", ledgers.ErrHashConflict, n)
		}
		if intersect == 0 || n < intersect {
			intersect = n
		}
	}
	if intersect == 0 {
		return 0, fmt.Errorf("%w: path [%d, %d] shares no row with the set", ledgers.ErrUnlinkedPath, p.Lo(), p.Hi())
	}
	mp.merge(p)
	return intersect, nil
}

// Algo returns the set's digest algorithm.
func (mp *MultiPath) Algo() hashing.Algo { return mp.algo }

// Paths returns the admitted paths in admission order.
func (mp *MultiPath) Paths() []*Path { return append([]*Path(nil), mp.paths...) }

// RowHash returns the hash of row n if any path covers it.
func (mp *MultiPath) RowHash(n uint64) (hashing.Hash, bool) {
	h, ok := mp.covered[n]
	return h, ok
}

// FindRow returns the full row record at n if some path lists it.
func (mp *MultiPath) FindRow(n uint64) (PathRow, bool) {
	r, ok := mp.listed[n]
	return r, ok
}

// Covers reports whether row n is in the covered set.
func (mp *MultiPath) Covers(n uint64) bool {
	_, ok := mp.covered[n]
	return ok
}

// Covered returns the covered row numbers in ascending order.
func (mp *MultiPath) Covered() []uint64 {
	nos := make([]uint64, 0, len(mp.covered))
	for n := range mp.covered {
		nos = append(nos, n)
	}
	sort.Slice(nos, func(i, j int) bool { return nos[i] < nos[j] })
	return nos
}

// Hi returns the highest covered row number.
func (mp *MultiPath) Hi() uint64 {
	var hi uint64
	for n := range mp.covered {
		if n > hi {
			hi = n
		}
	}
	return hi
}
