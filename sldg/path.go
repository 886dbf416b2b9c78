// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"context"
	"fmt"
	"sort"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
)

// PathRow is one row of a commitment path: its input hash plus the row
// hashes of every row it references through its skip pointers, lowest
// level first. The row's own hash is derived, never stored.
type PathRow struct {
	No    uint64
	Input hashing.Hash
	Skips []hashing.Hash
}

// Hash derives the row hash: H(input, skip hashes in level order).
func (r PathRow) Hash(algo hashing.Algo) hashing.Hash {
	d := algo.New()
	d.Write(r.Input[:])
	for _, s := range r.Skips {
		d.Write(s[:])
	}
	var h hashing.Hash
	d.Sum(h[:0])
	return h
}

// Path is a non-empty ascending sequence of rows in which each consecutive
// pair is linked through a skip pointer, together with enough hashes to
// recompute every listed row's hash. A validated path proves that its
// highest row commits to every row it covers.
type Path struct {
	algo    hashing.Algo
	rows    []PathRow
	hashes  []hashing.Hash          // derived, parallel to rows
	covered map[uint64]hashing.Hash // listed ∪ referenced
}

// NewPath validates the rows and returns the path.
//
// Structural failures (bad skip-pointer arity, non-sentinel reference to
// row 0, descending numbers) are format errors; an unreachable consecutive
// pair is ErrUnlinkedPath; any hash recorded twice with different values is
// ErrHashConflict.
func NewPath(algo hashing.Algo, rows []PathRow) (*Path, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty path", ledgers.ErrFormat)
	}
	p := &Path{
		algo:    algo,
		rows:    append([]PathRow(nil), rows...),
		hashes:  make([]hashing.Hash, len(rows)),
		covered: make(map[uint64]hashing.Hash, 2*len(rows)),
	}
	for i, r := range p.rows {
		if r.No == 0 {
			return nil, fmt.Errorf("%w: path row number 0", ledgers.ErrFormat)
		}
		if i > 0 && r.No <= p.rows[i-1].No {
			return nil, fmt.Errorf("%w: path rows not ascending at %d", ledgers.ErrFormat, r.No)
		}
		if len(r.Skips) != SkipCount(r.No) {
			return nil, fmt.Errorf("%w: path row %d has %d skip hashes, want %d",
				ledgers.ErrFormat, r.No, len(r.Skips), SkipCount(r.No))
		}
		p.hashes[i] = r.Hash(algo)
	}
	// Linkage of consecutive pairs.
	for i := 1; i < len(p.rows); i++ {
		lo, hi := p.rows[i-1].No, p.rows[i].No
		linked := false
		for l := 0; l < SkipCount(hi) && !linked; l++ {
			linked = SkipRef(hi, l) == lo
		}
		if !linked {
			return nil, fmt.Errorf("%w: row %d does not reach row %d", ledgers.ErrUnlinkedPath, hi, lo)
		}
	}
	// Fold every recorded hash into the covered set, flagging disagreement.
	for i, r := range p.rows {
		if err := p.cover(r.No, p.hashes[i]); err != nil {
			return nil, err
		}
	}
	for _, r := range p.rows {
		for l, s := range r.Skips {
			ref := SkipRef(r.No, l)
			if ref == 0 {
				if !s.IsSentinel() {
					return nil, fmt.Errorf("%w: row %d references row 0 with a non-sentinel hash",
						ledgers.ErrFormat, r.No)
				}
				continue
			}
			if err := p.cover(ref, s); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func (p *Path) cover(n uint64, h hashing.Hash) error {
	if prev, ok := p.covered[n]; ok {
		if prev != h {
			return fmt.Errorf("%w: two hashes recorded for row %d", ledgers.ErrHashConflict, n)
		}
		return nil
	}
	p.covered[n] = h
	return nil
}

// Algo returns the path's digest algorithm.
func (p *Path) Algo() hashing.Algo { return p.algo }

// Lo returns the lowest listed row number.
func (p *Path) Lo() uint64 { return p.rows[0].No }

// Hi returns the highest listed row number.
func (p *Path) Hi() uint64 { return p.rows[len(p.rows)-1].No }

// Rows returns a copy of the listed rows.
func (p *Path) Rows() []PathRow { return append([]PathRow(nil), p.rows...) }

// NumRows returns the listed row count.
func (p *Path) NumRows() int { return len(p.rows) }

// FindRow returns the listed row at n, if any.
func (p *Path) FindRow(n uint64) (PathRow, bool) {
	i := sort.Search(len(p.rows), func(i int) bool { return p.rows[i].No >= n })
	if i < len(p.rows) && p.rows[i].No == n {
		return p.rows[i], true
	}
	return PathRow{}, false
}

// RowHash returns the hash of row n if the path covers it, listed or
// referenced.
func (p *Path) RowHash(n uint64) (hashing.Hash, bool) {
	h, ok := p.covered[n]
	return h, ok
}

// Covered returns the covered row numbers in ascending order.
func (p *Path) Covered() []uint64 {
	nos := make([]uint64, 0, len(p.covered))
	for n := range p.covered {
		nos = append(nos, n)
	}
	sort.Slice(nos, func(i, j int) bool { return nos[i] < nos[j] })
	return nos
}

// LoadPath reads a commitment path off a skip table that lists every
// target row, stitched along the shortest skip-pointer walks between them.
func LoadPath(ctx context.Context, t Table, algo hashing.Algo, targets []uint64) (*Path, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no target rows", ledgers.ErrConfig)
	}
	size, err := t.Size(ctx)
	if err != nil {
		return nil, err
	}
	sorted := append([]uint64(nil), targets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if sorted[0] == 0 || sorted[len(sorted)-1] > size {
		return nil, fmt.Errorf("%w: target rows outside [1, %d]", ledgers.ErrOutOfBounds, size)
	}

	var nos []uint64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			continue
		}
		seg := SkipPathNos(sorted[i-1], sorted[i])
		if len(nos) > 0 {
			seg = seg[1:] // shared endpoint
		}
		nos = append(nos, seg...)
	}
	if len(nos) == 0 {
		nos = sorted[:1]
	}

	rows := make([]PathRow, len(nos))
	for i, n := range nos {
		pair, err := t.Read(ctx, n)
		if err != nil {
			return nil, err
		}
		row := PathRow{No: n, Input: pair.InputHash, Skips: make([]hashing.Hash, SkipCount(n))}
		for l := range row.Skips {
			if ref := SkipRef(n, l); ref != 0 {
				refPair, err := t.Read(ctx, ref)
				if err != nil {
					return nil, err
				}
				row.Skips[l] = refPair.RowHash
			}
		}
		if row.Hash(algo) != pair.RowHash {
			return nil, fmt.Errorf("%w: stored row %d hash disagrees with its references",
				ledgers.ErrHashConflict, n)
		}
		rows[i] = row
	}
	return NewPath(algo, rows)
}
