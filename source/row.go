// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package source

import (
	"fmt"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
)

// Row is an ordered vector of cells at a positive row number. Rows are
// immutable; Redact returns a derived row.
type Row struct {
	no    uint64
	cells []Cell
}

// NewRow validates and returns a row. Row numbers start at 1 and a row has
// at least one cell.
func NewRow(no uint64, cells ...Cell) (Row, error) {
	if no == 0 {
		return Row{}, fmt.Errorf("%w: source row number 0", ledgers.ErrOutOfBounds)
	}
	if len(cells) == 0 {
		return Row{}, fmt.Errorf("%w: source row %d has no cells", ledgers.ErrConfig, no)
	}
	for i, c := range cells {
		if !c.Type().Valid() {
			return Row{}, fmt.Errorf("%w: source row %d cell %d has tag %d", ledgers.ErrConfig, no, i, c.Type())
		}
	}
	return Row{no: no, cells: append([]Cell(nil), cells...)}, nil
}

// No returns the row number.
func (r Row) No() uint64 { return r.no }

// NumCells returns the column count.
func (r Row) NumCells() int { return len(r.cells) }

// Cell returns the cell at column col.
func (r Row) Cell(col int) Cell { return r.cells[col] }

// Cells returns a copy of the cell vector.
func (r Row) Cells() []Cell { return append([]Cell(nil), r.cells...) }

// InputHash is the row's contribution to the skip ledger: H over the
// concatenated cell hashes in column order.
func (r Row) InputHash(algo hashing.Algo) hashing.Hash {
	d := algo.New()
	for _, c := range r.cells {
		h := c.Hash(algo)
		d.Write(h[:])
	}
	var h hashing.Hash
	d.Sum(h[:0])
	return h
}

// Redact replaces column col with a HashOnly cell preserving its hash.
// Idempotent, and by construction input-hash preserving.
func (r Row) Redact(algo hashing.Algo, col int) (Row, error) {
	if col < 0 || col >= len(r.cells) {
		return Row{}, fmt.Errorf("%w: redact column %d of %d", ledgers.ErrOutOfBounds, col, len(r.cells))
	}
	if r.cells[col].Redacted() {
		return r, nil
	}
	cells := r.Cells()
	cells[col] = HashOnly(cells[col].Hash(algo))
	return Row{no: r.no, cells: cells}, nil
}

// HasRedactions reports whether any cell is HashOnly.
func (r Row) HasRedactions() bool {
	for _, c := range r.cells {
		if c.Redacted() {
			return true
		}
	}
	return false
}

// SaltedRow applies the scheme's effective cell salts to the given raw
// cells and returns the finished row. HashOnly cells pass through as is.
func SaltedRow(rs salt.RowSalter, sc salt.Scheme, no uint64, cells ...Cell) (Row, error) {
	salted := make([]Cell, len(cells))
	for i, c := range cells {
		if c.Redacted() {
			salted[i] = c
			continue
		}
		s, ok, err := salt.EffectiveCellSalt(rs, sc, no, uint32(i))
		if err != nil {
			return Row{}, err
		}
		if !ok {
			salted[i] = c
			continue
		}
		if salted[i], err = c.WithSalt(s); err != nil {
			return Row{}, err
		}
	}
	return NewRow(no, salted...)
}
