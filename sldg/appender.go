// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"context"

	"github.com/luxfi/skipledger/hashing"
)

// Appender owns a table and its live frontier, turning source input hashes
// into committed skip-table rows. One logical caller per appender.
type Appender struct {
	t    Table
	algo hashing.Algo
	f    Frontier
}

// NewAppender loads the table's current frontier (empty table included)
// and returns an appender positioned at its end.
func NewAppender(ctx context.Context, t Table, algo hashing.Algo) (*Appender, error) {
	size, err := t.Size(ctx)
	if err != nil {
		return nil, err
	}
	a := &Appender{t: t, algo: algo}
	if size > 0 {
		if a.f, err = LoadFrontier(ctx, t, algo, size); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Size returns the committed row count.
func (a *Appender) Size() uint64 { return a.f.RowNo() }

// Frontier returns the frontier after the last committed row.
func (a *Appender) Frontier() Frontier { return a.f }

// AddInputs derives row hashes for the inputs and commits them in one
// table append. On failure the appender's frontier is unchanged, matching
// the table (which keeps its previous size on HashConflict).
func (a *Appender) AddInputs(ctx context.Context, inputs ...hashing.Hash) (uint64, error) {
	if len(inputs) == 0 {
		return a.f.RowNo(), nil
	}
	next := a.f
	pairs := make([]HashPair, len(inputs))
	for i, in := range inputs {
		if next.RowNo() == 0 {
			next = FirstRow(a.algo, in)
		} else {
			next = next.NextRow(in)
		}
		pairs[i] = HashPair{InputHash: in, RowHash: next.RowHash()}
	}
	newSize, err := a.t.Append(ctx, a.f.RowNo()+1, pairs)
	if err != nil {
		return a.f.RowNo(), err
	}
	a.f = next
	return newSize, nil
}
