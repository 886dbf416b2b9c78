// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"bytes"
	"fmt"

	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
	"github.com/luxfi/skipledger/sldg"
	"github.com/luxfi/skipledger/source"
)

// Verify checks a nugget end to end: every path revalidates, the paths
// stay mutually consistent, every source row reproduces its committed
// input hash under the declared salt scheme, and — for each foreign nugget
// supplied — notarizations and cross-ledger references hold. Checks whose
// foreign nugget is absent are skipped.
//
// A non-nil salter additionally re-derives every cell salt from the secret
// seed, proving the salts themselves are genuine; verifiers without the
// seed pass nil and rely on the salts embedded in the pack.
func Verify(n *Nugget, foreign map[uint32]*Nugget, salter salt.RowSalter) error {
	if err := verifyPaths(n); err != nil {
		return err
	}
	if err := verifySources(n, salter); err != nil {
		return err
	}
	if err := verifyNotaries(n, foreign); err != nil {
		return err
	}
	return verifyRefs(n, foreign)
}

// verifyPaths revalidates each path independently, then their mutual
// consistency, by rebuilding the multi-path from raw rows.
func verifyPaths(n *Nugget) error {
	paths := n.mp.Paths()
	if len(paths) == 0 {
		return fmt.Errorf("%w: nugget %d has no paths", ledgers.ErrInternal, n.id.No)
	}
	var mp *sldg.MultiPath
	for _, p := range paths {
		fresh, err := sldg.NewPath(n.Algo(), p.Rows())
		if err != nil {
			return err
		}
		if mp == nil {
			mp = sldg.NewMultiPath(fresh)
		} else if _, err := mp.AddPath(fresh); err != nil {
			return err
		}
	}
	return nil
}

func verifySources(n *Nugget, salter salt.RowSalter) error {
	if n.sources == nil {
		return nil
	}
	scheme := n.sources.Scheme()
	for _, sr := range n.sources.Rows() {
		listed, ok := n.mp.FindRow(sr.No())
		if !ok {
			return fmt.Errorf("%w: source row %d is not listed in the multi-path",
				ledgers.ErrOutOfBounds, sr.No())
		}
		if err := checkRowSalting(sr, scheme); err != nil {
			return err
		}
		if sr.InputHash(n.Algo()) != listed.Input {
			return fmt.Errorf("%w: source row %d input hash disagrees with its commitment",
				ledgers.ErrHashConflict, sr.No())
		}
		if salter == nil {
			continue
		}
		for col := 0; col < sr.NumCells(); col++ {
			cell := sr.Cell(col)
			if cell.Redacted() || !cell.Salted() {
				continue
			}
			want, _, err := salt.EffectiveCellSalt(salter, scheme, sr.No(), uint32(col))
			if err != nil {
				return err
			}
			got, _ := cell.Salt()
			if !bytes.Equal(got, want[:]) {
				return fmt.Errorf("%w: cell (%d, %d) salt was not derived from the seed",
					ledgers.ErrHashConflict, sr.No(), col)
			}
		}
	}
	return nil
}

func verifyNotaries(n *Nugget, foreign map[uint32]*Nugget) error {
	for _, pack := range n.notaries {
		for _, nr := range pack.Rows {
			have, ok := n.mp.RowHash(nr.RowNo)
			if !ok {
				return fmt.Errorf("%w: notarized row %d is not covered", ledgers.ErrOutOfBounds, nr.RowNo)
			}
			if have != nr.RowHash {
				return fmt.Errorf("%w: notarized row %d hash disagrees with the multi-path",
					ledgers.ErrHashConflict, nr.RowNo)
			}
			tc := foreign[pack.ChainID]
			if tc == nil {
				continue
			}
			if !tc.ID().Type.CommitsOnly() {
				return fmt.Errorf("%w: notary ledger %d is a %v, not a timechain",
					ledgers.ErrConfig, pack.ChainID, tc.ID().Type)
			}
			if !tc.MultiPath().Covers(nr.WitnessBlock) {
				return fmt.Errorf("%w: timechain %d does not cover witness block %d",
					ledgers.ErrOutOfBounds, pack.ChainID, nr.WitnessBlock)
			}
			// When the witness block is fully listed, its input must be
			// the derivation of the notarized hash.
			if block, ok := tc.MultiPath().FindRow(nr.WitnessBlock); ok {
				if block.Input != tc.Algo().Sum(nr.RowHash[:]) {
					return fmt.Errorf("%w: timechain %d block %d does not commit row %d",
						ledgers.ErrHashConflict, pack.ChainID, nr.WitnessBlock, nr.RowNo)
				}
			}
		}
	}
	return nil
}

func verifyRefs(n *Nugget, foreign map[uint32]*Nugget) error {
	for _, pack := range n.refs {
		target := foreign[pack.ForeignID]
		for _, ref := range pack.Refs {
			cell, err := refCell(n, ref)
			if err != nil {
				return err
			}
			if target == nil {
				continue
			}
			switch ref.Kind {
			case RefSameContent:
				if err := verifySameContent(cell, target, ref); err != nil {
					return err
				}
			case RefBeacon:
				if err := verifyBeacon(cell, target, ref); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// refCell re-checks the builder-side ref invariants against the decoded
// nugget and returns the referencing cell.
func refCell(n *Nugget, ref ForeignRef) (source.Cell, error) {
	if n.sources == nil {
		return source.Cell{}, fmt.Errorf("%w: foreign ref without a source pack", ledgers.ErrFormat)
	}
	sr, ok := n.sources.FindRow(ref.FromRow)
	if !ok {
		return source.Cell{}, fmt.Errorf("%w: ref source row %d is not in the nugget",
			ledgers.ErrOutOfBounds, ref.FromRow)
	}
	if int(ref.FromCol) >= sr.NumCells() {
		return source.Cell{}, fmt.Errorf("%w: ref column %d of %d",
			ledgers.ErrOutOfBounds, ref.FromCol, sr.NumCells())
	}
	cell := sr.Cell(int(ref.FromCol))
	switch {
	case ref.Kind == RefSameContent && sr.HasRedactions():
		return source.Cell{}, fmt.Errorf("%w: same-content ref from a redacted row %d",
			ledgers.ErrConfig, ref.FromRow)
	case ref.Kind == RefBeacon && cell.Redacted():
		return source.Cell{}, fmt.Errorf("%w: beacon ref from redacted cell (%d, %d)",
			ledgers.ErrConfig, ref.FromRow, ref.FromCol)
	}
	return cell, nil
}

func verifySameContent(cell source.Cell, target *Nugget, ref ForeignRef) error {
	if target.Sources() == nil {
		return fmt.Errorf("%w: target ledger %d carries no source rows", ledgers.ErrOutOfBounds, target.ID().No)
	}
	tr, ok := target.Sources().FindRow(ref.TargetRow)
	if !ok {
		return fmt.Errorf("%w: target row %d is not in ledger %d",
			ledgers.ErrOutOfBounds, ref.TargetRow, target.ID().No)
	}
	col := int(ref.FromCol)
	if ref.TargetCol != NoTargetCol {
		col = int(ref.TargetCol)
	}
	if col >= tr.NumCells() {
		return fmt.Errorf("%w: target column %d of %d", ledgers.ErrOutOfBounds, col, tr.NumCells())
	}
	if !cell.DataEqual(tr.Cell(col)) {
		return fmt.Errorf("%w: cell (%d, %d) disagrees with ledger %d row %d",
			ledgers.ErrHashConflict, ref.FromRow, ref.FromCol, target.ID().No, ref.TargetRow)
	}
	return nil
}

func verifyBeacon(cell source.Cell, target *Nugget, ref ForeignRef) error {
	want, ok := target.MultiPath().RowHash(ref.TargetRow)
	if !ok {
		return fmt.Errorf("%w: ledger %d does not cover row %d",
			ledgers.ErrOutOfBounds, target.ID().No, ref.TargetRow)
	}
	var got []byte
	switch cell.Type() {
	case source.TypeBytes:
		got = cell.BytesValue()
	case source.TypeString:
		got = []byte(cell.StringValue())
	default:
		return fmt.Errorf("%w: beacon cell (%d, %d) is a %v",
			ledgers.ErrFormat, ref.FromRow, ref.FromCol, cell.Type())
	}
	if !bytes.Equal(got, want[:]) {
		return fmt.Errorf("%w: beacon cell (%d, %d) disagrees with ledger %d row %d hash",
			ledgers.ErrHashConflict, ref.FromRow, ref.FromCol, target.ID().No, ref.TargetRow)
	}
	return nil
}
