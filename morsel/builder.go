// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"fmt"
	"sort"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
	"github.com/luxfi/skipledger/sldg"
	"github.com/luxfi/skipledger/source"
)

// Builder assembles one nugget. Every add validates against the growing
// multi-path; a failed add leaves the builder unchanged. Builders are for
// one logical caller; Build snapshots the state into an immutable Nugget.
type Builder struct {
	id        ledgers.ID
	algo      hashing.Algo
	mp        *sldg.MultiPath
	scheme    salt.Scheme
	schemeSet bool
	rows      map[uint64]source.Row
	notaries  map[uint32][]NotarizedRow
	refs      map[uint32][]ForeignRef
	assets    map[string][]byte
}

// NewBuilder starts a nugget for id from its first commitment path. The
// id's hash-algo metadata (SHA-256 when absent) must name the path's
// algorithm.
func NewBuilder(id ledgers.ID, first *sldg.Path) (*Builder, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	algo, err := idAlgo(id)
	if err != nil {
		return nil, err
	}
	if algo != first.Algo() {
		return nil, fmt.Errorf("%w: ledger id declares %v, path hashed with %v",
			ledgers.ErrConfig, algo, first.Algo())
	}
	return &Builder{
		id:       id,
		algo:     algo,
		mp:       sldg.NewMultiPath(first),
		rows:     make(map[uint64]source.Row),
		notaries: make(map[uint32][]NotarizedRow),
		refs:     make(map[uint32][]ForeignRef),
		assets:   make(map[string][]byte),
	}, nil
}

// ID returns the ledger identity under construction.
func (b *Builder) ID() ledgers.ID { return b.id }

// MultiPath exposes a snapshot view of the commitment paths so far.
func (b *Builder) MultiPath() *sldg.MultiPath { return b.mp }

// AddPath admits another commitment path and returns the row number it
// intersects the existing set on.
func (b *Builder) AddPath(p *sldg.Path) (uint64, error) {
	return b.mp.AddPath(p)
}

// SetSaltScheme fixes the scheme source rows were salted under. Legal only
// before the first source row, never on a commits-only ledger, and mixed
// schemes are rejected for LOG ledgers.
func (b *Builder) SetSaltScheme(s salt.Scheme) error {
	if b.id.Type.CommitsOnly() {
		return fmt.Errorf("%w: salt scheme on a %v ledger", ledgers.ErrUnsupported, b.id.Type)
	}
	if len(b.rows) > 0 {
		return fmt.Errorf("%w: salt scheme set after source rows", ledgers.ErrConfig)
	}
	if b.id.Type == ledgers.TypeLog && s.Mixed() {
		return fmt.Errorf("%w: mixed salt scheme on a LOG ledger", ledgers.ErrConfig)
	}
	b.scheme = s
	b.schemeSet = true
	return nil
}

// AddSourceRow admits a (salted, possibly redacted) source row. The row
// must be listed in the multi-path and reproduce its recorded input hash;
// its salting must agree with the scheme.
func (b *Builder) AddSourceRow(sr source.Row) error {
	if b.id.Type.CommitsOnly() {
		return fmt.Errorf("%w: source rows on a %v ledger", ledgers.ErrUnsupported, b.id.Type)
	}
	if !b.schemeSet {
		return fmt.Errorf("%w: no salt scheme set", ledgers.ErrConfig)
	}
	listed, ok := b.mp.FindRow(sr.No())
	if !ok {
		return fmt.Errorf("%w: row %d is not listed in the multi-path", ledgers.ErrOutOfBounds, sr.No())
	}
	if err := checkRowSalting(sr, b.scheme); err != nil {
		return err
	}
	if sr.InputHash(b.algo) != listed.Input {
		return fmt.Errorf("%w: source row %d input hash disagrees with the multi-path",
			ledgers.ErrHashConflict, sr.No())
	}
	if prev, ok := b.rows[sr.No()]; ok {
		if prev.InputHash(b.algo) != listed.Input {
			return fmt.Errorf("%w: row %d added twice with different content", ledgers.ErrHashConflict, sr.No())
		}
		return nil
	}
	b.rows[sr.No()] = sr
	return nil
}

// checkRowSalting requires each non-redacted cell to be salted exactly
// where the scheme says.
func checkRowSalting(sr source.Row, sc salt.Scheme) error {
	for col := 0; col < sr.NumCells(); col++ {
		c := sr.Cell(col)
		if c.Redacted() {
			continue
		}
		if c.Salted() != sc.Salted(uint32(col)) {
			return fmt.Errorf("%w: row %d column %d salting disagrees with scheme",
				ledgers.ErrConfig, sr.No(), col)
		}
	}
	return nil
}

// AddNotarizedRow admits a timechain witness of one of this nugget's rows.
func (b *Builder) AddNotarizedRow(chainID uint32, nr NotarizedRow) error {
	if chainID == b.id.No {
		return fmt.Errorf("%w: notarization by the nugget's own ledger", ledgers.ErrConfig)
	}
	have, ok := b.mp.RowHash(nr.RowNo)
	if !ok {
		return fmt.Errorf("%w: notarized row %d is not covered", ledgers.ErrOutOfBounds, nr.RowNo)
	}
	if have != nr.RowHash {
		return fmt.Errorf("%w: notarized row %d hash disagrees with the multi-path",
			ledgers.ErrHashConflict, nr.RowNo)
	}
	b.notaries[chainID] = append(b.notaries[chainID], nr)
	return nil
}

// AddForeignRef admits a cross-ledger reference from one of this nugget's
// source cells. When expected is non-nil the referenced cell's data must
// equal it.
func (b *Builder) AddForeignRef(foreignID uint32, ref ForeignRef, expected *source.Cell) error {
	if foreignID == b.id.No {
		return fmt.Errorf("%w: foreign ref to the nugget's own ledger", ledgers.ErrConfig)
	}
	sr, ok := b.rows[ref.FromRow]
	if !ok {
		return fmt.Errorf("%w: ref source row %d is not in the nugget", ledgers.ErrOutOfBounds, ref.FromRow)
	}
	if int(ref.FromCol) >= sr.NumCells() {
		return fmt.Errorf("%w: ref column %d of %d", ledgers.ErrOutOfBounds, ref.FromCol, sr.NumCells())
	}
	cell := sr.Cell(int(ref.FromCol))
	switch ref.Kind {
	case RefSameContent:
		if sr.HasRedactions() {
			return fmt.Errorf("%w: same-content ref from a redacted row %d", ledgers.ErrConfig, ref.FromRow)
		}
	case RefBeacon:
		if cell.Redacted() {
			return fmt.Errorf("%w: beacon ref from redacted cell (%d, %d)", ledgers.ErrConfig, ref.FromRow, ref.FromCol)
		}
	default:
		return fmt.Errorf("%w: ref kind %d", ledgers.ErrConfig, ref.Kind)
	}
	if expected != nil && !cell.DataEqual(*expected) {
		return fmt.Errorf("%w: cell (%d, %d) disagrees with the expected value",
			ledgers.ErrHashConflict, ref.FromRow, ref.FromCol)
	}
	b.refs[foreignID] = append(b.refs[foreignID], ref)
	return nil
}

// AddAsset stores a named blob. Names in the library namespace are
// rejected; so are duplicates.
func (b *Builder) AddAsset(name string, data []byte) error {
	if name == "" || reservedAsset(name) {
		return fmt.Errorf("%w: asset name %q", ledgers.ErrConfig, name)
	}
	if _, ok := b.assets[name]; ok {
		return fmt.Errorf("%w: duplicate asset %q", ledgers.ErrConfig, name)
	}
	b.assets[name] = append([]byte(nil), data...)
	return nil
}

// Build snapshots the builder into an immutable nugget. The builder
// remains usable; later adds do not affect earlier snapshots.
func (b *Builder) Build() *Nugget {
	paths := b.mp.Paths()
	mp := sldg.NewMultiPath(paths[0])
	for _, p := range paths[1:] {
		// Already admitted once; re-admission cannot fail.
		mp.AddPath(p)
	}
	n := &Nugget{id: b.id, mp: mp}
	if b.schemeSet && len(b.rows) > 0 {
		rows := make([]source.Row, 0, len(b.rows))
		for _, r := range b.rows {
			rows = append(rows, r)
		}
		n.sources = NewSourcePack(b.scheme, rows)
	}
	for chainID, rows := range b.notaries {
		sorted := append([]NotarizedRow(nil), rows...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].RowNo < sorted[j].RowNo })
		n.notaries = append(n.notaries, NotaryPack{ChainID: chainID, Rows: sorted})
	}
	sort.Slice(n.notaries, func(i, j int) bool { return n.notaries[i].ChainID < n.notaries[j].ChainID })
	for foreignID, refs := range b.refs {
		n.refs = append(n.refs, RefPack{ForeignID: foreignID, Refs: append([]ForeignRef(nil), refs...)})
	}
	sort.Slice(n.refs, func(i, j int) bool { return n.refs[i].ForeignID < n.refs[j].ForeignID })
	for name, data := range b.assets {
		n.assets = append(n.assets, Asset{Name: name, Data: data})
	}
	sort.Slice(n.assets, func(i, j int) bool { return n.assets[i].Name < n.assets[j].Name })
	return n
}
