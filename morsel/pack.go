// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package morsel assembles ledger evidence into nuggets and packages
// nuggets into the morsel container file: a self-contained, independently
// verifiable bundle of commitment paths, source rows, timechain
// notarizations, and cross-ledger references.
package morsel

import (
	"sort"
	"strings"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/salt"
	"github.com/luxfi/skipledger/source"
)

// SourcePack carries the revealed source rows of one nugget, keyed by row
// number, together with the salt scheme they were salted under.
type SourcePack struct {
	scheme salt.Scheme
	rows   []source.Row // ascending by row number
}

// NewSourcePack returns a pack over the given rows (sorted by row number).
func NewSourcePack(scheme salt.Scheme, rows []source.Row) *SourcePack {
	sorted := append([]source.Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].No() < sorted[j].No() })
	return &SourcePack{scheme: scheme, rows: sorted}
}

// Scheme returns the pack's salt scheme.
func (p *SourcePack) Scheme() salt.Scheme { return p.scheme }

// Rows returns a copy of the rows, ascending by row number.
func (p *SourcePack) Rows() []source.Row { return append([]source.Row(nil), p.rows...) }

// NumRows returns the row count.
func (p *SourcePack) NumRows() int { return len(p.rows) }

// FindRow returns the row at number no, if present.
func (p *SourcePack) FindRow(no uint64) (source.Row, bool) {
	i := sort.Search(len(p.rows), func(i int) bool { return p.rows[i].No() >= no })
	if i < len(p.rows) && p.rows[i].No() == no {
		return p.rows[i], true
	}
	return source.Row{}, false
}

// NotarizedRow witnesses that a timechain committed this nugget's row hash
// at RowNo no later than the timechain block WitnessBlock.
type NotarizedRow struct {
	RowNo        uint64
	RowHash      hashing.Hash
	WitnessBlock uint64
}

// NotaryPack lists the notarized rows witnessed by one timechain.
type NotaryPack struct {
	ChainID uint32
	Rows    []NotarizedRow
}

// RefKind classifies a foreign reference. The values are wire tags.
type RefKind uint8

const (
	// RefSameContent asserts the referenced cells carry equal data.
	RefSameContent RefKind = 0
	// RefBeacon asserts a cell's data equals a foreign row's hash.
	RefBeacon RefKind = 1
)

// NoTargetCol marks a foreign ref without a target column.
const NoTargetCol int32 = -1

// ForeignRef ties a cell of this nugget to a row (or cell) of another
// ledger in the same morsel.
type ForeignRef struct {
	FromRow   uint64
	FromCol   uint32
	Kind      RefKind
	TargetRow uint64
	TargetCol int32 // NoTargetCol when absent
}

// RefPack groups the foreign refs aimed at one target ledger.
type RefPack struct {
	ForeignID uint32
	Refs      []ForeignRef
}

// ReservedAssetPrefix namespaces library-defined asset names. User assets
// may not start with it.
const ReservedAssetPrefix = ".sldg/"

// Asset is one named byte blob in a nugget's flat asset namespace.
type Asset struct {
	Name string
	Data []byte
}

// reservedAsset reports whether name falls in the library namespace.
func reservedAsset(name string) bool {
	return strings.HasPrefix(name, ReservedAssetPrefix)
}
