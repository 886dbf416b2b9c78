// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/sldg"
)

// MetaHashAlgo is the ledger-id metadata key recording a non-default
// digest algorithm.
const MetaHashAlgo = "hash"

// Nugget is one ledger's evidence bundle inside a morsel: its identity,
// a multi-path commitment, optionally the revealed source rows, timechain
// notarizations, cross-ledger references, and named assets. Immutable once
// built.
type Nugget struct {
	id       ledgers.ID
	mp       *sldg.MultiPath
	sources  *SourcePack // nil when none
	notaries []NotaryPack
	refs     []RefPack
	assets   []Asset
}

// ID returns the nugget's ledger identity.
func (n *Nugget) ID() ledgers.ID { return n.id }

// Algo returns the nugget's digest algorithm.
func (n *Nugget) Algo() hashing.Algo { return n.mp.Algo() }

// MultiPath returns the commitment paths.
func (n *Nugget) MultiPath() *sldg.MultiPath { return n.mp }

// Sources returns the source pack, or nil.
func (n *Nugget) Sources() *SourcePack { return n.sources }

// Notaries returns the notary packs, ascending by chain id.
func (n *Nugget) Notaries() []NotaryPack { return append([]NotaryPack(nil), n.notaries...) }

// Refs returns the foreign-ref packs, ascending by foreign id.
func (n *Nugget) Refs() []RefPack { return append([]RefPack(nil), n.refs...) }

// Assets returns the named assets, ascending by name.
func (n *Nugget) Assets() []Asset { return append([]Asset(nil), n.assets...) }

// Asset returns the named asset's bytes, if present.
func (n *Nugget) Asset(name string) ([]byte, bool) {
	for _, a := range n.assets {
		if a.Name == name {
			return a.Data, true
		}
	}
	return nil, false
}

// idAlgo resolves a ledger id's digest algorithm from its metadata,
// defaulting to hashing.DefaultAlgo.
func idAlgo(id ledgers.ID) (hashing.Algo, error) {
	name, ok := id.Meta[MetaHashAlgo]
	if !ok {
		return hashing.DefaultAlgo, nil
	}
	return hashing.ParseAlgo(name)
}
