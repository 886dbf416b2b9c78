// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"context"

	"github.com/luxfi/skipledger/hashing"
)

// HashPair is one skip-table row: the source input hash and the derived
// skip-ledger row hash.
type HashPair struct {
	InputHash hashing.Hash
	RowHash   hashing.Hash
}

// Table is the append-only skip-table storage contract. Row numbers run
// 1..Size() with no gaps. Implementations serialize each operation;
// cross-handle ordering is the storage layer's business.
type Table interface {
	// Size returns the current row count.
	Size(ctx context.Context) (uint64, error)

	// Read returns row n. Fails ErrOutOfBounds outside [1, size].
	Read(ctx context.Context, n uint64) (HashPair, error)

	// Append writes pairs starting at row number first. first must not
	// exceed size+1 (no gaps). Rewriting already-stored rows is legal only
	// byte-for-byte (idempotent retry); disagreement fails ErrHashConflict
	// and leaves the table at its previous size.
	Append(ctx context.Context, first uint64, pairs []HashPair) (newSize uint64, err error)

	// Trim discards all rows above newSize. Fails ErrUnsupported when the
	// implementation or its capabilities forbid trimming, and
	// ErrOutOfBounds when newSize exceeds the current size.
	Trim(ctx context.Context, newSize uint64) error

	// Close releases the handle's resources.
	Close() error
}
