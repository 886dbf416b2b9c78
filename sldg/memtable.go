// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sldg

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/skipledger/ledgers"
)

// MemTable is the in-memory reference Table. Always trimmable.
type MemTable struct {
	mu    sync.RWMutex
	pairs []HashPair
}

var _ Table = (*MemTable)(nil)

// NewMemTable returns an empty in-memory skip table.
func NewMemTable() *MemTable {
	return &MemTable{}
}

// Size returns the current row count.
func (t *MemTable) Size(context.Context) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.pairs)), nil
}

// Read returns row n.
func (t *MemTable) Read(_ context.Context, n uint64) (HashPair, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n == 0 || n > uint64(len(t.pairs)) {
		return HashPair{}, fmt.Errorf("%w: row %d of %d", ledgers.ErrOutOfBounds, n, len(t.pairs))
	}
	return t.pairs[n-1], nil
}

// Append writes pairs starting at row first, idempotently.
func (t *MemTable) Append(_ context.Context, first uint64, pairs []HashPair) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := uint64(len(t.pairs))
	fresh, err := checkAppend(size, first, pairs, func(n uint64) (HashPair, error) {
		return t.pairs[n-1], nil
	})
	if err != nil {
		return size, err
	}
	t.pairs = append(t.pairs, fresh...)
	return uint64(len(t.pairs)), nil
}

// Trim discards rows above newSize.
func (t *MemTable) Trim(_ context.Context, newSize uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if newSize > uint64(len(t.pairs)) {
		return fmt.Errorf("%w: trim to %d beyond size %d", ledgers.ErrOutOfBounds, newSize, len(t.pairs))
	}
	t.pairs = t.pairs[:newSize]
	return nil
}

// Close is a no-op.
func (t *MemTable) Close() error { return nil }

// checkAppend applies the shared append discipline: no gaps, and any
// overlap with already-stored rows must agree byte-for-byte. It returns the
// suffix of pairs that actually extends the table.
func checkAppend(size, first uint64, pairs []HashPair, read func(n uint64) (HashPair, error)) ([]HashPair, error) {
	if first == 0 || first > size+1 {
		return nil, fmt.Errorf("%w: append at row %d, size %d", ledgers.ErrOutOfBounds, first, size)
	}
	for i, p := range pairs {
		n := first + uint64(i)
		if n > size {
			return pairs[i:], nil
		}
		stored, err := read(n)
		if err != nil {
			return nil, err
		}
		if stored != p {
			return nil, fmt.Errorf("%w: row %d already written with different hashes", ledgers.ErrHashConflict, n)
		}
	}
	return nil, nil
}
