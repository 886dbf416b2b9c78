// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kvtable backs a skip table with any luxfi/database key-value
// store. Rows live under 'r'-prefixed big-endian row-number keys; the row
// count lives under a dedicated size key so Size never scans.
package kvtable

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/sldg"
)

var sizeKey = []byte{'s'}

func rowKey(n uint64) []byte {
	k := make([]byte, 9)
	k[0] = 'r'
	binary.BigEndian.PutUint64(k[1:], n)
	return k
}

// Table is a luxfi/database-backed sldg.Table.
type Table struct {
	mu        sync.RWMutex
	db        database.Database
	size      uint64
	trimmable bool
}

var _ sldg.Table = (*Table)(nil)

// Option configures a Table.
type Option func(*Table)

// WithTrim enables the Trim operation, which is otherwise unsupported.
func WithTrim() Option {
	return func(t *Table) { t.trimmable = true }
}

// New opens a skip table over db, reading the persisted size.
func New(db database.Database, opts ...Option) (*Table, error) {
	t := &Table{db: db}
	for _, o := range opts {
		o(t)
	}
	raw, err := db.Get(sizeKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("%w: reading size: %v", ledgers.ErrStorage, err)
	case len(raw) != 8:
		return nil, fmt.Errorf("%w: size record is %d bytes", ledgers.ErrFormat, len(raw))
	default:
		t.size = binary.BigEndian.Uint64(raw)
	}
	return t, nil
}

// Size returns the current row count.
func (t *Table) Size(context.Context) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size, nil
}

// Read returns row n.
func (t *Table) Read(_ context.Context, n uint64) (sldg.HashPair, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read(n)
}

func (t *Table) read(n uint64) (sldg.HashPair, error) {
	if n == 0 || n > t.size {
		return sldg.HashPair{}, fmt.Errorf("%w: row %d of %d", ledgers.ErrOutOfBounds, n, t.size)
	}
	raw, err := t.db.Get(rowKey(n))
	if errors.Is(err, database.ErrNotFound) {
		return sldg.HashPair{}, fmt.Errorf("%w: row %d missing below size %d", ledgers.ErrConcurrentModification, n, t.size)
	}
	if err != nil {
		return sldg.HashPair{}, fmt.Errorf("%w: reading row %d: %v", ledgers.ErrStorage, n, err)
	}
	if len(raw) != 2*hashing.HashWidth {
		return sldg.HashPair{}, fmt.Errorf("%w: row %d record is %d bytes", ledgers.ErrFormat, n, len(raw))
	}
	var pair sldg.HashPair
	copy(pair.InputHash[:], raw)
	copy(pair.RowHash[:], raw[hashing.HashWidth:])
	return pair, nil
}

// Append writes pairs starting at row first, idempotently, committing the
// rows and the new size in one batch.
func (t *Table) Append(_ context.Context, first uint64, pairs []sldg.HashPair) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if first == 0 || first > t.size+1 {
		return t.size, fmt.Errorf("%w: append at row %d, size %d", ledgers.ErrOutOfBounds, first, t.size)
	}
	batch := t.db.NewBatch()
	newSize := t.size
	for i, p := range pairs {
		n := first + uint64(i)
		if n <= t.size {
			stored, err := t.read(n)
			if err != nil {
				return t.size, err
			}
			if stored != p {
				return t.size, fmt.Errorf("%w: row %d already written with different hashes", ledgers.ErrHashConflict, n)
			}
			continue
		}
		val := make([]byte, 0, 2*hashing.HashWidth)
		val = append(val, p.InputHash[:]...)
		val = append(val, p.RowHash[:]...)
		if err := batch.Put(rowKey(n), val); err != nil {
			return t.size, fmt.Errorf("%w: batching row %d: %v", ledgers.ErrStorage, n, err)
		}
		newSize = n
	}
	if newSize == t.size {
		return t.size, nil
	}
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], newSize)
	if err := batch.Put(sizeKey, sz[:]); err != nil {
		return t.size, fmt.Errorf("%w: batching size: %v", ledgers.ErrStorage, err)
	}
	if err := batch.Write(); err != nil {
		return t.size, fmt.Errorf("%w: committing append: %v", ledgers.ErrStorage, err)
	}
	t.size = newSize
	return t.size, nil
}

// Trim discards rows above newSize in one batch.
func (t *Table) Trim(_ context.Context, newSize uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.trimmable {
		return fmt.Errorf("%w: table opened without trim", ledgers.ErrUnsupported)
	}
	if newSize > t.size {
		return fmt.Errorf("%w: trim to %d beyond size %d", ledgers.ErrOutOfBounds, newSize, t.size)
	}
	if newSize == t.size {
		return nil
	}
	batch := t.db.NewBatch()
	for n := newSize + 1; n <= t.size; n++ {
		if err := batch.Delete(rowKey(n)); err != nil {
			return fmt.Errorf("%w: batching delete of row %d: %v", ledgers.ErrStorage, n, err)
		}
	}
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], newSize)
	if err := batch.Put(sizeKey, sz[:]); err != nil {
		return fmt.Errorf("%w: batching size: %v", ledgers.ErrStorage, err)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("%w: committing trim: %v", ledgers.ErrStorage, err)
	}
	t.size = newSize
	return nil
}

// Close releases the handle. The underlying database stays open; its owner
// closes it.
func (t *Table) Close() error { return nil }
