// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/sldg"
)

// Table maps the skip table onto {prefix}_sldg, hashes in B64_32 text.
//
// Appends and trims each run as a single transaction with auto-commit off;
// reads run under auto-commit. A hash conflict discovered mid-append rolls
// the transaction back, leaving the table at its previous size.
type Table struct {
	db  *sql.DB
	env ledgers.Env

	sizeQ   string
	readQ   string
	insertQ string
	trimQ   string
	countQ  string
}

var _ sldg.Table = (*Table)(nil)

// New returns a skip table over db gated by env's capabilities.
func New(db *sql.DB, env ledgers.Env) (*Table, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	p := env.TablePrefix
	return &Table{
		db:  db,
		env: env,

		sizeQ:   fmt.Sprintf("SELECT COALESCE(MAX(row_num), 0) FROM %s_sldg", p),
		readQ:   fmt.Sprintf("SELECT src_hash, row_hash FROM %s_sldg WHERE row_num = ?", p),
		insertQ: fmt.Sprintf("INSERT INTO %s_sldg (row_num, src_hash, row_hash) VALUES (?, ?, ?)", p),
		trimQ:   fmt.Sprintf("DELETE FROM %s_sldg WHERE row_num > ?", p),
		countQ:  fmt.Sprintf("SELECT COUNT(*) FROM %s_sldg WHERE row_num = ?", p),
	}, nil
}

// Size returns the current row count.
func (t *Table) Size(ctx context.Context) (uint64, error) {
	var size uint64
	if err := t.db.QueryRowContext(ctx, t.sizeQ).Scan(&size); err != nil {
		return 0, fmt.Errorf("%w: reading size: %v", ledgers.ErrStorage, err)
	}
	return size, nil
}

// Read returns row n.
func (t *Table) Read(ctx context.Context, n uint64) (sldg.HashPair, error) {
	return t.readRow(ctx, t.db.QueryRowContext, n)
}

type rowQuerier func(ctx context.Context, query string, args ...any) *sql.Row

func (t *Table) readRow(ctx context.Context, query rowQuerier, n uint64) (sldg.HashPair, error) {
	if n == 0 {
		return sldg.HashPair{}, fmt.Errorf("%w: row 0", ledgers.ErrOutOfBounds)
	}
	var src, row string
	err := query(ctx, t.readQ, n).Scan(&src, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return sldg.HashPair{}, fmt.Errorf("%w: row %d", ledgers.ErrOutOfBounds, n)
	}
	if err != nil {
		return sldg.HashPair{}, fmt.Errorf("%w: reading row %d: %v", ledgers.ErrStorage, n, err)
	}
	var pair sldg.HashPair
	if pair.InputHash, err = hashing.Decode(src); err != nil {
		return sldg.HashPair{}, err
	}
	if pair.RowHash, err = hashing.Decode(row); err != nil {
		return sldg.HashPair{}, err
	}
	return pair, nil
}

// Append writes pairs starting at row first in one transaction.
func (t *Table) Append(ctx context.Context, first uint64, pairs []sldg.HashPair) (uint64, error) {
	if err := t.env.CheckCommit(); err != nil {
		return 0, err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin append: %v", ledgers.ErrStorage, err)
	}
	newSize, err := t.appendTx(ctx, tx, first, pairs)
	if err != nil {
		tx.Rollback()
		return newSize, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit append: %v", ledgers.ErrStorage, err)
	}
	return newSize, nil
}

func (t *Table) appendTx(ctx context.Context, tx *sql.Tx, first uint64, pairs []sldg.HashPair) (uint64, error) {
	var size uint64
	if err := tx.QueryRowContext(ctx, t.sizeQ).Scan(&size); err != nil {
		return 0, fmt.Errorf("%w: reading size: %v", ledgers.ErrStorage, err)
	}
	if first == 0 || first > size+1 {
		return size, fmt.Errorf("%w: append at row %d, size %d", ledgers.ErrOutOfBounds, first, size)
	}
	newSize := size
	for i, p := range pairs {
		n := first + uint64(i)
		if n <= size {
			stored, err := t.readRow(ctx, tx.QueryRowContext, n)
			if err != nil {
				return size, err
			}
			if stored != p {
				return size, fmt.Errorf("%w: row %d already written with different hashes", ledgers.ErrHashConflict, n)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, t.insertQ, n, hashing.Encode(p.InputHash), hashing.Encode(p.RowHash)); err != nil {
			return size, fmt.Errorf("%w: inserting row %d: %v", ledgers.ErrStorage, n, err)
		}
		// A second entry at this number means another writer raced the
		// insert past the primary key, or the key is broken.
		var count int
		if err := tx.QueryRowContext(ctx, t.countQ, n).Scan(&count); err != nil {
			return size, fmt.Errorf("%w: recounting row %d: %v", ledgers.ErrStorage, n, err)
		}
		if count != 1 {
			return size, fmt.Errorf("%w: %d entries at row %d", ledgers.ErrConcurrentModification, count, n)
		}
		newSize = n
	}
	return newSize, nil
}

// Trim deletes all rows above newSize in one transaction.
func (t *Table) Trim(ctx context.Context, newSize uint64) error {
	if err := t.env.CheckRollback(); err != nil {
		return err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin trim: %v", ledgers.ErrStorage, err)
	}
	var size uint64
	if err := tx.QueryRowContext(ctx, t.sizeQ).Scan(&size); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: reading size: %v", ledgers.ErrStorage, err)
	}
	if newSize > size {
		tx.Rollback()
		return fmt.Errorf("%w: trim to %d beyond size %d", ledgers.ErrOutOfBounds, newSize, size)
	}
	if _, err := tx.ExecContext(ctx, t.trimQ, newSize); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: trimming to %d: %v", ledgers.ErrStorage, newSize, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit trim: %v", ledgers.ErrStorage, err)
	}
	return nil
}

// Close releases the handle. The *sql.DB stays open; its owner closes it.
func (t *Table) Close() error { return nil }
