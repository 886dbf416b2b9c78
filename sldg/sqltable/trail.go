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
)

// TrailRecord is one witness trail stored against a skip-table row: the
// merkle position of the row hash in the witnessing tree and the hash
// chain up to its root, persisted across {prefix}_sldg_tr and
// {prefix}_sldg_ch.
type TrailRecord struct {
	TrailID   int64
	RowNum    uint64
	UTC       int64
	MerkleIdx int
	MerkleCnt int
	Chain     []hashing.Hash
}

// AddTrail stores a trail record and its hash chain in one transaction,
// returning the trail id.
func (r *Registry) AddTrail(ctx context.Context, rec TrailRecord) (int64, error) {
	if err := r.env.CheckCommit(); err != nil {
		return 0, err
	}
	if len(rec.Chain) == 0 {
		return 0, fmt.Errorf("%w: empty trail chain", ledgers.ErrConfig)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin trail insert: %v", ledgers.ErrStorage, err)
	}
	res, err := tx.ExecContext(ctx,
		r.q("INSERT INTO %[1]s_sldg_tr (row_num, utc, mrkl_idx, mrkl_cnt, chain_len) VALUES (?, ?, ?, ?, ?)"),
		rec.RowNum, rec.UTC, rec.MerkleIdx, rec.MerkleCnt, len(rec.Chain))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: inserting trail for row %d: %v", ledgers.ErrStorage, rec.RowNum, err)
	}
	trailID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: trail id: %v", ledgers.ErrStorage, err)
	}
	for _, h := range rec.Chain {
		if _, err := tx.ExecContext(ctx,
			r.q("INSERT INTO %[1]s_sldg_ch (trl_id, n_hash) VALUES (?, ?)"),
			trailID, hashing.Encode(h)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("%w: inserting trail chain: %v", ledgers.ErrStorage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit trail: %v", ledgers.ErrStorage, err)
	}
	return trailID, nil
}

// Trail returns the trail record stored against row rowNum, if any.
func (r *Registry) Trail(ctx context.Context, rowNum uint64) (TrailRecord, error) {
	rec := TrailRecord{RowNum: rowNum}
	var chainLen int
	err := r.db.QueryRowContext(ctx,
		r.q("SELECT trl_id, utc, mrkl_idx, mrkl_cnt, chain_len FROM %[1]s_sldg_tr WHERE row_num = ?"),
		rowNum).Scan(&rec.TrailID, &rec.UTC, &rec.MerkleIdx, &rec.MerkleCnt, &chainLen)
	if errors.Is(err, sql.ErrNoRows) {
		return TrailRecord{}, fmt.Errorf("%w: no trail for row %d", ledgers.ErrOutOfBounds, rowNum)
	}
	if err != nil {
		return TrailRecord{}, fmt.Errorf("%w: reading trail for row %d: %v", ledgers.ErrStorage, rowNum, err)
	}
	rows, err := r.db.QueryContext(ctx,
		r.q("SELECT n_hash FROM %[1]s_sldg_ch WHERE trl_id = ? ORDER BY chn_id"), rec.TrailID)
	if err != nil {
		return TrailRecord{}, fmt.Errorf("%w: reading trail chain %d: %v", ledgers.ErrStorage, rec.TrailID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return TrailRecord{}, fmt.Errorf("%w: scanning trail chain: %v", ledgers.ErrStorage, err)
		}
		h, err := hashing.Decode(text)
		if err != nil {
			return TrailRecord{}, err
		}
		rec.Chain = append(rec.Chain, h)
	}
	if err := rows.Err(); err != nil {
		return TrailRecord{}, fmt.Errorf("%w: reading trail chain %d: %v", ledgers.ErrStorage, rec.TrailID, err)
	}
	if len(rec.Chain) != chainLen {
		return TrailRecord{}, fmt.Errorf("%w: trail %d has %d chain hashes, recorded %d",
			ledgers.ErrConcurrentModification, rec.TrailID, len(rec.Chain), chainLen)
	}
	return rec, nil
}
