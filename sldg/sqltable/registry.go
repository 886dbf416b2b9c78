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
	"github.com/luxfi/skipledger/salt"
)

// ChainInfo is one registered ledger in {prefix}_chain_infos.
type ChainInfo struct {
	ChainID int64
	Name    string
	Type    ledgers.Type
	Meta    string
}

// Microchain is one chain definition in {prefix}_microchains.
// Its primary key is mc_id (see schema note there).
type Microchain struct {
	McID    int64
	ChainID int64
	Def     string
}

// Registry manages the ledger registry, microchain definitions, and the
// rotating salt seeds. Deletes are soft: rows flip their deleted flag and
// stop being returned.
type Registry struct {
	db  *sql.DB
	env ledgers.Env
}

// NewRegistry returns a registry over db gated by env's capabilities.
func NewRegistry(db *sql.DB, env ledgers.Env) (*Registry, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &Registry{db: db, env: env}, nil
}

func (r *Registry) q(format string, args ...any) string {
	return fmt.Sprintf(format, append([]any{r.env.TablePrefix}, args...)...)
}

// RegisterLedger inserts a chain-info row and returns its id.
func (r *Registry) RegisterLedger(ctx context.Context, name string, typ ledgers.Type, meta string) (int64, error) {
	if err := r.env.CheckWrite(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		r.q("INSERT INTO %[1]s_chain_infos (name, type_tag, meta) VALUES (?, ?, ?)"),
		name, typ, meta)
	if err != nil {
		return 0, fmt.Errorf("%w: registering ledger %q: %v", ledgers.ErrStorage, name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: ledger %q id: %v", ledgers.ErrStorage, name, err)
	}
	return id, nil
}

// Ledger returns a registered, non-deleted ledger by id.
func (r *Registry) Ledger(ctx context.Context, chainID int64) (ChainInfo, error) {
	ci := ChainInfo{ChainID: chainID}
	var typ uint8
	var meta sql.NullString
	err := r.db.QueryRowContext(ctx,
		r.q("SELECT name, type_tag, meta FROM %[1]s_chain_infos WHERE chain_id = ? AND NOT deleted"),
		chainID).Scan(&ci.Name, &typ, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return ChainInfo{}, fmt.Errorf("%w: ledger %d", ledgers.ErrOutOfBounds, chainID)
	}
	if err != nil {
		return ChainInfo{}, fmt.Errorf("%w: reading ledger %d: %v", ledgers.ErrStorage, chainID, err)
	}
	ci.Type = ledgers.Type(typ)
	ci.Meta = meta.String
	return ci, nil
}

// DeleteLedger soft-deletes a ledger.
func (r *Registry) DeleteLedger(ctx context.Context, chainID int64) error {
	if err := r.env.CheckDelete(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		r.q("UPDATE %[1]s_chain_infos SET deleted = TRUE WHERE chain_id = ?"), chainID)
	if err != nil {
		return fmt.Errorf("%w: deleting ledger %d: %v", ledgers.ErrStorage, chainID, err)
	}
	return nil
}

// DefineMicrochain inserts a microchain definition and returns its mc_id.
func (r *Registry) DefineMicrochain(ctx context.Context, chainID int64, def string) (int64, error) {
	if err := r.env.CheckWrite(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		r.q("INSERT INTO %[1]s_microchains (chain_id, def) VALUES (?, ?)"), chainID, def)
	if err != nil {
		return 0, fmt.Errorf("%w: defining microchain: %v", ledgers.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: microchain id: %v", ledgers.ErrStorage, err)
	}
	return id, nil
}

// Microchains returns the non-deleted definitions of a ledger.
func (r *Registry) Microchains(ctx context.Context, chainID int64) ([]Microchain, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q("SELECT mc_id, def FROM %[1]s_microchains WHERE chain_id = ? AND NOT deleted ORDER BY mc_id"),
		chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading microchains of %d: %v", ledgers.ErrStorage, chainID, err)
	}
	defer rows.Close()
	var out []Microchain
	for rows.Next() {
		mc := Microchain{ChainID: chainID}
		if err := rows.Scan(&mc.McID, &mc.Def); err != nil {
			return nil, fmt.Errorf("%w: scanning microchain: %v", ledgers.ErrStorage, err)
		}
		out = append(out, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading microchains of %d: %v", ledgers.ErrStorage, chainID, err)
	}
	return out, nil
}

// AddEpochSeed stores one rotating salt-seed segment, seed in B64_32 text.
func (r *Registry) AddEpochSeed(ctx context.Context, chainID int64, epoch salt.EpochSeed) error {
	if err := r.env.CheckWrite(); err != nil {
		return err
	}
	if epoch.StartRow == 0 {
		return fmt.Errorf("%w: epoch start row 0", ledgers.ErrConfig)
	}
	_, err := r.db.ExecContext(ctx,
		r.q("INSERT INTO %[1]s_ledger_salts (chain_id, start_row, seed) VALUES (?, ?, ?)"),
		chainID, epoch.StartRow, hashing.Encode(hashing.Hash(epoch.Seed)))
	if err != nil {
		return fmt.Errorf("%w: storing epoch seed: %v", ledgers.ErrStorage, err)
	}
	return nil
}

// EpochSeeds returns the non-deleted seeds of a ledger ordered by start
// row, ready for salt.NewEpochedTableSalt.
func (r *Registry) EpochSeeds(ctx context.Context, chainID int64) ([]salt.EpochSeed, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q("SELECT start_row, seed FROM %[1]s_ledger_salts WHERE chain_id = ? AND NOT deleted ORDER BY start_row"),
		chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading epoch seeds of %d: %v", ledgers.ErrStorage, chainID, err)
	}
	defer rows.Close()
	var out []salt.EpochSeed
	for rows.Next() {
		var startRow uint64
		var seedText string
		if err := rows.Scan(&startRow, &seedText); err != nil {
			return nil, fmt.Errorf("%w: scanning epoch seed: %v", ledgers.ErrStorage, err)
		}
		seed, err := hashing.Decode(seedText)
		if err != nil {
			return nil, err
		}
		out = append(out, salt.EpochSeed{StartRow: startRow, Seed: [salt.SeedWidth]byte(seed)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading epoch seeds of %d: %v", ledgers.ErrStorage, chainID, err)
	}
	return out, nil
}
