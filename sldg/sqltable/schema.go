// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sqltable is the reference relational mapping of the skip table
// and its ledger registry. The embedding program supplies the database/sql
// driver; this package only issues portable SQL.
//
// Hashes and salt seeds are stored in their 43-character B64_32 text form.
package sqltable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luxfi/skipledger/ledgers"
)

// createDDL are the idempotent table definitions, in dependency order.
// %[1]s is the env's table prefix. Identity columns use the SQL:2003 form.
var createDDL = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s_sldg (
		row_num  BIGINT PRIMARY KEY,
		src_hash CHAR(43) NOT NULL,
		row_hash CHAR(43) NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_sldg_tr (
		trl_id    INT PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
		row_num   BIGINT NOT NULL REFERENCES %[1]s_sldg (row_num),
		utc       BIGINT NOT NULL,
		mrkl_idx  INT NOT NULL,
		mrkl_cnt  INT NOT NULL,
		chain_len INT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_sldg_ch (
		chn_id  INT PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
		trl_id  INT NOT NULL REFERENCES %[1]s_sldg_tr (trl_id),
		n_hash  CHAR(43) NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_chain_infos (
		chain_id INT PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
		name     VARCHAR(255) NOT NULL,
		type_tag SMALLINT NOT NULL,
		meta     VARCHAR(4096),
		deleted  BOOLEAN NOT NULL DEFAULT FALSE)`,
	// The source schema names def_id as this table's primary key but
	// declares no such column; mc_id is the key here.
	`CREATE TABLE IF NOT EXISTS %[1]s_microchains (
		mc_id    INT PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
		chain_id INT NOT NULL REFERENCES %[1]s_chain_infos (chain_id),
		def      VARCHAR(4096) NOT NULL,
		deleted  BOOLEAN NOT NULL DEFAULT FALSE)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_ledger_salts (
		salt_id   INT PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
		chain_id  INT NOT NULL REFERENCES %[1]s_chain_infos (chain_id),
		start_row BIGINT NOT NULL,
		seed      CHAR(43) NOT NULL,
		deleted   BOOLEAN NOT NULL DEFAULT FALSE)`,
}

// CreateTables idempotently creates every table under the env's prefix.
func CreateTables(ctx context.Context, db *sql.DB, env ledgers.Env) error {
	if err := env.Validate(); err != nil {
		return err
	}
	if err := env.CheckWrite(); err != nil {
		return err
	}
	for _, ddl := range createDDL {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(ddl, env.TablePrefix)); err != nil {
			return fmt.Errorf("%w: creating tables: %v", ledgers.ErrStorage, err)
		}
	}
	return nil
}
