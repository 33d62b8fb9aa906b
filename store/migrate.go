// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package store

import (
	"context"
	"database/sql"
)

// postgresSchema defines the nodes and reservations tables.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	id       INTEGER PRIMARY KEY,
	capacity INTEGER NOT NULL,
	used     INTEGER NOT NULL DEFAULT 0,
	CHECK (used >= 0 AND used <= capacity)
);

CREATE TABLE IF NOT EXISTS reservations (
	request_id TEXT PRIMARY KEY,
	node_id    INTEGER NOT NULL REFERENCES nodes(id),
	tokens     INTEGER NOT NULL CHECK (tokens > 0),
	created_at TIMESTAMPTZ NOT NULL
);
`

// sqliteSchema is the same shape; SQLite has no TIMESTAMPTZ type and
// stores timestamps as text.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	id       INTEGER PRIMARY KEY,
	capacity INTEGER NOT NULL,
	used     INTEGER NOT NULL DEFAULT 0,
	CHECK (used >= 0 AND used <= capacity)
);

CREATE TABLE IF NOT EXISTS reservations (
	request_id TEXT PRIMARY KEY,
	node_id    INTEGER NOT NULL REFERENCES nodes(id),
	tokens     INTEGER NOT NULL CHECK (tokens > 0),
	created_at DATETIME NOT NULL
);
`

func migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	schema := postgresSchema
	if dialect == DialectSQLite {
		schema = sqliteSchema
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}
