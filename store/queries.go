// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// postgresCandidateSQL locks the winning row with FOR UPDATE SKIP LOCKED,
// so concurrent allocators contend for distinct candidates instead of
// queueing behind one another.
func postgresCandidateSQL(order Order) string {
	dir := "ASC"
	if order == OrderDescending {
		dir = "DESC"
	}
	return `SELECT id, capacity, used FROM nodes
		WHERE capacity - used >= $1
		ORDER BY (capacity - used) ` + dir + `, id ASC
		LIMIT 1 FOR UPDATE SKIP LOCKED`
}

// sqliteCandidateSQL omits FOR UPDATE SKIP LOCKED, which SQLite does not
// support; the engine's process-level write mutex is what makes this safe.
func sqliteCandidateSQL(order Order) string {
	dir := "ASC"
	if order == OrderDescending {
		dir = "DESC"
	}
	return `SELECT id, capacity, used FROM nodes
		WHERE capacity - used >= $1
		ORDER BY (capacity - used) ` + dir + `, id ASC
		LIMIT 1`
}

func insertNodeIfAbsentSQL(dialect Dialect) string {
	if dialect == DialectPostgres {
		return `INSERT INTO nodes (id, capacity, used) VALUES ($1, $2, 0) ON CONFLICT (id) DO NOTHING`
	}
	return `INSERT OR IGNORE INTO nodes (id, capacity, used) VALUES ($1, $2, 0)`
}

// isUniqueViolation recognizes the reservations.request_id primary-key
// conflict used to detect a concurrent winner for the same request,
// across both dialects' distinct error shapes.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
