// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package store

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	_ "modernc.org/sqlite"

	"github.com/go-core-stack/tokenpool/errors"
)

// OpenSQLite opens the development/test dialect against rawURL (a
// "sqlite://path", "file:path" or ":memory:" DSN understood by
// modernc.org/sqlite), and runs the schema migration. Every writer
// transaction is additionally serialized behind a process-level mutex: the
// pure-Go driver offers no row-level locking, so this stands in as a
// coarser substitute for it.
func OpenSQLite(ctx context.Context, rawURL string, log logr.Logger) (Store, error) {
	dsn := strings.TrimPrefix(rawURL, "sqlite://")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapErr(errors.Internal, err)
	}
	// a single physical connection keeps every statement on the same
	// in-memory database handle and avoids SQLITE_BUSY under the mutex.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapErr(errors.Internal, err)
	}

	if err := migrate(ctx, db, DialectSQLite); err != nil {
		_ = db.Close()
		return nil, errors.WrapErr(errors.Internal, err)
	}

	return newEngine(db, DialectSQLite, &sync.Mutex{}, log, sqliteCandidateSQL), nil
}
