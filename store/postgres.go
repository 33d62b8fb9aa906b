// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/go-core-stack/tokenpool/config"
	"github.com/go-core-stack/tokenpool/errors"
)

// OpenPostgres opens the production dialect against settings.DatabaseURL,
// pools connections per settings' DBPoolSize/DBMaxOverflow/DBPoolTimeout
// and runs the schema migration before returning, the way db/mongo.go's
// NewMongoClient establishes and verifies a client up front rather than
// lazily on first use.
func OpenPostgres(ctx context.Context, settings *config.Settings, log logr.Logger) (Store, error) {
	db, err := sql.Open("pgx", settings.DatabaseURL)
	if err != nil {
		return nil, errors.WrapErr(errors.Internal, err)
	}

	poolTimeout := time.Duration(settings.DBPoolTimeout) * time.Second

	db.SetMaxOpenConns(settings.DBPoolSize + settings.DBMaxOverflow)
	db.SetMaxIdleConns(settings.DBPoolSize)
	db.SetConnMaxIdleTime(poolTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, poolTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.WrapErr(errors.Internal, err)
	}

	if err := migrate(ctx, db, DialectPostgres); err != nil {
		_ = db.Close()
		return nil, errors.WrapErr(errors.Internal, err)
	}

	return newEngine(db, DialectPostgres, nil, log, postgresCandidateSQL), nil
}
