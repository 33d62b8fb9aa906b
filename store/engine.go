// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// engine.go implements the allocation and release protocol once, against
// plain database/sql, parametrized by the dialect-specific statements
// (SKIP LOCKED / FOR UPDATE vs none) and an optional writer mutex standing in for
// the coarser locking the development/test dialect uses instead of row
// locks.

package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"

	coreerrors "github.com/go-core-stack/tokenpool/errors"
)

// candidateQuery returns the SQL selecting the single best candidate node
// for a request, already filtered to remaining >= tokenCount and ordered
// per order, with id ascending as the tie-break.
type candidateQuery func(order Order) string

type engine struct {
	db      *sql.DB
	dialect Dialect
	log     logr.Logger

	// writeMu serializes writer transactions for dialects (sqlite) with
	// no row-level lock support; nil for postgres, which relies entirely
	// on SELECT ... FOR UPDATE SKIP LOCKED plus the conditional UPDATE.
	writeMu *sync.Mutex

	candidateSQL candidateQuery
}

func newEngine(db *sql.DB, dialect Dialect, writeMu *sync.Mutex, log logr.Logger, candidateSQL candidateQuery) *engine {
	return &engine{
		db:           db,
		dialect:      dialect,
		writeMu:      writeMu,
		log:          log,
		candidateSQL: candidateSQL,
	}
}

func (e *engine) Dialect() Dialect {
	return e.dialect
}

func (e *engine) HealthCheck(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return nil
}

func (e *engine) Close() error {
	return e.db.Close()
}

func (e *engine) lock() func() {
	if e.writeMu == nil {
		return func() {}
	}
	e.writeMu.Lock()
	return e.writeMu.Unlock
}

// Allocate implements the 8-step allocation protocol as a bounded retry
// loop: each iteration is exactly one attempt at steps 1-8; a zero-rows
// conditional update (step 6) or a reservation insert conflict (step 7)
// restarts the loop; everything else returns immediately.
func (e *engine) Allocate(ctx context.Context, requestID string, tokenCount int, order Order, maxRetries int) (int, int, error) {
	if requestID == "" {
		return 0, 0, coreerrors.Wrap(coreerrors.InvalidArgument, "request_id must not be empty")
	}
	if tokenCount <= 0 {
		return 0, 0, coreerrors.Wrap(coreerrors.InvalidArgument, "token_count must be positive")
	}

	unlock := e.lock()
	defer unlock()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		nodeID, remaining, retry, err := e.tryAllocateOnce(ctx, requestID, tokenCount, order)
		if err != nil {
			return 0, 0, err
		}
		if !retry {
			return nodeID, remaining, nil
		}
	}
	return 0, 0, coreerrors.Wrapf(coreerrors.Overloaded, "retry budget exhausted for request %q", requestID)
}

// tryAllocateOnce runs one full transaction attempt. retry is true only
// when the caller should loop again (steps 6/7 of the allocation
// protocol); any terminal outcome (idempotent hit, overloaded, or
// success) is returned with retry=false.
func (e *engine) tryAllocateOnce(ctx context.Context, requestID string, tokenCount int, order Order) (nodeID int, remaining int, retry bool, err error) {
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	defer func() {
		// no-op once committed; guards the early-return error paths.
		_ = tx.Rollback()
	}()

	// step 2: idempotency pre-check.
	existing, found, err := findReservationTx(ctx, tx, requestID)
	if err != nil {
		return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	if found {
		node, err := findNodeTx(ctx, tx, existing.NodeID)
		if err != nil {
			return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
		}
		if err := tx.Commit(); err != nil {
			return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
		}
		return node.ID, node.Remaining(), false, nil
	}

	// step 3: candidate selection, row-locked (skip-locked in postgres).
	candidate, found, err := selectCandidateTx(ctx, tx, e.candidateSQL(order), tokenCount)
	if err != nil {
		return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	if !found {
		// step 4: no candidate row obtained.
		if err := tx.Commit(); err != nil {
			return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
		}
		return 0, 0, false, coreerrors.Wrapf(coreerrors.Overloaded, "no node has remaining >= %d", tokenCount)
	}

	// step 5: conditional update, the oversubscription guard.
	affected, err := conditionalReserveTx(ctx, tx, candidate.ID, tokenCount)
	if err != nil {
		return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	if affected == 0 {
		// step 6: lost the race for this candidate; roll back and retry
		// with a fresh transaction (the caller's loop starts over).
		return 0, 0, true, nil
	}

	// step 7: insert the reservation row.
	now := currentTime()
	err = insertReservationTx(ctx, tx, requestID, candidate.ID, tokenCount, now)
	if err != nil {
		if isUniqueViolation(err) {
			// another concurrent call for the same request_id won;
			// restart from step 2 to read its result idempotently.
			return 0, 0, true, nil
		}
		return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
	}

	// step 8: commit.
	if err := tx.Commit(); err != nil {
		return 0, 0, false, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return candidate.ID, candidate.Capacity - (candidate.Used + tokenCount), false, nil
}

func (e *engine) Free(ctx context.Context, requestID string) (int, error) {
	if requestID == "" {
		return 0, coreerrors.Wrap(coreerrors.InvalidArgument, "request_id must not be empty")
	}

	unlock := e.lock()
	defer unlock()

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// step 2: lock the reservation row (FOR UPDATE in postgres; sqlite
	// relies on writeMu, held above).
	query := `SELECT request_id, node_id, tokens, created_at FROM reservations WHERE request_id = $1`
	if e.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	var res Reservation
	err = tx.QueryRowContext(ctx, query, requestID).Scan(&res.RequestID, &res.NodeID, &res.Tokens, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Commit()
		return 0, coreerrors.Wrapf(coreerrors.NotFound, "no active reservation for request %q", requestID)
	}
	if err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}

	// step 4: decrement used, bounded below at zero by invariant I1.
	_, err = tx.ExecContext(ctx,
		`UPDATE nodes SET used = CASE WHEN used - $1 < 0 THEN 0 ELSE used - $1 END WHERE id = $2`,
		res.Tokens, res.NodeID)
	if err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}

	// step 5: delete the reservation row.
	_, err = tx.ExecContext(ctx, `DELETE FROM reservations WHERE request_id = $1`, requestID)
	if err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return res.NodeID, nil
}

func (e *engine) FindReservation(ctx context.Context, requestID string) (*Reservation, error) {
	row := e.db.QueryRowContext(ctx,
		`SELECT request_id, node_id, tokens, created_at FROM reservations WHERE request_id = $1`, requestID)
	var r Reservation
	if err := row.Scan(&r.RequestID, &r.NodeID, &r.Tokens, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, coreerrors.Wrapf(coreerrors.NotFound, "no reservation for request %q", requestID)
		}
		return nil, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return &r, nil
}

func (e *engine) Nodes(ctx context.Context) ([]Node, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT id, capacity, used FROM nodes ORDER BY id ASC`)
	if err != nil {
		return nil, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Capacity, &n.Used); err != nil {
			return nil, coreerrors.WrapErr(coreerrors.Internal, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (e *engine) ActiveReservationCount(ctx context.Context) (int, error) {
	var count int
	err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`).Scan(&count)
	if err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return count, nil
}

func (e *engine) MaxCapacity(ctx context.Context) (int, error) {
	var capacity sql.NullInt64
	err := e.db.QueryRowContext(ctx, `SELECT MAX(capacity) FROM nodes`).Scan(&capacity)
	if err != nil {
		return 0, coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return int(capacity.Int64), nil
}

// EnsureNode is the seed routine's building block: insert-if-absent,
// never touching an existing row.
func (e *engine) EnsureNode(ctx context.Context, id, capacity int) error {
	unlock := e.lock()
	defer unlock()

	_, err := e.db.ExecContext(ctx,
		insertNodeIfAbsentSQL(e.dialect), id, capacity)
	if err != nil {
		return coreerrors.WrapErr(coreerrors.Internal, err)
	}
	return nil
}

func findReservationTx(ctx context.Context, tx *sql.Tx, requestID string) (Reservation, bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT request_id, node_id, tokens, created_at FROM reservations WHERE request_id = $1`, requestID)
	var r Reservation
	if err := row.Scan(&r.RequestID, &r.NodeID, &r.Tokens, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reservation{}, false, nil
		}
		return Reservation{}, false, err
	}
	return r, true, nil
}

func findNodeTx(ctx context.Context, tx *sql.Tx, id int) (Node, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, capacity, used FROM nodes WHERE id = $1`, id)
	var n Node
	err := row.Scan(&n.ID, &n.Capacity, &n.Used)
	return n, err
}

func selectCandidateTx(ctx context.Context, tx *sql.Tx, query string, tokenCount int) (Node, bool, error) {
	row := tx.QueryRowContext(ctx, query, tokenCount)
	var n Node
	if err := row.Scan(&n.ID, &n.Capacity, &n.Used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Node{}, false, nil
		}
		return Node{}, false, err
	}
	return n, true, nil
}

func conditionalReserveTx(ctx context.Context, tx *sql.Tx, nodeID, tokenCount int) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE nodes SET used = used + $1 WHERE id = $2 AND capacity - used >= $1`,
		tokenCount, nodeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func insertReservationTx(ctx context.Context, tx *sql.Tx, requestID string, nodeID, tokens int, createdAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (request_id, node_id, tokens, created_at) VALUES ($1, $2, $3, $4)`,
		requestID, nodeID, tokens, createdAt)
	return err
}

// currentTime is a thin indirection so tests can stub reservation
// timestamps deterministically without relying on wall-clock time.
var currentTime = func() time.Time {
	return time.Now().UTC()
}
