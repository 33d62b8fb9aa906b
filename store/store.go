// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Initial reference and motivation taken from the Store/StoreCollection
// abstraction in db/mongo.go and db/store.go: a thin interface in front of
// a concrete wire/transaction protocol, so the allocator and the rest of
// this module never see dialect-specific SQL.

package store

import (
	"context"
	"time"
)

// Node mirrors the nodes table: a dense, sequentially-numbered compute
// target with a fixed token capacity assigned once at seed time.
type Node struct {
	ID       int
	Capacity int
	Used     int
}

// Remaining is the derived quantity capacity - used.
func (n Node) Remaining() int {
	return n.Capacity - n.Used
}

// Reservation mirrors the reservations table: a durable record that a
// given request identifier holds Tokens on NodeID.
type Reservation struct {
	RequestID string
	NodeID    int
	Tokens    int
	CreatedAt time.Time
}

// Order selects how candidate nodes are ranked by remaining capacity
// during placement; the allocator package derives this from the active
// strategy and the large-request override, never the store.
type Order int

const (
	// OrderAscending ranks the smallest sufficient remaining first
	// (best-fit).
	OrderAscending Order = iota

	// OrderDescending ranks the largest remaining first (worst-fit, and
	// the fragmentation override for large requests).
	OrderDescending
)

// Dialect identifies which concrete backend a Store is running against.
// The production dialect supports SELECT ... FOR UPDATE SKIP LOCKED; the
// development/test dialect falls back to coarser, whole-database
// serialization.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Store is the persistence gateway consumed by the allocator, the metrics
// aggregator and the seed routine. It owns the transactional concurrency
// protocol end to end: a single Allocate/Free call is one complete attempt
// (including its bounded internal retries), never a partial step that a
// caller must sequence further.
type Store interface {
	// Dialect reports which concrete backend is in use.
	Dialect() Dialect

	// HealthCheck reports whether the store is reachable.
	HealthCheck(ctx context.Context) error

	// Allocate runs the full allocation protocol for a single request.
	// order and maxRetries are supplied by the allocator, which alone
	// knows the active strategy and the large-request override. Returns
	// the committed node id and its remaining capacity after commit.
	Allocate(ctx context.Context, requestID string, tokenCount int, order Order, maxRetries int) (nodeID int, remaining int, err error)

	// Free runs the release protocol. Returns the node id the
	// reservation was held on.
	Free(ctx context.Context, requestID string) (nodeID int, err error)

	// FindReservation returns the reservation for requestID, or a
	// NotFound error. The allocator's idempotency short-circuit does not
	// use it (that lookup is internal to Allocate); this is exposed for
	// read paths such as tests and diagnostics.
	FindReservation(ctx context.Context, requestID string) (*Reservation, error)

	// Nodes returns every seeded node, ordered by id.
	Nodes(ctx context.Context) ([]Node, error)

	// ActiveReservationCount returns the number of outstanding
	// reservations.
	ActiveReservationCount(ctx context.Context) (int, error)

	// EnsureNode inserts a node row with the given capacity if absent.
	// It never touches an existing row, and never lowers used. Used by
	// the seed routine.
	EnsureNode(ctx context.Context, id, capacity int) error

	// MaxCapacity returns the largest capacity across all seeded nodes,
	// used by the allocator to reject oversized requests as Invalid.
	MaxCapacity(ctx context.Context) (int, error)

	// Close releases underlying connections.
	Close() error
}
