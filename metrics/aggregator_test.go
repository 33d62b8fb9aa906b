// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package metrics

import (
	"context"
	"testing"

	"github.com/go-logr/stdr"

	"github.com/go-core-stack/tokenpool/store"
	"github.com/go-core-stack/tokenpool/strategy"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), ":memory:", stdr.New(nil))
	if err != nil {
		t.Fatalf("OpenSQLite: %s", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_SnapshotEmptyPool(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := New(s)

	snap, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if len(snap.Nodes) != 0 {
		t.Errorf("len(Nodes) = %d, want 0", len(snap.Nodes))
	}
	if snap.Totals.Imbalance != 0 {
		t.Errorf("Imbalance = %v, want 0 for an empty pool", snap.Totals.Imbalance)
	}
}

func Test_SnapshotBalancedPoolHasZeroImbalance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 1; i <= 3; i++ {
		if err := s.EnsureNode(ctx, i, 100); err != nil {
			t.Fatalf("EnsureNode(%d): %s", i, err)
		}
	}
	// descending order spreads each allocation onto the node with the
	// most remaining capacity, landing on equal utilization across all
	// three nodes.
	for _, id := range []string{"req-1", "req-2", "req-3"} {
		if _, _, err := s.Allocate(ctx, id, 50, store.OrderDescending, 8); err != nil {
			t.Fatalf("Allocate(%s): %s", id, err)
		}
	}

	a := New(s)
	snap, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if snap.Totals.Used != 150 {
		t.Errorf("Totals.Used = %d, want 150", snap.Totals.Used)
	}
	if snap.Totals.Imbalance != 0 {
		t.Errorf("Imbalance = %v, want 0 for equal utilization", snap.Totals.Imbalance)
	}
	if snap.ActiveReservations != 3 {
		t.Errorf("ActiveReservations = %d, want 3", snap.ActiveReservations)
	}
}

func Test_SnapshotSkewedPoolHasPositiveImbalance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 1; i <= 2; i++ {
		if err := s.EnsureNode(ctx, i, 100); err != nil {
			t.Fatalf("EnsureNode(%d): %s", i, err)
		}
	}
	if _, _, err := s.Allocate(ctx, "req-1", 90, store.OrderAscending, 8); err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	a := New(s)
	snap, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if snap.Totals.Imbalance <= 0 {
		t.Errorf("Imbalance = %v, want > 0 when one node is 90%% loaded and another idle", snap.Totals.Imbalance)
	}
}

func Test_SnapshotReportsActiveStrategy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t.Cleanup(func() { _ = strategy.Set(strategy.Best) })

	if err := strategy.Set(strategy.Largest); err != nil {
		t.Fatalf("Set: %s", err)
	}

	a := New(s)
	snap, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %s", err)
	}
	if snap.Strategy != strategy.Largest {
		t.Errorf("Strategy = %q, want %q", snap.Strategy, strategy.Largest)
	}
}
