// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package metrics reports a point-in-time view of node utilization, the
// pool-wide totals derived from it, and a load-imbalance figure computed
// across per-node utilization with github.com/montanaflynn/stats.
package metrics

import (
	"context"

	"github.com/montanaflynn/stats"

	"github.com/go-core-stack/tokenpool/errors"
	"github.com/go-core-stack/tokenpool/store"
	"github.com/go-core-stack/tokenpool/strategy"
)

// NodeUsage mirrors a single node's current capacity and usage.
type NodeUsage struct {
	ID        int
	Capacity  int
	Used      int
	Remaining int
}

// Totals sums NodeUsage across the whole pool, plus Imbalance: the
// population standard deviation of per-node utilization (used/capacity),
// 0 when the pool is perfectly balanced or empty.
type Totals struct {
	Capacity  int
	Used      int
	Remaining int
	Imbalance float64
}

// Snapshot is the full result of Aggregator.Snapshot.
type Snapshot struct {
	Nodes              []NodeUsage
	Totals             Totals
	ActiveReservations int
	Strategy           strategy.Strategy
}

// Aggregator computes Snapshot values against a Store. It holds no state
// of its own; every call re-reads the store and the strategy registry.
type Aggregator struct {
	store store.Store
}

// New constructs an Aggregator backed by s.
func New(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Snapshot gathers node usage and active reservation count with two
// independent reads; it may race a concurrent allocation rather than
// requiring one linearisable view.
func (a *Aggregator) Snapshot(ctx context.Context) (Snapshot, error) {
	nodes, err := a.store.Nodes(ctx)
	if err != nil {
		return Snapshot{}, errors.WrapErr(errors.Internal, err)
	}

	active, err := a.store.ActiveReservationCount(ctx)
	if err != nil {
		return Snapshot{}, errors.WrapErr(errors.Internal, err)
	}

	usages := make([]NodeUsage, 0, len(nodes))
	utilization := make([]float64, 0, len(nodes))
	var totalCapacity, totalUsed int
	for _, n := range nodes {
		usages = append(usages, NodeUsage{
			ID:        n.ID,
			Capacity:  n.Capacity,
			Used:      n.Used,
			Remaining: n.Remaining(),
		})
		totalCapacity += n.Capacity
		totalUsed += n.Used
		if n.Capacity > 0 {
			utilization = append(utilization, float64(n.Used)/float64(n.Capacity))
		}
	}

	imbalance, err := stats.StandardDeviationPopulation(utilization)
	if err != nil {
		// fewer than one data point (empty pool): a balanced, empty pool
		// has no imbalance to report.
		imbalance = 0
	}

	return Snapshot{
		Nodes: usages,
		Totals: Totals{
			Capacity:  totalCapacity,
			Used:      totalUsed,
			Remaining: totalCapacity - totalUsed,
			Imbalance: imbalance,
		},
		ActiveReservations: active,
		Strategy:           strategy.Get(),
	}, nil
}
