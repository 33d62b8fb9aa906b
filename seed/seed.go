// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package seed provides the idempotent node-provisioning routine run at
// process startup.
package seed

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/go-core-stack/tokenpool/errors"
	"github.com/go-core-stack/tokenpool/store"
	"github.com/go-core-stack/tokenpool/table"
)

// Seeder runs the node-provisioning routine, remembering which node ids it
// has already ensured so a repeated Run against the same settings (a
// supervisor retrying startup, or a periodic re-assert) skips the
// redundant round trip; the store's own EnsureNode stays the source of
// truth and is always safe to call again regardless.
type Seeder struct {
	ensured table.Table[int, struct{}]
}

// NewSeeder constructs a ready-to-use Seeder.
func NewSeeder() *Seeder {
	s := &Seeder{}
	_ = s.ensured.Initialize()
	return s
}

// Run ensures node ids 1..n each exist with the given budget as capacity.
// It never touches a node that already exists, so re-running it on every
// startup is safe and never decreases a node's used count.
func (s *Seeder) Run(ctx context.Context, st store.Store, n, budget int, log logr.Logger) error {
	if n <= 0 {
		return errors.Wrapf(errors.InvalidArgument, "node count must be positive, got %d", n)
	}
	if budget <= 0 {
		return errors.Wrapf(errors.InvalidArgument, "node budget must be positive, got %d", budget)
	}

	ensuredCount := 0
	for id := 1; id <= n; id++ {
		if _, err := s.ensured.Find(id); err == nil {
			continue
		}
		if err := st.EnsureNode(ctx, id, budget); err != nil {
			return errors.WrapErr(errors.Internal, err)
		}
		_ = s.ensured.Insert(id, struct{}{})
		ensuredCount++
	}
	log.Info("seed complete", "nodes", n, "budget", budget, "newly_ensured", ensuredCount)
	return nil
}

// Run is a convenience wrapper for callers that don't need to reuse a
// Seeder across multiple startup attempts.
func Run(ctx context.Context, st store.Store, n, budget int, log logr.Logger) error {
	return NewSeeder().Run(ctx, st, n, budget, log)
}
