// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package alloc implements the placement engine: given a request identifier
// and a token count, it chooses a candidate node under the active
// strategy, performs the atomic reservation, and handles the
// idempotent-repeat and capacity-exhaustion cases. The transactional
// protocol itself lives in store.Store; this package owns strategy
// selection, input validation, and coalescing duplicate concurrent calls
// for the same request identifier.
package alloc

import (
	"context"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/go-core-stack/tokenpool/errors"
	"github.com/go-core-stack/tokenpool/store"
	"github.com/go-core-stack/tokenpool/strategy"
)

const defaultMaxRetries = 8

// Result is the outcome of a successful Allocate call.
type Result struct {
	NodeID    int
	Remaining int
}

// Engine is the allocator. It holds no mutable state of its own beyond the
// singleflight group coalescing in-flight duplicate requests; everything
// else is read fresh from the store and the strategy registry on every
// call.
type Engine struct {
	store store.Store
	log   logr.Logger

	largeRequestThreshold int
	maxRetries            int

	group singleflight.Group
}

// New constructs an Engine backed by s, treating any token_count at or
// above largeRequestThreshold as large for the purposes of the
// fragmentation override.
func New(s store.Store, largeRequestThreshold int, log logr.Logger) *Engine {
	return &Engine{
		store:                 s,
		log:                   log,
		largeRequestThreshold: largeRequestThreshold,
		maxRetries:            defaultMaxRetries,
	}
}

// Allocate chooses a node under the active strategy and reserves
// token_count tokens against request_id, or returns the existing
// reservation if request_id was already allocated.
func (e *Engine) Allocate(ctx context.Context, requestID string, tokenCount int) (Result, error) {
	if requestID == "" {
		return Result{}, errors.Wrap(errors.InvalidArgument, "request_id must not be empty")
	}
	if tokenCount <= 0 {
		return Result{}, errors.Wrap(errors.InvalidArgument, "token_count must be positive")
	}

	maxCapacity, err := e.store.MaxCapacity(ctx)
	if err != nil {
		e.log.Error(err, "failed reading max node capacity", "request_id", requestID)
		return Result{}, err
	}
	if tokenCount > maxCapacity {
		return Result{}, errors.Wrapf(errors.InvalidArgument, "token_count %d exceeds maximum node capacity %d", tokenCount, maxCapacity)
	}

	// strategy is read once per call and carried through the singleflight
	// call, so concurrent duplicate submissions coalesced onto one
	// in-flight call still observe a single, coherent ordering.
	order := e.order(tokenCount)

	v, err, _ := e.group.Do(requestID, func() (any, error) {
		nodeID, remaining, err := e.store.Allocate(ctx, requestID, tokenCount, order, e.maxRetries)
		if err != nil {
			return nil, err
		}
		return Result{NodeID: nodeID, Remaining: remaining}, nil
	})
	if err != nil {
		if errors.GetErrCode(err) == errors.Internal {
			e.log.Error(err, "allocation failed", "request_id", requestID, "token_count", tokenCount)
		}
		return Result{}, err
	}
	return v.(Result), nil
}

// Free releases the reservation held by request_id.
func (e *Engine) Free(ctx context.Context, requestID string) (int, error) {
	if requestID == "" {
		return 0, errors.Wrap(errors.InvalidArgument, "request_id must not be empty")
	}

	nodeID, err := e.store.Free(ctx, requestID)
	if err != nil {
		if errors.GetErrCode(err) == errors.Internal {
			e.log.Error(err, "free failed", "request_id", requestID)
		}
		return 0, err
	}
	return nodeID, nil
}

// MaxTokenCount reports the largest request that any single node could
// ever satisfy, the bound Allocate validates token_count against.
func (e *Engine) MaxTokenCount(ctx context.Context) (int, error) {
	return e.store.MaxCapacity(ctx)
}

// order derives the candidate ordering from the active strategy and the
// large-request override: a large request always ranks by remaining
// descending, regardless of strategy.
func (e *Engine) order(tokenCount int) store.Order {
	if tokenCount >= e.largeRequestThreshold {
		return store.OrderDescending
	}
	if strategy.Get() == strategy.Best {
		return store.OrderAscending
	}
	return store.OrderDescending
}
