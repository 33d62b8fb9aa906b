// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package strategy holds the process-wide active allocation strategy.
// Initial reference and motivation taken from db/source.go's
// RWMutex-guarded sourceIdentifier global: a single mutable value shared
// by every caller in the process, read far more often than written.
package strategy

import (
	"sync"

	"github.com/go-core-stack/tokenpool/errors"
)

// Strategy selects how the allocator ranks candidate nodes.
type Strategy string

const (
	// Best packs the smallest sufficient remaining first, minimizing
	// fragmentation of large nodes.
	Best Strategy = "best"

	// Largest spreads load by ranking the largest remaining first.
	Largest Strategy = "largest"
)

func (s Strategy) valid() bool {
	return s == Best || s == Largest
}

var (
	current     = Best
	currentLock sync.RWMutex
)

// Get returns the active strategy.
func Get() Strategy {
	currentLock.RLock()
	defer currentLock.RUnlock()
	return current
}

// Set changes the active strategy. It takes effect for every Allocate call
// issued after it returns; calls already in flight keep whatever they
// already read.
func Set(s Strategy) error {
	if !s.valid() {
		return errors.Wrapf(errors.InvalidArgument, "unknown allocation strategy %q", s)
	}
	currentLock.Lock()
	defer currentLock.Unlock()
	current = s
	return nil
}

// Init seeds the registry at process start from configuration.
func Init(s Strategy) error {
	return Set(s)
}
