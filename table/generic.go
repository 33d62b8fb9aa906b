// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package table provides a generic Table abstraction for managing
// in-process collections of entries keyed by a comparable key, with
// built-in CRUD operations and sanity checks. It is the in-memory
// counterpart of the original db.StoreCollection-backed Table: the
// reconciler/Watch event-driven plumbing has no analog for an in-process
// map, so callers needing change notification compose their own.
package table

import (
	"reflect"
	"sync"

	"github.com/go-core-stack/tokenpool/errors"
)

// Table is a generic, concurrency-safe collection providing common CRUD
// functions over an in-memory map.
//
// K: Key type, must be comparable and must not be a pointer type.
// E: Entry type, must not be a pointer type.
type Table[K comparable, E any] struct {
	mu   sync.RWMutex
	data map[K]E
	init bool
}

// Initialize prepares the Table for use. It performs sanity checks on the
// entry and key types. Must be called before any other operation.
func (t *Table[K, E]) Initialize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.init {
		return errors.Wrapf(errors.AlreadyExists, "table is already initialized")
	}

	var e E
	if reflect.TypeOf(e) != nil && reflect.TypeOf(e).Kind() == reflect.Pointer {
		return errors.Wrapf(errors.InvalidArgument, "table entry type must not be a pointer")
	}
	var k K
	if reflect.TypeOf(k) != nil && reflect.TypeOf(k).Kind() == reflect.Pointer {
		return errors.Wrapf(errors.InvalidArgument, "table key type must not be a pointer")
	}

	t.data = make(map[K]E)
	t.init = true
	return nil
}

// Insert adds a new entry under key. Returns AlreadyExists if key is
// already present.
func (t *Table[K, E]) Insert(key K, entry E) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.init {
		return errors.Wrapf(errors.InvalidArgument, "table not initialized")
	}
	if _, ok := t.data[key]; ok {
		return errors.Wrapf(errors.AlreadyExists, "entry with key %v already exists", key)
	}
	t.data[key] = entry
	return nil
}

// Locate finds an entry by key, inserting it if absent or overwriting it
// if present.
func (t *Table[K, E]) Locate(key K, entry E) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.init {
		return errors.Wrapf(errors.InvalidArgument, "table not initialized")
	}
	t.data[key] = entry
	return nil
}

// Update modifies an existing entry. Returns NotFound if key is absent.
func (t *Table[K, E]) Update(key K, entry E) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.init {
		return errors.Wrapf(errors.InvalidArgument, "table not initialized")
	}
	if _, ok := t.data[key]; !ok {
		return errors.Wrapf(errors.NotFound, "no entry with key %v", key)
	}
	t.data[key] = entry
	return nil
}

// Find retrieves an entry by key.
func (t *Table[K, E]) Find(key K) (E, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var zero E
	if !t.init {
		return zero, errors.Wrapf(errors.InvalidArgument, "table not initialized")
	}
	entry, ok := t.data[key]
	if !ok {
		return zero, errors.Wrapf(errors.NotFound, "no entry with key %v", key)
	}
	return entry, nil
}

// FindMany returns every entry for which filter returns true. A nil filter
// returns every entry.
func (t *Table[K, E]) FindMany(filter func(K, E) bool) ([]E, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.init {
		return nil, errors.Wrapf(errors.InvalidArgument, "table not initialized")
	}
	var result []E
	for k, e := range t.data {
		if filter == nil || filter(k, e) {
			result = append(result, e)
		}
	}
	return result, nil
}

// DeleteKey removes an entry by key. It is a no-op if the key is absent.
func (t *Table[K, E]) DeleteKey(key K) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.init {
		return errors.Wrapf(errors.InvalidArgument, "table not initialized")
	}
	delete(t.data, key)
	return nil
}

// Len returns the number of entries currently stored.
func (t *Table[K, E]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
