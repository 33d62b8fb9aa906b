// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package ratelimit provides per-client admission control in front of the
// allocator: a token bucket per client key (golang.org/x/time/rate). Keys
// are untrusted caller-supplied identifiers rather than a small fixed
// registry, so the manager bounds how many distinct buckets it keeps
// alive with an LRU list modeled on the doubly-linked cache-item design
// used for eviction in a sharded cache, evicting the least-recently-used
// key once the cap is reached.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// entry is one node in the manager's doubly-linked LRU list.
type entry struct {
	key     string
	limiter *rate.Limiter
	prev    *entry
	next    *entry
}

// Manager hands out a token bucket per client key, capping the number of
// distinct keys it tracks at once so an attacker cannot grow the table
// without bound by cycling through request identifiers.
type Manager struct {
	rps     float64
	burst   int
	maxKeys int
	mu      sync.Mutex
	items   map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

// NewManager constructs a Manager issuing buckets with the given sustained
// rate and burst size, tracking at most maxKeys distinct client keys.
func NewManager(rps float64, burst, maxKeys int) *Manager {
	return &Manager{
		rps:     rps,
		burst:   burst,
		maxKeys: maxKeys,
		items:   make(map[string]*entry),
	}
}

// Allow reports whether a request for key may proceed right now, consuming
// one token from that key's bucket if so. It never blocks.
func (m *Manager) Allow(key string) bool {
	m.mu.Lock()
	e := m.touch(key)
	m.mu.Unlock()
	return e.limiter.Allow()
}

// touch returns the entry for key, creating it (and evicting the
// least-recently-used entry if at capacity) if absent, and moves it to the
// front of the LRU list.
func (m *Manager) touch(key string) *entry {
	if e, ok := m.items[key]; ok {
		m.moveToFront(e)
		return e
	}

	if m.maxKeys > 0 && len(m.items) >= m.maxKeys {
		m.evictLRU()
	}

	e := &entry{
		key:     key,
		limiter: rate.NewLimiter(rate.Limit(m.rps), m.burst),
	}
	m.items[key] = e
	m.pushFront(e)
	return e
}

func (m *Manager) pushFront(e *entry) {
	e.prev = nil
	e.next = m.head
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *Manager) moveToFront(e *entry) {
	if m.head == e {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if m.tail == e {
		m.tail = e.prev
	}
	m.pushFront(e)
}

func (m *Manager) evictLRU() {
	victim := m.tail
	if victim == nil {
		return
	}
	if victim.prev != nil {
		victim.prev.next = nil
	}
	m.tail = victim.prev
	if m.head == victim {
		m.head = nil
	}
	delete(m.items, victim.key)
}

// Len returns the number of distinct client keys currently tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
