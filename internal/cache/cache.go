// Package cache memoizes pure pipeline functions keyed by input content.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo caches results of pure functions. Entries are keyed by a content hash
// of the inputs, so identical invocations never recompute. Concurrent callers
// with the same key share a single computation.
type Memo[V any] struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]V
	order   []string
	max     int
}

// New creates a Memo bounded to maxEntries; the oldest entry is evicted first.
func New[V any](maxEntries int) *Memo[V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Memo[V]{
		entries: make(map[string]V),
		max:     maxEntries,
	}
}

// Key hashes the given argument byte slices into a cache key. Parts are
// length-prefixed so ("ab","c") and ("a","bc") produce distinct keys.
func Key(parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key, computing and storing it on a miss.
func (m *Memo[V]) Get(key string, compute func() (V, error)) (V, error) {
	m.mu.Lock()
	if v, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if v, ok := m.entries[key]; ok {
			m.mu.Unlock()
			return v, nil
		}
		m.mu.Unlock()

		out, err := compute()
		if err != nil {
			return nil, err
		}
		m.store(key, out)
		return out, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate removes a single entry.
func (m *Memo[V]) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of cached entries.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo[V]) store(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return
	}
	for len(m.entries) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = value
	m.order = append(m.order, key)
}
