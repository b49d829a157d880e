package shader

import (
	"sync"
	"sync/atomic"
)

const (
	// shardCount must be a power of two.
	shardCount = 16
	shardMask  = shardCount - 1
)

// moduleMap is a sharded map from source hash to module. Keys are already
// well mixed hashes, so the low bits select the shard directly.
type moduleMap struct {
	shards [shardCount]moduleShard

	hits   atomic.Uint64
	misses atomic.Uint64
}

type moduleShard struct {
	mu      sync.RWMutex
	entries map[uint64]*Module
}

func newModuleMap() *moduleMap {
	m := &moduleMap{}
	for i := range m.shards {
		m.shards[i].entries = make(map[uint64]*Module)
	}
	return m
}

func (m *moduleMap) shard(key uint64) *moduleShard {
	return &m.shards[key&shardMask]
}

// getOrCreate returns the module stored under key or stores the one returned
// by create. create runs with the shard lock held, so concurrent requests
// for the same source compile once. A failed create stores nothing.
func (m *moduleMap) getOrCreate(key uint64, create func() (*Module, error)) (*Module, error) {
	s := m.shard(key)

	s.mu.RLock()
	mod, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		m.hits.Add(1)
		return mod, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mod, ok := s.entries[key]; ok {
		m.hits.Add(1)
		return mod, nil
	}

	m.misses.Add(1)
	mod, err := create()
	if err != nil {
		return nil, err
	}
	s.entries[key] = mod
	return mod, nil
}

// len returns the number of stored modules across all shards.
func (m *moduleMap) len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// drain removes and returns every stored module.
func (m *moduleMap) drain() []*Module {
	var out []*Module
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, mod := range s.entries {
			out = append(out, mod)
		}
		s.entries = make(map[uint64]*Module)
		s.mu.Unlock()
	}
	return out
}
