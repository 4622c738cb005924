// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package kvstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// memStore is an in-memory Store used by package tests that exercise
// namespace/metastore/listing logic without paying for a real RocksDB
// instance. It is not used by production code paths.
type memStore struct {
	mu   sync.RWMutex
	keys [][]byte
	vals [][]byte
}

// NewMemStore returns a Store backed by a sorted in-memory slice. It is
// intended for tests only.
func NewMemStore() Store {
	return &memStore{}
}

func (m *memStore) find(key []byte) (int, bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], key) >= 0 })
	if i < len(m.keys) && bytes.Equal(m.keys[i], key) {
		return i, true
	}
	return i, false
}

func (m *memStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.find(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.vals[i]...), nil
}

func (m *memStore) Put(ctx context.Context, key, value []byte, sync bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(key)
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	if ok {
		m.vals[i] = v
		return nil
	}
	m.keys = append(m.keys, nil)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
	m.vals = append(m.vals, nil)
	copy(m.vals[i+1:], m.vals[i:])
	m.vals[i] = v
	return nil
}

func (m *memStore) Delete(ctx context.Context, key []byte, sync bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(key)
	if !ok {
		return nil
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	return nil
}

func (m *memStore) Scan(ctx context.Context, r Range) Cursor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([][]byte, len(m.keys))
	vals := make([][]byte, len(m.vals))
	copy(keys, m.keys)
	copy(vals, m.vals)

	var filtered []Entry
	for i := range keys {
		k := keys[i]
		if r.GT != nil && bytes.Compare(k, r.GT) <= 0 {
			continue
		}
		if r.GTE != nil && bytes.Compare(k, r.GTE) < 0 {
			continue
		}
		if r.Start != nil && r.GT == nil && r.GTE == nil && !r.Reverse && bytes.Compare(k, r.Start) < 0 {
			continue
		}
		if r.LT != nil && bytes.Compare(k, r.LT) >= 0 {
			continue
		}
		if r.LTE != nil && bytes.Compare(k, r.LTE) > 0 {
			continue
		}
		filtered = append(filtered, Entry{Key: k, Value: vals[i]})
	}

	if r.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	if r.Limit > 0 && len(filtered) > r.Limit {
		filtered = filtered[:r.Limit]
	}

	return &memCursor{entries: filtered, idx: -1}
}

func (m *memStore) Close() error { return nil }

type memCursor struct {
	entries []Entry
	idx     int
	closed  bool
}

func (c *memCursor) Next() bool {
	if c.closed || c.idx+1 >= len(c.entries) {
		return false
	}
	c.idx++
	return true
}

func (c *memCursor) Entry() Entry { return c.entries[c.idx] }
func (c *memCursor) Err() error   { return nil }
func (c *memCursor) Close() error { c.closed = true; return nil }
