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

// Package kvstore is a thin, namespace-agnostic adapter over an ordered
// byte-keyed KV engine. It knows nothing about buckets or manifests; it
// only knows how to get/put/delete raw keys and run ranged scans.
package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kvstore: key not found")

// Entry is one (key, value) pair produced by a Cursor. Both slices are
// only valid until the next call to Next or Close.
type Entry struct {
	Key   []byte
	Value []byte
}

// Range describes a ranged scan. GT/GTE/LT/LTE bound the scan; Start, when
// set and neither GT nor GTE is, is where a forward scan begins (used
// together with LT/LTE to form the half-open ranges the listing engine
// needs); GT/GTE take precedence over it, and a reverse scan ignores it. Limit caps the number of
// entries the cursor will produce; zero means unbounded. Reverse walks the
// range from its upper bound down to its lower bound.
type Range struct {
	GT, GTE []byte
	LT, LTE []byte
	Start   []byte
	Limit   int
	Reverse bool
}

// Cursor is a lazy, finite sequence of entries. A scan is restartable (a
// fresh Scan call re-reads current state) but a given Cursor is not: once
// advanced or closed it cannot be rewound. Close must be safe to call more
// than once and safe to call before the cursor is exhausted; after Close
// returns, no further entries are delivered and all backing resources
// (the underlying iterator) are released.
type Cursor interface {
	// Next advances the cursor. It returns false at end-of-range or on
	// error; callers must check Err to distinguish the two.
	Next() bool
	// Entry returns the entry last produced by Next. Only valid after a
	// call to Next that returned true.
	Entry() Entry
	// Err returns the first error encountered, if any.
	Err() error
	Close() error
}

// Store is an ordered byte-keyed KV engine: get/put/del with an optional
// sync flag, plus ranged scans. Ordering is raw byte lexicographic.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte, sync bool) error
	Delete(ctx context.Context, key []byte, sync bool) error
	Scan(ctx context.Context, r Range) Cursor
	Close() error
}

// Option configures the RocksDB-backed Store. Only the knobs this service
// actually exercises are exposed; the rest of RocksDB's tuning surface is
// left at its engine defaults.
type Option struct {
	CreateIfMissing bool
	DisableWAL      bool
	BlockCacheBytes uint64
	WriteBufferSize int
	MaxOpenFiles    int
}

func NewStore(ctx context.Context, path string, opt Option) (Store, error) {
	return newRocksdb(ctx, path, opt)
}
