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

// Package namespace partitions one shared ordered KV store into named,
// prefix-isolated namespaces and keeps a versioned manifest of them on
// disk so worker processes can discover namespaces after reconnecting.
package namespace

import (
	"context"
	"sync"

	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/util"
)

// Handle scopes KV operations to one namespace's key prefix.
type Handle struct {
	name   string
	prefix []byte
	store  kvstore.Store
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) Get(ctx context.Context, key []byte) ([]byte, error) {
	return h.store.Get(ctx, withinNamespace(h.prefix, key))
}

func (h *Handle) Put(ctx context.Context, key, value []byte, sync bool) error {
	return h.store.Put(ctx, withinNamespace(h.prefix, key), value, sync)
}

func (h *Handle) Delete(ctx context.Context, key []byte, sync bool) error {
	return h.store.Delete(ctx, withinNamespace(h.prefix, key), sync)
}

// Scan runs a ranged scan within the namespace. Bounds in r are relative
// to the namespace (they are not pre-fixed by the caller); Scan applies
// the namespace prefix to every bound that was set and strips it back off
// of every key it yields.
func (h *Handle) Scan(ctx context.Context, r kvstore.Range) kvstore.Cursor {
	scoped := r
	if r.GT != nil {
		scoped.GT = withinNamespace(h.prefix, r.GT)
	}
	if r.GTE != nil {
		scoped.GTE = withinNamespace(h.prefix, r.GTE)
	}
	if r.LT != nil {
		scoped.LT = withinNamespace(h.prefix, r.LT)
	}
	if r.LTE != nil {
		scoped.LTE = withinNamespace(h.prefix, r.LTE)
	}
	if r.LT == nil && r.LTE == nil {
		// bound the scan to the namespace even when the caller gave
		// no upper bound, otherwise it would run into the next
		// namespace's keys.
		if up, ok := advanceBytes(h.prefix); ok {
			scoped.LT = up
		}
	}
	if r.Start != nil {
		scoped.Start = withinNamespace(h.prefix, r.Start)
	} else if r.GT == nil && r.GTE == nil {
		scoped.Start = h.prefix
	}

	return &strippingCursor{inner: h.store.Scan(ctx, scoped), prefix: h.prefix}
}

type strippingCursor struct {
	inner  kvstore.Cursor
	prefix []byte
	cur    kvstore.Entry
}

func (c *strippingCursor) Next() bool {
	if !c.inner.Next() {
		return false
	}
	e := c.inner.Entry()
	c.cur = kvstore.Entry{Key: e.Key[len(c.prefix):], Value: e.Value}
	return true
}

func (c *strippingCursor) Entry() kvstore.Entry { return c.cur }
func (c *strippingCursor) Err() error           { return c.inner.Err() }
func (c *strippingCursor) Close() error         { return c.inner.Close() }

// advanceBytes is the Range-bound flavor of the listing engine's advance:
// it only needs success/failure, never the "no finite bound" fallback
// listing.Advance documents, because a 0xFF-terminated namespace prefix is
// a one-in 2^(8*n) occurrence this service never produces (prefixes are
// always a 4-byte length followed by the bucket name, so the last byte is
// the bucket name's last byte; a bucket literally named to end in 0xFF
// falls back to an unbounded scan, same as the listing engine does).
func advanceBytes(s []byte) ([]byte, bool) {
	if len(s) == 0 || s[len(s)-1] == 0xFF {
		return nil, false
	}
	out := append([]byte(nil), s...)
	out[len(out)-1]++
	return out, true
}

// Registry maps namespace names to their key prefix inside the shared
// store and keeps the on-disk manifest in sync.
type Registry struct {
	store kvstore.Store
	mf    *manifestFile

	mu     sync.RWMutex
	byName map[string][]byte
}

// registryKeyPrefix is the reserved keyspace the registry itself uses to
// persist the name -> prefix mapping inside the same shared store, so a
// fresh process can rebuild its in-memory registry by scanning it.
var registryKeyPrefix = encodePrefix("__registry")

func NewRegistry(store kvstore.Store, metadataPath string) *Registry {
	return &Registry{
		store:  store,
		mf:     newManifestFile(metadataPath),
		byName: make(map[string][]byte),
	}
}

// Load rebuilds the in-memory registry by scanning the reserved registry
// keyspace. Call this once at master startup before serving requests.
func (r *Registry) Load(ctx context.Context) error {
	c := r.store.Scan(ctx, kvstore.Range{
		GTE: registryKeyPrefix,
		LT:  mustAdvance(registryKeyPrefix),
	})
	defer c.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	for c.Next() {
		e := c.Entry()
		name := util.BytesToString(e.Key[len(registryKeyPrefix):])
		r.byName[name] = append([]byte(nil), e.Value...)
	}
	return c.Err()
}

// CreateNamespace is idempotent: if the namespace already exists this
// returns its existing handle without touching the manifest. Otherwise it
// records the new prefix, republishes the manifest, and only then returns
// the handle — if publishing fails, the namespace is rolled back out of
// the in-memory map and the registry key is removed, so createNamespace as
// a whole fails atomically as spec.md requires.
func (r *Registry) CreateNamespace(ctx context.Context, name string) (*Handle, error) {
	r.mu.RLock()
	if prefix, ok := r.byName[name]; ok {
		r.mu.RUnlock()
		return &Handle{name: name, prefix: prefix, store: r.store}, nil
	}
	r.mu.RUnlock()

	prefix := encodePrefix(name)

	r.mu.Lock()
	if existing, ok := r.byName[name]; ok {
		r.mu.Unlock()
		return &Handle{name: name, prefix: existing, store: r.store}, nil
	}
	r.byName[name] = prefix
	names := r.namesLocked()
	r.mu.Unlock()

	regKey := append(append([]byte(nil), registryKeyPrefix...), util.StringToBytes(name)...)
	if err := r.store.Put(ctx, regKey, prefix, true); err != nil {
		r.rollback(name)
		return nil, err
	}

	if err := r.mf.publish(manifestDoc{Namespaces: names}); err != nil {
		r.rollback(name)
		_ = r.store.Delete(ctx, regKey, true)
		return nil, err
	}

	return &Handle{name: name, prefix: prefix, store: r.store}, nil
}

func (r *Registry) rollback(name string) {
	r.mu.Lock()
	delete(r.byName, name)
	r.mu.Unlock()
}

// Open returns a handle for an already-known namespace, or false if the
// registry has never heard of it (the caller, typically a worker session,
// should reconnect and retry).
func (r *Registry) Open(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &Handle{name: name, prefix: prefix, store: r.store}, true
}

// ListNamespaces returns every namespace name currently registered.
func (r *Registry) ListNamespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// PublishManifest republishes the manifest for the registry's current
// state without creating a namespace. Used at startup once the metastore
// and usersBucket namespaces exist, so a worker's very first manifest load
// already lists them.
func (r *Registry) PublishManifest() error {
	return r.mf.publish(manifestDoc{Namespaces: r.ListNamespaces()})
}

func mustAdvance(s []byte) []byte {
	out, ok := advanceBytes(s)
	if !ok {
		// registryKeyPrefix's last byte is a fixed ASCII letter, never 0xFF.
		panic("namespace: registry prefix unexpectedly unadvanceable")
	}
	return out
}
