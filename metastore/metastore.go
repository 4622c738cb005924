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

// Package metastore wraps the reserved __metastore namespace: the source
// of truth for "does bucket X exist", mapping bucket names to serialized
// BucketInfo records.
package metastore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cubefs/bucketmetad/kvstore"
)

// Name is the reserved namespace name. It is created once, at master
// startup, and is never deleted (spec.md §3 invariant 3).
const Name = "__metastore"

var ErrNotFound = errors.New("metastore: bucket not found")

// BucketInfo is the concrete shape behind spec.md's "opaque serialized
// blob" — see SPEC_FULL.md §5.
type BucketInfo struct {
	Owner     string `json:"owner"`
	CreatedAt string `json:"created_at"`
	ACL       string `json:"acl"`
}

// Store is the slice of a namespace handle the metastore needs. Both
// namespace.Handle (master-local) and session.Handle (worker, over RPC)
// satisfy it, so the same Metastore code runs on either side.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte, sync bool) error
	Delete(ctx context.Context, key []byte, sync bool) error
}

type Metastore struct {
	ns Store
}

func New(ns Store) *Metastore {
	return &Metastore{ns: ns}
}

func (m *Metastore) HasBucket(ctx context.Context, name string) (bool, error) {
	_, err := m.ns.Get(ctx, []byte(name))
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Metastore) GetBucketAttrs(ctx context.Context, name string) (BucketInfo, error) {
	raw, err := m.ns.Get(ctx, []byte(name))
	if errors.Is(err, kvstore.ErrNotFound) {
		return BucketInfo{}, ErrNotFound
	}
	if err != nil {
		return BucketInfo{}, err
	}
	var info BucketInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return BucketInfo{}, err
	}
	return info, nil
}

func (m *Metastore) PutBucketAttrs(ctx context.Context, name string, info BucketInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return m.ns.Put(ctx, []byte(name), raw, true)
}

// DeleteBucket removes the metastore entry. Deleting an absent bucket
// succeeds (spec.md §4.7, §8 invariant 7) — the source's idempotent
// behavior here is preserved deliberately, not a bug.
func (m *Metastore) DeleteBucket(ctx context.Context, name string) error {
	return m.ns.Delete(ctx, []byte(name), true)
}
