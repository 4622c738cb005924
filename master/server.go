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

// Package master owns the shared KV store, the namespace registry, and
// the metastore on the one process allowed to write any of them. Worker
// processes never touch these types directly; they talk to a ServerState
// only through rpc.Server.
package master

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cubefs/cubefs/blobstore/util/log"

	"github.com/cubefs/bucketmetad/internal/clock"
	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/metastore"
	"github.com/cubefs/bucketmetad/namespace"
)

// usersBucket is the well-known bucket created idempotently at startup
// and owned by "admin" (spec.md §3 invariant 3, §3's data model).
const usersBucket = "usersBucket"

// ServerState is the master's instance state: one rootDB, one registry,
// one metastore, created once at startup and passed explicitly to
// whatever serves RPC on top of it. There is deliberately no
// package-level mutable state here — spec.md's REDESIGN FLAGS call out
// the source's module-level globals as a defect to fix.
type ServerState struct {
	RootDB    kvstore.Store
	Registry  *namespace.Registry
	Metastore *metastore.Metastore

	clock clock.Clock
}

// Open opens (or creates) the RocksDB store at metadataPath/rootDB,
// rebuilds the namespace registry from it, and idempotently ensures the
// metastore and usersBucket namespaces exist, publishing a manifest that
// lists them before returning. A freshly started master is always ready
// to serve the moment Open returns.
func Open(ctx context.Context, metadataPath string, opt kvstore.Option) (*ServerState, error) {
	store, err := kvstore.NewStore(ctx, filepath.Join(metadataPath, "rootDB"), opt)
	if err != nil {
		return nil, err
	}

	reg := namespace.NewRegistry(store, metadataPath)
	if err := reg.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	s := &ServerState{RootDB: store, Registry: reg, clock: clock.System}

	msHandle, err := reg.CreateNamespace(ctx, metastore.Name)
	if err != nil {
		store.Close()
		return nil, err
	}
	s.Metastore = metastore.New(msHandle)

	if _, err := reg.CreateNamespace(ctx, usersBucket); err != nil {
		store.Close()
		return nil, err
	}
	has, err := s.Metastore.HasBucket(ctx, usersBucket)
	if err != nil {
		store.Close()
		return nil, err
	}
	if !has {
		info := metastore.BucketInfo{Owner: "admin", CreatedAt: s.clock.Now().UTC().Format(time.RFC3339)}
		if err := s.Metastore.PutBucketAttrs(ctx, usersBucket, info); err != nil {
			store.Close()
			return nil, err
		}
		log.Info("master: created usersBucket")
	}

	if err := reg.PublishManifest(); err != nil {
		store.Close()
		return nil, err
	}

	return s, nil
}

func (s *ServerState) Close() error {
	return s.RootDB.Close()
}
