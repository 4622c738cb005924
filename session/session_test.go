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

package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/namespace"
	"github.com/cubefs/bucketmetad/rpc"
)

// startMaster brings up a namespace.Registry behind an rpc.Server, the
// same wiring the master process does, so session tests exercise the real
// reconnect/manifest path instead of a fake.
func startMaster(t *testing.T) (addr, dir string, reg *namespace.Registry, stop func()) {
	t.Helper()
	dir = t.TempDir()
	store := kvstore.NewMemStore()
	reg = namespace.NewRegistry(store, dir)
	require.NoError(t, reg.PublishManifest())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := rpc.NewServer(registryAdapter{reg}, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)

	return ln.Addr().String(), dir, reg, func() { cancel(); ln.Close() }
}

type registryAdapter struct{ reg *namespace.Registry }

func (a registryAdapter) Open(name string) (rpc.Namespace, bool) {
	h, ok := a.reg.Open(name)
	if !ok {
		return nil, false
	}
	return h, true
}

func (a registryAdapter) CreateNamespace(ctx context.Context, name string) (rpc.Namespace, error) {
	return a.reg.CreateNamespace(ctx, name)
}

func TestSessionAcquireAfterCreate(t *testing.T) {
	addr, dir, _, stop := startMaster(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := Dial(ctx, addr, dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateNamespace(ctx, "b1"))

	h, err := s.Acquire(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, h.Put(ctx, []byte("k"), []byte("v"), true))
	h.Release()

	h2, err := s.Acquire(ctx, "b1")
	require.NoError(t, err)
	v, err := h2.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, "v", string(v))
	h2.Release()
}

func TestSessionAcquireUnknownNamespaceReconnectsThenFails(t *testing.T) {
	addr, dir, _, stop := startMaster(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := Dial(ctx, addr, dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Acquire(ctx, "ghost")
	require.ErrorIs(t, err, ErrNoSuchNamespace)
}

func TestSessionAcquireSeesNamespaceCreatedByAnotherWorker(t *testing.T) {
	addr, dir, reg, stop := startMaster(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := Dial(ctx, addr, dir)
	require.NoError(t, err)
	defer s.Close()

	// another worker creates the namespace directly against the master,
	// publishing a new manifest version this session hasn't seen yet.
	_, err = reg.CreateNamespace(ctx, "late")
	require.NoError(t, err)

	h, err := s.Acquire(ctx, "late")
	require.NoError(t, err)
	h.Release()
}

func TestSessionDoubleReleaseIsNoOp(t *testing.T) {
	addr, dir, _, stop := startMaster(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := Dial(ctx, addr, dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateNamespace(ctx, "b1"))
	h, err := s.Acquire(ctx, "b1")
	require.NoError(t, err)
	h.Release()
	// Release is idempotent per-handle: a second call must not double-decrement.
	h.Release()
}
