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

package metadata

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/listing"
	"github.com/cubefs/bucketmetad/metastore"
	"github.com/cubefs/bucketmetad/namespace"
	"github.com/cubefs/bucketmetad/rpc"
	"github.com/cubefs/bucketmetad/session"
)

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

// startFacade brings up a master (registry + rpc.Server + metastore
// namespace pre-created, matching the master's real startup sequence) and
// a worker session/facade dialed against it.
func startFacade(t *testing.T) (f *Facade, stop func()) {
	t.Helper()
	dir := t.TempDir()
	store := kvstore.NewMemStore()
	reg := namespace.NewRegistry(store, dir)

	ctx := context.Background()
	_, err := reg.CreateNamespace(ctx, metastore.Name)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := rpc.NewServer(registryAdapter{reg}, 0, 0)
	srvCtx, cancel := context.WithCancel(context.Background())
	go srv.Serve(srvCtx, ln)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	s, err := session.Dial(dialCtx, ln.Addr().String(), dir)
	require.NoError(t, err)

	return New(s), func() {
		s.Close()
		cancel()
		ln.Close()
	}
}

func TestScenarioS1CreateGetDeleteBucket(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	attrs := BucketInfo{Owner: "admin", CreatedAt: "2026-08-06T00:00:00Z", ACL: "private"}
	require.NoError(t, f.CreateBucket(ctx, "alpha", attrs))

	got, err := f.GetBucketAttributes(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, attrs, got)

	require.NoError(t, f.DeleteBucket(ctx, "alpha"))

	_, err = f.GetBucketAttributes(ctx, "alpha")
	require.ErrorIs(t, err, ErrNoSuchBucket)
}

func TestScenarioS2ObjectRoundTrip(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	require.NoError(t, f.CreateBucket(ctx, "b1", BucketInfo{Owner: "x"}))
	require.NoError(t, f.PutObject(ctx, "b1", "k", []byte(`{"x":1}`)))

	v, err := f.GetObject(ctx, "b1", "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1}`, string(v))

	require.NoError(t, f.DeleteObject(ctx, "b1", "k"))
	_, err = f.GetObject(ctx, "b1", "k")
	require.ErrorIs(t, err, ErrNoSuchObject)
}

func TestScenarioS3GetBucketAndObjectMissingObject(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	attrs := BucketInfo{Owner: "x"}
	require.NoError(t, f.CreateBucket(ctx, "b1", attrs))

	res, err := f.GetBucketAndObject(ctx, "b1", "missing")
	require.NoError(t, err)
	require.Equal(t, attrs, res.Bucket)
	require.False(t, res.HasObject)
}

func TestScenarioS4DuplicateCreate(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	require.NoError(t, f.CreateBucket(ctx, "b1", BucketInfo{Owner: "x"}))
	err := f.CreateBucket(ctx, "b1", BucketInfo{Owner: "y"})
	require.ErrorIs(t, err, ErrBucketAlreadyExists)
}

func TestScenarioS5PrefixListing(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	require.NoError(t, f.CreateBucket(ctx, "x", BucketInfo{Owner: "x"}))
	for _, k := range []string{"a/1", "a/2", "b/1"} {
		require.NoError(t, f.PutObject(ctx, "x", k, []byte("v")))
	}

	res, err := f.ListObject(ctx, "x", listing.Params{Prefix: "a/", MaxKeys: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"a/1", "a/2"}, res.Keys)
}

func TestDeleteBucketIsIdempotent(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	require.NoError(t, f.DeleteBucket(ctx, "never-existed"))
	require.NoError(t, f.DeleteBucket(ctx, "never-existed"))
}

func TestGetObjectOnMissingBucket(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()
	ctx := context.Background()

	_, err := f.GetObject(ctx, "ghost", "k")
	require.ErrorIs(t, err, ErrNoSuchBucket)
}
