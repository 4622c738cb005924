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

package metastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/namespace"
)

func newTestMetastore(t *testing.T) *Metastore {
	t.Helper()
	reg := namespace.NewRegistry(kvstore.NewMemStore(), t.TempDir())
	ns, err := reg.CreateNamespace(context.Background(), Name)
	require.NoError(t, err)
	return New(ns)
}

func TestMetastoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestMetastore(t)

	has, err := m.HasBucket(ctx, "alpha")
	require.NoError(t, err)
	require.False(t, has)

	_, err = m.GetBucketAttrs(ctx, "alpha")
	require.ErrorIs(t, err, ErrNotFound)

	info := BucketInfo{Owner: "admin", CreatedAt: "2026-08-06T00:00:00Z", ACL: "private"}
	require.NoError(t, m.PutBucketAttrs(ctx, "alpha", info))

	has, err = m.HasBucket(ctx, "alpha")
	require.NoError(t, err)
	require.True(t, has)

	got, err := m.GetBucketAttrs(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, info, got)

	require.NoError(t, m.DeleteBucket(ctx, "alpha"))
	_, err = m.GetBucketAttrs(ctx, "alpha")
	require.ErrorIs(t, err, ErrNotFound)

	// deleting an absent bucket is idempotently successful.
	require.NoError(t, m.DeleteBucket(ctx, "alpha"))
}
