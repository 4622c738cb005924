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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cubefs/bucketmetad/util"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dir, err := util.GenTmpPath()
	require.NoError(t, err)
	s, err := NewStore(context.Background(), filepath.Join(dir, "db"), Option{CreateIfMissing: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		os.RemoveAll(dir)
	})
	return s
}

func TestRocksdbGetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, []byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, []byte("k"), []byte("v1"), true))
	v, err := s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Put(ctx, []byte("k"), []byte("v2"), false))
	v, err = s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)

	require.NoError(t, s.Delete(ctx, []byte("k"), true))
	_, err = s.Get(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRocksdbScanOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		key := []byte(fmt.Sprintf("a/%d", i))
		require.NoError(t, s.Put(ctx, key, []byte("v"), false))
	}
	require.NoError(t, s.Put(ctx, []byte("b/0"), []byte("v"), false))

	c := s.Scan(ctx, Range{GTE: []byte("a/"), LT: []byte("a0")})
	var got []string
	for c.Next() {
		got = append(got, string(c.Entry().Key))
	}
	require.NoError(t, c.Err())
	require.NoError(t, c.Close())
	require.Equal(t, []string{"a/0", "a/1", "a/2", "a/3", "a/4"}, got)
}

func TestRocksdbScanLimitAndClose(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Put(ctx, []byte(fmt.Sprintf("k%02d", i)), []byte("v"), false))
	}

	c := s.Scan(ctx, Range{Limit: 3})
	n := 0
	for c.Next() {
		n++
	}
	require.Equal(t, 3, n)
	require.NoError(t, c.Close())
	// closing again must be safe
	require.NoError(t, c.Close())
}

// TestRocksdbScanHonorsGTEOverStart covers a Range with both Start, a loose
// prefix bound, and GTE, a tighter lower bound: GTE must win, not just
// bound the scan via Start and let rows below GTE leak through unfiltered.
func TestRocksdbScanHonorsGTEOverStart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, k := range []string{"overview|k1|upload-1", "overview|k1|upload-2", "overview|k2|upload-3"} {
		require.NoError(t, s.Put(ctx, []byte(k), []byte("v"), false))
	}

	c := s.Scan(ctx, Range{Start: []byte("overview|"), GTE: []byte("overview|k1|upload-2")})
	var got []string
	for c.Next() {
		got = append(got, string(c.Entry().Key))
	}
	require.NoError(t, c.Err())
	require.NoError(t, c.Close())
	require.Equal(t, []string{"overview|k1|upload-2", "overview|k2|upload-3"}, got)
}

func TestRocksdbScanIsRestartable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, []byte("k"), []byte("v1"), false))

	c1 := s.Scan(ctx, Range{})
	require.True(t, c1.Next())
	require.Equal(t, []byte("v1"), c1.Entry().Value)
	require.NoError(t, c1.Close())

	require.NoError(t, s.Put(ctx, []byte("k2"), []byte("v2"), false))

	c2 := s.Scan(ctx, Range{})
	var keys []string
	for c2.Next() {
		keys = append(keys, string(c2.Entry().Key))
	}
	require.NoError(t, c2.Close())
	require.Equal(t, []string{"k", "k2"}, keys)
}
