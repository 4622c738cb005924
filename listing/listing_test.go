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

package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cubefs/bucketmetad/kvstore"
)

func seed(t *testing.T, keys ...string) kvstore.Store {
	t.Helper()
	s := kvstore.NewMemStore()
	for _, k := range keys {
		require.NoError(t, s.Put(context.Background(), []byte(k), []byte("v"), false))
	}
	return s
}

func TestAdvanceInvariant(t *testing.T) {
	out, ok := Advance([]byte("a/"))
	require.True(t, ok)
	require.Len(t, out, 2)
	require.NotEqual(t, []byte("a/"), out)
	require.Equal(t, 1, bytesCompare(out, []byte("a/")))

	_, ok = Advance([]byte{0xFF})
	require.False(t, ok)
	_, ok = Advance(nil)
	require.False(t, ok)
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	switch {
	case len(a) > len(b):
		return 1
	case len(a) < len(b):
		return -1
	default:
		return 0
	}
}

func TestListPrefixListing(t *testing.T) {
	s := seed(t, "a/1", "a/2", "b/1")
	res, err := List(context.Background(), s, Params{Prefix: "a/", MaxKeys: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"a/1", "a/2"}, res.Keys)
	require.False(t, res.IsTruncated)
}

func TestListEmptyPrefixListsEntireBucket(t *testing.T) {
	s := seed(t, "a/1", "b/1")
	res, err := List(context.Background(), s, Params{MaxKeys: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"a/1", "b/1"}, res.Keys)
}

func TestListMaxKeysZeroIsEmptyAndNoScan(t *testing.T) {
	s := seed(t, "a/1")
	res, err := List(context.Background(), s, Params{MaxKeys: 0})
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}

func TestListMarkerStartsStrictlyAfter(t *testing.T) {
	s := seed(t, "a", "b", "c")
	res, err := List(context.Background(), s, Params{Marker: "a", MaxKeys: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, res.Keys)
}

func TestListTruncationSetsNextMarker(t *testing.T) {
	s := seed(t, "a", "b", "c")
	res, err := List(context.Background(), s, Params{MaxKeys: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, res.Keys)
	require.True(t, res.IsTruncated)
	require.Equal(t, "b", res.NextMarker)

	// Marker is exclusive, so resuming with NextMarker must still return
	// the excluded key rather than skipping past it.
	res2, err := List(context.Background(), s, Params{Marker: res.NextMarker, MaxKeys: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, res2.Keys)
}

func TestListDelimiterGroupsCommonPrefixes(t *testing.T) {
	s := seed(t, "photos/2021/a.jpg", "photos/2021/b.jpg", "photos/2022/c.jpg", "readme.txt")
	res, err := List(context.Background(), s, Params{Prefix: "photos/", Delimiter: "/", MaxKeys: 10})
	require.NoError(t, err)
	require.Empty(t, res.Keys)
	require.Equal(t, []string{"photos/2021/", "photos/2022/"}, res.CommonPrefixes)
}

func TestListMultipartUploads(t *testing.T) {
	s := seed(t,
		"overview|k1|upload-1",
		"overview|k1|upload-2",
		"overview|k2|upload-3",
	)
	res, err := List(context.Background(), s, Params{
		ListingType: "multipartuploads",
		Splitter:    "|",
		MaxKeys:     10,
	})
	require.NoError(t, err)
	require.Equal(t, []Upload{
		{Key: "k1", UploadID: "upload-1"},
		{Key: "k1", UploadID: "upload-2"},
		{Key: "k2", UploadID: "upload-3"},
	}, res.Uploads)
}

func TestListMultipartUploadsTruncationSetsMarkers(t *testing.T) {
	s := seed(t,
		"overview|k1|upload-1",
		"overview|k1|upload-2",
		"overview|k2|upload-3",
	)
	res, err := List(context.Background(), s, Params{
		ListingType: "multipartuploads",
		Splitter:    "|",
		MaxKeys:     2,
	})
	require.NoError(t, err)
	require.Equal(t, []Upload{
		{Key: "k1", UploadID: "upload-1"},
		{Key: "k1", UploadID: "upload-2"},
	}, res.Uploads)
	require.True(t, res.IsTruncated)
	require.Equal(t, "k1", res.NextKeyMarker)
	require.Equal(t, "upload-2", res.NextUploadIDMarker)

	res2, err := List(context.Background(), s, Params{
		ListingType:    "multipartuploads",
		Splitter:       "|",
		KeyMarker:      res.NextKeyMarker,
		UploadIDMarker: res.NextUploadIDMarker,
		MaxKeys:        10,
	})
	require.NoError(t, err)
	require.Equal(t, []Upload{{Key: "k2", UploadID: "upload-3"}}, res2.Uploads)
}

func TestListMultipartUploadsResumesAfterMarker(t *testing.T) {
	s := seed(t,
		"overview|k1|upload-1",
		"overview|k1|upload-2",
		"overview|k2|upload-3",
	)
	res, err := List(context.Background(), s, Params{
		ListingType:    "multipartuploads",
		Splitter:       "|",
		KeyMarker:      "k1",
		UploadIDMarker: "upload-1",
		MaxKeys:        10,
	})
	require.NoError(t, err)
	require.Equal(t, []Upload{
		{Key: "k1", UploadID: "upload-2"},
		{Key: "k2", UploadID: "upload-3"},
	}, res.Uploads)
}
