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

// Package listing streams a ranged scan of a bucket's namespace through a
// pluggable filter extension that can terminate the scan early without
// leaking the underlying cursor.
package listing

import (
	"context"

	"github.com/cubefs/bucketmetad/kvstore"
)

// Scanner is the minimal capability the listing engine needs from a
// bucket namespace. namespace.Handle satisfies it.
type Scanner interface {
	Scan(ctx context.Context, r kvstore.Range) kvstore.Cursor
}

// Extension is the pluggable filter contract: Filter sees entries in
// ascending key order and returns false to stop the scan early; Result
// builds the listing payload once the scan has stopped, for whatever
// reason.
type Extension interface {
	Filter(e kvstore.Entry) bool
	Result() Result
}

// Result is the listing payload produced by either extension. Only the
// fields relevant to the selected extension are populated.
type Result struct {
	Keys               []string
	CommonPrefixes     []string
	Uploads            []Upload
	IsTruncated        bool
	NextMarker         string
	NextKeyMarker      string
	NextUploadIDMarker string
}

// Upload is one entry of a multipart-upload listing.
type Upload struct {
	Key      string
	UploadID string
}

// Params mirrors spec.md §4.6's ListingParams table.
type Params struct {
	ListingType       string
	Prefix            string
	Marker            string
	KeyMarker         string
	UploadIDMarker    string
	Splitter          string
	QueryPrefixLength int
	Delimiter         string
	MaxKeys           int
}

const multipartUploadsListingType = "multipartuploads"

// List runs the ranged scan described by params against scanner and
// drives it through the appropriate Extension, returning the extension's
// result exactly once. A scan-time error from the cursor is returned to
// the caller to map into the public error taxonomy (spec.md §7).
func List(ctx context.Context, scanner Scanner, params Params) (Result, error) {
	if params.MaxKeys == 0 {
		return Result{}, nil
	}

	ext := newExtension(params)
	r := scanRange(params)

	cur := scanner.Scan(ctx, r)
	defer cur.Close()

	for cur.Next() {
		if !ext.Filter(cur.Entry()) {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return Result{}, err
	}
	return ext.Result(), nil
}

func newExtension(params Params) Extension {
	if params.ListingType == multipartUploadsListingType {
		return newMultipartUploadsExtension(params)
	}
	return newDelimiterExtension(params)
}

func scanRange(params Params) kvstore.Range {
	var r kvstore.Range

	if params.ListingType == multipartUploadsListingType {
		if params.KeyMarker == "" && params.UploadIDMarker == "" {
			r.Start = []byte("overview" + params.Splitter)
			return r
		}
		lower := []byte("overview" + params.Splitter + params.KeyMarker + params.Splitter + params.UploadIDMarker)
		if up, ok := Advance(lower); ok {
			r.GTE = up
		} else {
			r.GTE = lower
		}
		return r
	}

	if params.Prefix != "" {
		r.Start = []byte(params.Prefix)
		if up, ok := Advance([]byte(params.Prefix)); ok {
			r.LT = up
		}
	}
	if params.Marker != "" {
		r.GT = []byte(params.Marker)
		r.Start = nil
	}
	return r
}
