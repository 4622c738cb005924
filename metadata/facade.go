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

// Package metadata is the bucket/object façade a worker process calls on
// behalf of an incoming request: it acquires and releases namespace
// handles through a session, delegates to metastore/listing, and maps
// every underlying failure onto the public error taxonomy.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/cubefs/bucketmetad/internal/logging"
	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/listing"
	"github.com/cubefs/bucketmetad/metastore"
	"github.com/cubefs/bucketmetad/metrics"
	"github.com/cubefs/bucketmetad/session"
)

// BucketInfo re-exports metastore's wire shape so callers of this package
// never need to import metastore directly.
type BucketInfo = metastore.BucketInfo

// GetBucketAndObjectResult is getBucketAndObject's return shape: Object is
// only valid when HasObject is true, matching spec.md's "obj is omitted
// when the object is not present, not an error".
type GetBucketAndObjectResult struct {
	Bucket    BucketInfo
	Object    []byte
	HasObject bool
}

// Facade implements the ten operations of spec.md §4.7 against a single
// worker session.
type Facade struct {
	session *session.Session
	logger  logging.Logger
}

func New(s *session.Session) *Facade {
	return &Facade{session: s, logger: logging.Default}
}

// acquireMetastore opens the reserved __metastore namespace. Any failure
// here (including ErrNoSuchNamespace — the metastore is created once at
// master startup and never removed) is InternalError: its absence is an
// invariant violation, not a user-facing condition.
func (f *Facade) acquireMetastore(ctx context.Context) (*metastore.Metastore, *session.Handle, error) {
	h, err := f.session.Acquire(ctx, metastore.Name)
	if err != nil {
		f.logger.Errorf("metadata: acquire metastore namespace: %v", err)
		return nil, nil, wrapInternal(err)
	}
	return metastore.New(h), h, nil
}

// acquireBucket opens a bucket's own namespace, translating "no such
// namespace" into the public NoSuchBucket a caller actually asked about.
func (f *Facade) acquireBucket(ctx context.Context, bucket string) (*session.Handle, error) {
	h, err := f.session.Acquire(ctx, bucket)
	if errors.Is(err, session.ErrNoSuchNamespace) {
		return nil, ErrNoSuchBucket
	}
	if err != nil {
		f.logger.Errorf("metadata: acquire bucket namespace: %v", err)
		return nil, wrapInternal(err)
	}
	return h, nil
}

func (f *Facade) CreateBucket(ctx context.Context, name string, attrs BucketInfo) (err error) {
	defer func(start time.Time) { metrics.ObserveOp("createBucket", start, err) }(time.Now())

	ms, h, err := f.acquireMetastore(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	has, err := ms.HasBucket(ctx, name)
	if err != nil {
		f.logger.Errorf("metadata: createBucket hasBucket: %v", err)
		return wrapInternal(err)
	}
	if has {
		return ErrBucketAlreadyExists
	}

	if err := f.session.CreateNamespace(ctx, name); err != nil {
		f.logger.Errorf("metadata: createBucket createNamespace: %v", err)
		return wrapInternal(err)
	}
	if err := ms.PutBucketAttrs(ctx, name, attrs); err != nil {
		f.logger.Errorf("metadata: createBucket putBucketAttrs: %v", err)
		return wrapInternal(err)
	}
	return nil
}

func (f *Facade) GetBucketAttributes(ctx context.Context, name string) (_ BucketInfo, err error) {
	defer func(start time.Time) { metrics.ObserveOp("getBucketAttributes", start, err) }(time.Now())

	ms, h, err := f.acquireMetastore(ctx)
	if err != nil {
		return BucketInfo{}, err
	}
	defer h.Release()

	info, err := ms.GetBucketAttrs(ctx, name)
	if errors.Is(err, metastore.ErrNotFound) {
		return BucketInfo{}, ErrNoSuchBucket
	}
	if err != nil {
		f.logger.Errorf("metadata: getBucketAttributes: %v", err)
		return BucketInfo{}, wrapInternal(err)
	}
	return info, nil
}

func (f *Facade) PutBucketAttributes(ctx context.Context, name string, attrs BucketInfo) (err error) {
	defer func(start time.Time) { metrics.ObserveOp("putBucketAttributes", start, err) }(time.Now())

	ms, h, err := f.acquireMetastore(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := ms.PutBucketAttrs(ctx, name, attrs); err != nil {
		f.logger.Errorf("metadata: putBucketAttributes: %v", err)
		return wrapInternal(err)
	}
	return nil
}

// DeleteBucket deletes the metastore entry. It succeeds even if the
// underlying namespace has residual keys and even if the bucket was
// already absent (spec.md §4.7, §8 invariant 7).
func (f *Facade) DeleteBucket(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { metrics.ObserveOp("deleteBucket", start, err) }(time.Now())

	ms, h, err := f.acquireMetastore(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := ms.DeleteBucket(ctx, name); err != nil {
		f.logger.Errorf("metadata: deleteBucket: %v", err)
		return wrapInternal(err)
	}
	return nil
}

func (f *Facade) PutObject(ctx context.Context, bucket, key string, value []byte) (err error) {
	defer func(start time.Time) { metrics.ObserveOp("putObject", start, err) }(time.Now())

	h, err := f.acquireBucket(ctx, bucket)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := h.Put(ctx, []byte(key), value, false); err != nil {
		f.logger.Errorf("metadata: putObject: %v", err)
		return wrapInternal(err)
	}
	return nil
}

func (f *Facade) GetObject(ctx context.Context, bucket, key string) (_ []byte, err error) {
	defer func(start time.Time) { metrics.ObserveOp("getObject", start, err) }(time.Now())

	h, err := f.acquireBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	v, err := h.Get(ctx, []byte(key))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoSuchObject
	}
	if err != nil {
		f.logger.Errorf("metadata: getObject: %v", err)
		return nil, wrapInternal(err)
	}
	return v, nil
}

func (f *Facade) DeleteObject(ctx context.Context, bucket, key string) (err error) {
	defer func(start time.Time) { metrics.ObserveOp("deleteObject", start, err) }(time.Now())

	h, err := f.acquireBucket(ctx, bucket)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := h.Delete(ctx, []byte(key), false); err != nil {
		f.logger.Errorf("metadata: deleteObject: %v", err)
		return wrapInternal(err)
	}
	return nil
}

// GetBucketAndObject always returns the bucket's attributes (or
// NoSuchBucket); a missing object is reported via HasObject=false, not an
// error (spec.md §7's one explicit non-error NotFound).
func (f *Facade) GetBucketAndObject(ctx context.Context, bucket, objKey string) (_ GetBucketAndObjectResult, err error) {
	defer func(start time.Time) { metrics.ObserveOp("getBucketAndObject", start, err) }(time.Now())

	attrs, err := f.GetBucketAttributes(ctx, bucket)
	if err != nil {
		return GetBucketAndObjectResult{}, err
	}

	h, err := f.acquireBucket(ctx, bucket)
	if err != nil {
		return GetBucketAndObjectResult{}, err
	}
	defer h.Release()

	v, err := h.Get(ctx, []byte(objKey))
	if errors.Is(err, kvstore.ErrNotFound) {
		return GetBucketAndObjectResult{Bucket: attrs}, nil
	}
	if err != nil {
		f.logger.Errorf("metadata: getBucketAndObject: %v", err)
		return GetBucketAndObjectResult{}, wrapInternal(err)
	}
	return GetBucketAndObjectResult{Bucket: attrs, Object: v, HasObject: true}, nil
}

func (f *Facade) ListObject(ctx context.Context, bucket string, params listing.Params) (_ listing.Result, err error) {
	defer func(start time.Time) { metrics.ObserveOp("listObject", start, err) }(time.Now())

	h, err := f.acquireBucket(ctx, bucket)
	if err != nil {
		return listing.Result{}, err
	}
	defer h.Release()

	res, err := listing.List(ctx, h, params)
	if err != nil {
		f.logger.Errorf("metadata: listObject: %v", err)
		return listing.Result{}, wrapInternal(err)
	}
	return res, nil
}

func (f *Facade) ListMultipartUploads(ctx context.Context, bucket string, params listing.Params) (_ listing.Result, err error) {
	defer func(start time.Time) { metrics.ObserveOp("listMultipartUploads", start, err) }(time.Now())

	params.ListingType = "multipartuploads"
	h, err := f.acquireBucket(ctx, bucket)
	if err != nil {
		return listing.Result{}, err
	}
	defer h.Release()

	res, err := listing.List(ctx, h, params)
	if err != nil {
		f.logger.Errorf("metadata: listMultipartUploads: %v", err)
		return listing.Result{}, wrapInternal(err)
	}
	return res, nil
}
