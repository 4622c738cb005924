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

// Package rpc is the length-framed transport between the master and its
// worker processes. One net.Conn carries one request/response stream;
// responses are delivered in the order their requests were issued because
// a single goroutine on each side reads the next request only after
// writing the previous response.
package rpc

import "encoding/gob"

// Op identifies the operation an Envelope carries. These mirror the
// bucket-scoped KV primitives a worker needs against the master's store:
// everything above this layer (buckets, objects, listings) is built out of
// get/put/del/scan against a namespace on the calling side.
type Op string

const (
	OpGet             Op = "get"
	OpPut             Op = "put"
	OpDel             Op = "del"
	OpScanOpen        Op = "scanOpen"
	OpScanPull        Op = "scanPull"
	OpScanClose       Op = "scanClose"
	OpCreateNamespace Op = "createNamespace"
)

// Envelope is the wire message, both directions. A request carries Args
// and a zero Result/Err; a response carries the same RequestID with Result
// set on success or Err set on failure, never both.
type Envelope struct {
	RequestID string
	Namespace string
	Op        Op
	Args      interface{}
	Result    interface{}
	Err       *ErrorDetail
}

// ErrorDetail is the wire form of an error: a stable code the caller can
// switch on, plus a human-readable message for logs.
type ErrorDetail struct {
	Code    string
	Message string
}

func (e *ErrorDetail) Error() string { return e.Code + ": " + e.Message }

type (
	GetArgs   struct{ Key []byte }
	GetResult struct {
		Value []byte
		Found bool
	}

	PutArgs struct {
		Key, Value []byte
		Sync       bool
	}
	PutResult struct{}

	DelArgs struct {
		Key  []byte
		Sync bool
	}
	DelResult struct{}

	ScanOpenArgs struct {
		GT, GTE, LT, LTE, Start []byte
		Limit                   int
		Reverse                 bool
	}
	ScanOpenResult struct{ ScanID string }

	ScanPullArgs struct {
		ScanID   string
		MaxBatch int
	}
	ScanPullResult struct {
		Entries []WireEntry
		End     bool
	}

	ScanCloseArgs   struct{ ScanID string }
	ScanCloseResult struct{}

	CreateNamespaceArgs   struct{ Name string }
	CreateNamespaceResult struct{}
)

// WireEntry is kvstore.Entry's wire twin, the element type of a
// ScanPullResult batch.
type WireEntry struct {
	Key, Value []byte
}

func init() {
	gob.Register(GetArgs{})
	gob.Register(GetResult{})
	gob.Register(PutArgs{})
	gob.Register(PutResult{})
	gob.Register(DelArgs{})
	gob.Register(DelResult{})
	gob.Register(ScanOpenArgs{})
	gob.Register(ScanOpenResult{})
	gob.Register(ScanPullArgs{})
	gob.Register(ScanPullResult{})
	gob.Register(ScanCloseArgs{})
	gob.Register(ScanCloseResult{})
	gob.Register(CreateNamespaceArgs{})
	gob.Register(CreateNamespaceResult{})
	gob.Register(&ErrorDetail{})
}
