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

package rpc

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/metrics"
)

// Namespace is the capability a dispatched request needs from the
// namespace it names. namespace.Handle satisfies it.
type Namespace interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte, sync bool) error
	Delete(ctx context.Context, key []byte, sync bool) error
	Scan(ctx context.Context, r kvstore.Range) kvstore.Cursor
}

// NamespaceStore resolves namespace names to Namespace handles. A request
// against an unknown namespace maps to ErrorDetail code "NoSuchNamespace";
// the worker's session layer treats that as a manifest-staleness signal and
// reconnects.
type NamespaceStore interface {
	Open(name string) (Namespace, bool)
	CreateNamespace(ctx context.Context, name string) (Namespace, error)
}

// defaultMaxBatch bounds how many entries one scanPull returns.
const defaultMaxBatch = 256

// Server is the master-side RPC endpoint. One Server accepts connections
// from every worker process; each connection gets its own read/dispatch
// loop and its own scan-cursor table, so a misbehaving worker can only ever
// leak cursors scoped to its own connection.
type Server struct {
	store     NamespaceStore
	pullRate  rate.Limit
	pullBurst int
}

// NewServer builds a Server over store. pullRate/pullBurst configure the
// per-connection scanPull limiter (spec's RPC transport "backpressure"
// requirement); zero pullRate disables limiting.
func NewServer(store NamespaceStore, pullRate rate.Limit, pullBurst int) *Server {
	return &Server{store: store, pullRate: pullRate, pullBurst: pullBurst}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	c := &connState{cursors: make(map[string]kvstore.Cursor), connID: conn.RemoteAddr().String()}
	if s.pullRate > 0 {
		c.limiter = rate.NewLimiter(s.pullRate, s.pullBurst)
	}
	defer c.closeAll()

	for {
		req, err := ReadFrame(conn)
		if err != nil {
			return
		}

		resp := &Envelope{RequestID: req.RequestID, Namespace: req.Namespace, Op: req.Op}
		result, err := s.dispatch(ctx, c, req)
		if err != nil {
			resp.Err = toErrorDetail(err)
		} else {
			resp.Result = result
		}

		if err := WriteFrame(conn, resp); err != nil {
			log.Error("rpc: write response:", err)
			return
		}
	}
}

type connState struct {
	mu      sync.Mutex
	cursors map[string]kvstore.Cursor
	limiter *rate.Limiter
	connID  string
}

func (c *connState) put(cur kvstore.Cursor) string {
	id := uuid.New().String()
	c.mu.Lock()
	c.cursors[id] = cur
	n := len(c.cursors)
	c.mu.Unlock()
	metrics.ScanCursors.WithLabelValues(c.connID).Set(float64(n))
	return id
}

func (c *connState) get(id string) (kvstore.Cursor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[id]
	return cur, ok
}

// close removes and closes id's cursor. Honoring an absent id as a no-op
// (rather than an error) is what makes scanClose idempotent.
func (c *connState) close(id string) {
	c.mu.Lock()
	cur, ok := c.cursors[id]
	delete(c.cursors, id)
	n := len(c.cursors)
	c.mu.Unlock()
	if ok {
		cur.Close()
		metrics.ScanCursors.WithLabelValues(c.connID).Set(float64(n))
	}
}

func (c *connState) closeAll() {
	c.mu.Lock()
	cursors := c.cursors
	c.cursors = nil
	c.mu.Unlock()
	for _, cur := range cursors {
		cur.Close()
	}
	metrics.ScanCursors.WithLabelValues(c.connID).Set(0)
}

func (s *Server) dispatch(ctx context.Context, c *connState, req *Envelope) (interface{}, error) {
	if req.Op == OpCreateNamespace {
		args, _ := req.Args.(CreateNamespaceArgs)
		if _, err := s.store.CreateNamespace(ctx, args.Name); err != nil {
			return nil, err
		}
		return CreateNamespaceResult{}, nil
	}

	ns, ok := s.store.Open(req.Namespace)
	if !ok {
		return nil, &ErrorDetail{Code: "NoSuchNamespace", Message: req.Namespace}
	}

	switch req.Op {
	case OpGet:
		args, _ := req.Args.(GetArgs)
		v, err := ns.Get(ctx, args.Key)
		if err == kvstore.ErrNotFound {
			return GetResult{Found: false}, nil
		}
		if err != nil {
			return nil, err
		}
		return GetResult{Value: v, Found: true}, nil

	case OpPut:
		args, _ := req.Args.(PutArgs)
		if err := ns.Put(ctx, args.Key, args.Value, args.Sync); err != nil {
			return nil, err
		}
		return PutResult{}, nil

	case OpDel:
		args, _ := req.Args.(DelArgs)
		if err := ns.Delete(ctx, args.Key, args.Sync); err != nil {
			return nil, err
		}
		return DelResult{}, nil

	case OpScanOpen:
		args, _ := req.Args.(ScanOpenArgs)
		cur := ns.Scan(ctx, kvstore.Range{
			GT: args.GT, GTE: args.GTE, LT: args.LT, LTE: args.LTE,
			Start: args.Start, Reverse: args.Reverse,
		})
		return ScanOpenResult{ScanID: c.put(cur)}, nil

	case OpScanPull:
		args, _ := req.Args.(ScanPullArgs)
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		cur, ok := c.get(args.ScanID)
		if !ok {
			return ScanPullResult{End: true}, nil
		}
		maxBatch := args.MaxBatch
		if maxBatch <= 0 {
			maxBatch = defaultMaxBatch
		}
		var entries []WireEntry
		for len(entries) < maxBatch && cur.Next() {
			e := cur.Entry()
			entries = append(entries, WireEntry{Key: e.Key, Value: e.Value})
		}
		if err := cur.Err(); err != nil {
			return nil, err
		}
		end := len(entries) < maxBatch
		if end {
			c.close(args.ScanID)
		}
		return ScanPullResult{Entries: entries, End: end}, nil

	case OpScanClose:
		args, _ := req.Args.(ScanCloseArgs)
		c.close(args.ScanID)
		return ScanCloseResult{}, nil

	default:
		return nil, &ErrorDetail{Code: "InternalError", Message: "unknown op " + string(req.Op)}
	}
}

func toErrorDetail(err error) *ErrorDetail {
	if ed, ok := err.(*ErrorDetail); ok {
		return ed
	}
	return &ErrorDetail{Code: "InternalError", Message: err.Error()}
}
