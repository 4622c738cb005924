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

	"github.com/cubefs/bucketmetad/kvstore"
)

// Client is one worker's connection to the master. The protocol is strict
// request/response on a single stream, so Client serializes calls with a
// mutex rather than multiplexing — there is never more than one in-flight
// request per connection, which is what gives the transport its ordering
// guarantee for free.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial opens a connection to addr. The caller owns reconnecting on
// failure; Client itself never reconnects (that policy lives in session).
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) call(namespace string, op Op, args interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := &Envelope{RequestID: uuid.New().String(), Namespace: namespace, Op: op, Args: args}
	if err := WriteFrame(c.conn, req); err != nil {
		return nil, err
	}
	resp, err := ReadFrame(c.conn)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Result, nil
}

func (c *Client) Get(ctx context.Context, namespace string, key []byte) ([]byte, bool, error) {
	res, err := c.call(namespace, OpGet, GetArgs{Key: key})
	if err != nil {
		return nil, false, err
	}
	r := res.(GetResult)
	return r.Value, r.Found, nil
}

func (c *Client) Put(ctx context.Context, namespace string, key, value []byte, sync bool) error {
	_, err := c.call(namespace, OpPut, PutArgs{Key: key, Value: value, Sync: sync})
	return err
}

func (c *Client) Delete(ctx context.Context, namespace string, key []byte, sync bool) error {
	_, err := c.call(namespace, OpDel, DelArgs{Key: key, Sync: sync})
	return err
}

func (c *Client) CreateNamespace(ctx context.Context, name string) error {
	_, err := c.call("", OpCreateNamespace, CreateNamespaceArgs{Name: name})
	return err
}

// Scan opens a server-side cursor and returns a kvstore.Cursor that pulls
// batches from it lazily. The returned cursor's Close issues scanClose,
// which the server honors even if the scan already reached its end.
func (c *Client) Scan(ctx context.Context, namespace string, r kvstore.Range) kvstore.Cursor {
	res, err := c.call(namespace, OpScanOpen, ScanOpenArgs{
		GT: r.GT, GTE: r.GTE, LT: r.LT, LTE: r.LTE, Start: r.Start, Reverse: r.Reverse,
	})
	if err != nil {
		return &errCursor{err: err}
	}
	return &remoteCursor{
		client:    c,
		namespace: namespace,
		scanID:    res.(ScanOpenResult).ScanID,
		maxBatch:  defaultMaxBatch,
	}
}

type errCursor struct{ err error }

func (c *errCursor) Next() bool           { return false }
func (c *errCursor) Entry() kvstore.Entry { return kvstore.Entry{} }
func (c *errCursor) Err() error           { return c.err }
func (c *errCursor) Close() error         { return nil }

// remoteCursor adapts scanOpen/scanPull/scanClose into a kvstore.Cursor,
// pulling one batch at a time and buffering it locally.
type remoteCursor struct {
	client    *Client
	namespace string
	scanID    string
	maxBatch  int

	batch []WireEntry
	idx   int
	end   bool
	err   error
	cur   kvstore.Entry
}

func (c *remoteCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for {
		if c.idx < len(c.batch) {
			e := c.batch[c.idx]
			c.idx++
			c.cur = kvstore.Entry{Key: e.Key, Value: e.Value}
			return true
		}
		if c.end {
			return false
		}
		res, err := c.client.call(c.namespace, OpScanPull, ScanPullArgs{ScanID: c.scanID, MaxBatch: c.maxBatch})
		if err != nil {
			c.err = err
			return false
		}
		r := res.(ScanPullResult)
		c.batch = r.Entries
		c.idx = 0
		c.end = r.End
		if len(c.batch) == 0 {
			if c.end {
				return false
			}
			continue
		}
	}
}

func (c *remoteCursor) Entry() kvstore.Entry { return c.cur }
func (c *remoteCursor) Err() error           { return c.err }

func (c *remoteCursor) Close() error {
	_, err := c.client.call(c.namespace, OpScanClose, ScanCloseArgs{ScanID: c.scanID})
	return err
}
