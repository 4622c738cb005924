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
	"bytes"
	"context"
	"os"
	"sync"

	rdb "github.com/tecbot/gorocksdb"
)

type rocksdb struct {
	db       *rdb.DB
	opt      *rdb.Options
	readOpt  *rdb.ReadOptions
	writeOpt *rdb.WriteOptions

	closeOnce sync.Once
}

func newRocksdb(ctx context.Context, path string, opt Option) (Store, error) {
	if path == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	dbOpt := rdb.NewDefaultOptions()
	dbOpt.SetCreateIfMissing(opt.CreateIfMissing)
	if opt.BlockCacheBytes > 0 {
		bbto := rdb.NewDefaultBlockBasedTableOptions()
		bbto.SetBlockCache(rdb.NewLRUCache(opt.BlockCacheBytes))
		dbOpt.SetBlockBasedTableFactory(bbto)
	}
	if opt.WriteBufferSize > 0 {
		dbOpt.SetWriteBufferSize(opt.WriteBufferSize)
	}
	if opt.MaxOpenFiles > 0 {
		dbOpt.SetMaxOpenFiles(opt.MaxOpenFiles)
	}

	db, err := rdb.OpenDb(dbOpt, path)
	if err != nil {
		return nil, err
	}

	wo := rdb.NewDefaultWriteOptions()
	wo.DisableWAL(opt.DisableWAL)
	ro := rdb.NewDefaultReadOptions()

	return &rocksdb{
		db:       db,
		opt:      dbOpt,
		readOpt:  ro,
		writeOpt: wo,
	}, nil
}

func (s *rocksdb) Get(ctx context.Context, key []byte) ([]byte, error) {
	v, err := s.db.Get(s.readOpt, key)
	if err != nil {
		return nil, err
	}
	defer v.Free()
	if !v.Exists() {
		return nil, ErrNotFound
	}
	value := make([]byte, v.Size())
	copy(value, v.Data())
	return value, nil
}

func (s *rocksdb) Put(ctx context.Context, key, value []byte, sync bool) error {
	wo := s.writeOpt
	if sync {
		wo = rdb.NewDefaultWriteOptions()
		wo.SetSync(true)
		defer wo.Destroy()
	}
	return s.db.Put(wo, key, value)
}

func (s *rocksdb) Delete(ctx context.Context, key []byte, sync bool) error {
	wo := s.writeOpt
	if sync {
		wo = rdb.NewDefaultWriteOptions()
		wo.SetSync(true)
		defer wo.Destroy()
	}
	return s.db.Delete(wo, key)
}

func (s *rocksdb) Scan(ctx context.Context, r Range) Cursor {
	it := s.db.NewIterator(s.readOpt)

	switch {
	case r.Reverse:
		switch {
		case r.LTE != nil:
			it.Seek(r.LTE)
			if it.Valid() && bytes.Compare(it.Key().Data(), r.LTE) > 0 {
				it.Prev()
			}
		case r.LT != nil:
			it.Seek(r.LT)
			it.Prev()
		default:
			it.SeekToLast()
		}
	// GTE/GT, when set, is always the tighter lower bound: Start only
	// matters as a fallback seek position when neither is set, the same
	// precedence memstore's Scan applies when filtering entries.
	case r.GTE != nil:
		it.Seek(r.GTE)
	case r.GT != nil:
		it.Seek(r.GT)
		if it.Valid() && bytes.Equal(it.Key().Data(), r.GT) {
			it.Next()
		}
	case r.Start != nil:
		it.Seek(r.Start)
	default:
		it.SeekToFirst()
	}

	return &rocksdbCursor{it: it, r: r, first: true}
}

func (s *rocksdb) Close() error {
	s.closeOnce.Do(func() {
		s.writeOpt.Destroy()
		s.readOpt.Destroy()
		s.opt.Destroy()
		s.db.Close()
	})
	return nil
}

type rocksdbCursor struct {
	it      *rdb.Iterator
	r       Range
	first   bool
	emitted int
	cur     Entry
	err     error
	closed  bool
}

func (c *rocksdbCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if c.r.Limit > 0 && c.emitted >= c.r.Limit {
		return false
	}
	if !c.first {
		if c.r.Reverse {
			c.it.Prev()
		} else {
			c.it.Next()
		}
	}
	c.first = false

	if err := c.it.Err(); err != nil {
		c.err = err
		return false
	}
	if !c.it.Valid() {
		return false
	}

	key := c.it.Key().Data()
	if !c.inBounds(key) {
		return false
	}

	value := c.it.Value().Data()
	c.cur = Entry{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)}
	c.emitted++
	return true
}

func (c *rocksdbCursor) inBounds(key []byte) bool {
	if c.r.Reverse {
		if c.r.GT != nil && bytes.Compare(key, c.r.GT) <= 0 {
			return false
		}
		if c.r.GTE != nil && bytes.Compare(key, c.r.GTE) < 0 {
			return false
		}
		return true
	}
	if c.r.GT != nil && bytes.Compare(key, c.r.GT) <= 0 {
		return false
	}
	if c.r.GTE != nil && bytes.Compare(key, c.r.GTE) < 0 {
		return false
	}
	if c.r.LT != nil && bytes.Compare(key, c.r.LT) >= 0 {
		return false
	}
	if c.r.LTE != nil && bytes.Compare(key, c.r.LTE) > 0 {
		return false
	}
	return true
}

func (c *rocksdbCursor) Entry() Entry { return c.cur }

func (c *rocksdbCursor) Err() error { return c.err }

func (c *rocksdbCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.it.Close()
	return nil
}
