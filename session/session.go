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

// Package session is the worker-side client: one long-lived connection to
// the master, a cached manifest, and a refcounted reconnect protocol that
// never swaps the connection out from under an in-flight operation.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/cubefs/bucketmetad/internal/logging"
	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/metrics"
	"github.com/cubefs/bucketmetad/namespace"
	"github.com/cubefs/bucketmetad/rpc"
)

// ErrNoSuchNamespace is returned by Acquire when the namespace is absent
// from the manifest even after the one reconnect-and-retry the protocol
// allows.
var ErrNoSuchNamespace = errors.New("session: no such namespace")

type state int

const (
	disconnected state = iota
	connecting
	ready
	draining
)

// Session is safe for concurrent use by many goroutines, one per
// in-flight worker operation.
type Session struct {
	addr         string
	manifestPath string

	logger logging.Logger

	mu         sync.Mutex
	state      state
	refcnt     uint64
	client     *rpc.Client
	manifest   namespace.Manifest
	idleWaiter []chan struct{}
}

// Dial builds a Session: it loads the on-disk manifest and opens the
// transport before returning, so a freshly constructed Session is always
// Ready.
func Dial(ctx context.Context, addr, manifestPath string) (*Session, error) {
	s := &Session{addr: addr, manifestPath: manifestPath, state: connecting, logger: logging.Default}
	if err := s.doReconnect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) doReconnect(ctx context.Context) error {
	mf, err := namespace.LoadManifest(s.manifestPath)
	if err != nil {
		return err
	}
	client, err := rpc.Dial(ctx, s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.client
	s.client = client
	s.manifest = mf
	s.state = ready
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Handle is a refcounted, namespace-bound view of the session's current
// connection. Every caller that acquires one must Release it exactly once,
// success or error, or the session's refcnt never returns to zero and
// reconnects can no longer happen.
type Handle struct {
	session   *Session
	client    *rpc.Client
	namespace string
	once      sync.Once
}

// Acquire resolves namespace against the cached manifest, reconnecting
// once if it's missing, and returns a refcounted Handle on success. A
// namespace still missing after the one allowed reconnect surfaces
// ErrNoSuchNamespace — the caller's error-mapping layer turns that into
// the public NoSuchBucket/InternalError distinction it cares about.
func (s *Session) Acquire(ctx context.Context, ns string) (*Handle, error) {
	h, retry, err := s.tryAcquire(ns)
	if err != nil {
		return nil, err
	}
	if !retry {
		return h, nil
	}

	if err := s.reconnect(ctx); err != nil {
		return nil, err
	}

	h, retry, err = s.tryAcquire(ns)
	if err != nil {
		return nil, err
	}
	if retry {
		return nil, ErrNoSuchNamespace
	}
	return h, nil
}

// tryAcquire reports retry=true when ns is absent from the cached
// manifest and the caller should reconnect and try exactly once more.
func (s *Session) tryAcquire(ns string) (h *Handle, retry bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.manifest.Has(ns) {
		return nil, true, nil
	}
	s.refcnt++
	metrics.Refcount.WithLabelValues(s.addr).Set(float64(s.refcnt))
	return &Handle{session: s, client: s.client, namespace: ns}, false, nil
}

// reconnect implements spec's deferred-reconnect protocol: if nothing is
// in flight, reconnect immediately; otherwise wait for the last in-flight
// operation's Release to do it.
func (s *Session) reconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.refcnt == 0 {
		s.mu.Unlock()
		metrics.Reconnects.WithLabelValues(s.addr, "false").Inc()
		return s.doReconnect(ctx)
	}

	ch := make(chan struct{})
	s.idleWaiter = append(s.idleWaiter, ch)
	s.state = draining
	inFlight := s.refcnt
	s.mu.Unlock()
	s.logger.Warnf("session: reconnect to %s deferred, %d operations in flight", s.addr, inFlight)
	metrics.Reconnects.WithLabelValues(s.addr, "true").Inc()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release decrements refcnt and, if the session was draining for a
// reconnect that was waiting on exactly this, performs it before waking
// every caller blocked on it.
func (s *Session) release() {
	s.mu.Lock()
	if s.refcnt == 0 {
		s.mu.Unlock()
		s.logger.Fatalf("session: refcnt went negative, aborting")
		return
	}
	s.refcnt--
	metrics.Refcount.WithLabelValues(s.addr).Set(float64(s.refcnt))

	if s.state != draining || s.refcnt != 0 {
		s.mu.Unlock()
		return
	}

	waiters := s.idleWaiter
	s.idleWaiter = nil
	s.mu.Unlock()

	if err := s.doReconnect(context.Background()); err != nil {
		s.logger.Errorf("session: deferred reconnect failed: %v", err)
		s.mu.Lock()
		s.state = disconnected
		s.mu.Unlock()
	}
	for _, ch := range waiters {
		close(ch)
	}
}

// Release returns the handle's share of the refcount. Safe to call more
// than once; only the first call has effect.
func (h *Handle) Release() {
	h.once.Do(h.session.release)
}

func (h *Handle) Get(ctx context.Context, key []byte) ([]byte, error) {
	v, found, err := h.client.Get(ctx, h.namespace, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, kvstore.ErrNotFound
	}
	return v, nil
}

func (h *Handle) Put(ctx context.Context, key, value []byte, sync bool) error {
	return h.client.Put(ctx, h.namespace, key, value, sync)
}

func (h *Handle) Delete(ctx context.Context, key []byte, sync bool) error {
	return h.client.Delete(ctx, h.namespace, key, sync)
}

func (h *Handle) Scan(ctx context.Context, r kvstore.Range) kvstore.Cursor {
	return h.client.Scan(ctx, h.namespace, r)
}

// CreateNamespace asks the master to create ns and refreshes the cached
// manifest so a subsequent Acquire for the same name needs no retry. It
// only reloads the manifest file, not the transport — the connection
// itself is unaffected by a new namespace being created.
func (s *Session) CreateNamespace(ctx context.Context, ns string) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if err := client.CreateNamespace(ctx, ns); err != nil {
		return err
	}

	mf, err := namespace.LoadManifest(s.manifestPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.manifest = mf
	s.mu.Unlock()
	return nil
}

// Close releases the underlying connection. The caller must ensure no
// Handle is outstanding.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
