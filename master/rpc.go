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

package master

import (
	"context"
	"net"

	"golang.org/x/time/rate"

	"github.com/cubefs/bucketmetad/rpc"
)

// namespaceStore adapts *namespace.Registry to rpc.NamespaceStore.
type namespaceStore struct{ s *ServerState }

func (n namespaceStore) Open(name string) (rpc.Namespace, bool) {
	h, ok := n.s.Registry.Open(name)
	if !ok {
		return nil, false
	}
	return h, true
}

func (n namespaceStore) CreateNamespace(ctx context.Context, name string) (rpc.Namespace, error) {
	return n.s.Registry.CreateNamespace(ctx, name)
}

// NewRPCServer builds the rpc.Server that exposes s over the network.
// pullRate/pullBurst bound how fast any one worker connection can drain a
// scan cursor (spec's backpressure requirement); 0 disables the limit.
func (s *ServerState) NewRPCServer(pullRate rate.Limit, pullBurst int) *rpc.Server {
	return rpc.NewServer(namespaceStore{s}, pullRate, pullBurst)
}

// ListenAndServe blocks serving RPC on addr until ctx is cancelled.
func (s *ServerState) ListenAndServe(ctx context.Context, addr string, pullRate rate.Limit, pullBurst int) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.NewRPCServer(pullRate, pullBurst).Serve(ctx, ln)
}
