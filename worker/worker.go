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

// Package worker wires one process's session to the bucket/object façade.
// A worker process is otherwise just whatever protocol server (S3-shaped
// HTTP, a CLI, a test harness) is driving metadata.Facade.
package worker

import (
	"context"

	"github.com/cubefs/bucketmetad/metadata"
	"github.com/cubefs/bucketmetad/session"
)

// Worker owns one session to the master and the façade built on top of
// it. Closing a Worker closes its session; any Facade call in flight at
// that point should have completed first (the caller's responsibility —
// the same discipline spec.md asks of any refcount holder).
type Worker struct {
	Session *session.Session
	Facade  *metadata.Facade
}

// Dial opens a session against the master at addr, reading its manifest
// from metadataPath, and returns a Worker ready to serve requests.
func Dial(ctx context.Context, addr, metadataPath string) (*Worker, error) {
	s, err := session.Dial(ctx, addr, metadataPath)
	if err != nil {
		return nil, err
	}
	return &Worker{Session: s, Facade: metadata.New(s)}, nil
}

func (w *Worker) Close() error {
	return w.Session.Close()
}
