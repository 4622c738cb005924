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

// bucketmetad-worker is a minimal stand-in for a worker process: it dials
// the master, logs the connection, and blocks until SIGTERM or SIGINT.
// A real deployment would instead sit behind whatever protocol server
// (S3-shaped HTTP, an internal RPC, a CLI) is meant to drive bucketmetad.
package main

import (
	"context"
	"os/signal"
	"syscall"

	blobconfig "github.com/cubefs/cubefs/blobstore/common/config"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/log"

	"github.com/cubefs/bucketmetad/internal/config"
	"github.com/cubefs/bucketmetad/internal/logging"
	"github.com/cubefs/bucketmetad/worker"
)

func main() {
	blobconfig.Init("f", "", "server.json")

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatal(errors.Detail(err))
	}
	logging.Setup(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	w, err := worker.Dial(ctx, cfg.MasterAddr, cfg.MetadataPath)
	if err != nil {
		log.Fatal("worker: dial master:", err)
	}
	defer w.Close()

	log.Info("worker: connected to", cfg.MasterAddr)
	<-ctx.Done()
}
