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

package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/daemonize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	blobconfig "github.com/cubefs/cubefs/blobstore/common/config"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/log"

	"github.com/cubefs/bucketmetad/internal/config"
	"github.com/cubefs/bucketmetad/internal/logging"
	"github.com/cubefs/bucketmetad/kvstore"
	"github.com/cubefs/bucketmetad/master"
)

// bucketmetadDaemonChildEnv marks a process as the already-forked child
// so it doesn't try to daemonize itself a second time.
const bucketmetadDaemonChildEnv = "BUCKETMETAD_DAEMON_CHILD=1"

func main() {
	blobconfig.Init("f", "", "server.json")

	cfg, err := config.LoadMaster()
	if err != nil {
		log.Fatal(errors.Detail(err))
	}
	logging.Setup(cfg.LogLevel)
	modifyOpenFiles(cfg.MaxOpenFiles)

	if cfg.Daemonize && !isDaemonChild() {
		daemonizeSelf()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := master.Open(ctx, cfg.MetadataPath, kvstore.Option{CreateIfMissing: true})
	if err != nil {
		reportStartupFailure(err)
		log.Fatal("master: open failed:", err)
	}
	defer state.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		reportStartupFailure(err)
		log.Fatal("master: listen failed:", err)
	}

	reportStartupSuccess()
	log.Info("master: serving on", cfg.ListenAddr)

	var g errgroup.Group
	g.Go(func() error {
		return state.NewRPCServer(rate.Limit(0), 0).Serve(ctx, ln)
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("master: serve failed:", err)
	}
}

func isDaemonChild() bool {
	for _, e := range os.Environ() {
		if e == bucketmetadDaemonChildEnv {
			return true
		}
	}
	return false
}

// daemonizeSelf re-execs the current binary in the background and waits
// for the child to report readiness over the status pipe, the way the
// teacher's go.mod pulls in daemonize for exactly this purpose.
func daemonizeSelf() {
	path, err := os.Executable()
	if err != nil {
		log.Fatal("master: resolve executable path:", err)
	}
	env := append(os.Environ(), bucketmetadDaemonChildEnv)
	if err := daemonize.Run(path, os.Args[1:], env, os.Stdout); err != nil {
		log.Fatal("master: daemonize:", err)
	}
}

func reportStartupSuccess() {
	if isDaemonChild() {
		daemonize.SignalOutcome(nil)
	}
}

func reportStartupFailure(err error) {
	if isDaemonChild() {
		daemonize.SignalOutcome(err)
	}
}

func modifyOpenFiles(limit uint64) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Fatalf("master: getting rlimit failed: %s", err)
	}
	if rLimit.Cur >= limit && rLimit.Max >= limit {
		return
	}
	rLimit.Cur, rLimit.Max = limit, limit
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Fatalf("master: setting rlimit failed: %s", err)
	}
}
