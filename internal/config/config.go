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

// Package config loads the master and worker binaries' JSON configuration
// the way the teacher's cmd.go does: a -f flag naming the file, defaults
// filled in for anything left zero after load.
package config

import (
	"github.com/cubefs/cubefs/blobstore/common/config"
	"github.com/cubefs/cubefs/blobstore/util/log"
)

// MasterConfig is bucketmetad-master's server.json.
type MasterConfig struct {
	// MetadataPath holds the RocksDB data directory and manifest.json;
	// both live side by side under it.
	MetadataPath string `json:"metadata_path"`
	// ListenAddr is the RPC transport's bind address.
	ListenAddr string `json:"listen_addr"`
	// Daemonize backgrounds the process once the store and listener are
	// up, via github.com/jacobsa/daemonize.
	Daemonize bool `json:"daemonize"`
	// MaxOpenFiles is applied to RLIMIT_NOFILE before the store opens,
	// same rationale as the teacher's modifyOpenFiles.
	MaxOpenFiles uint64 `json:"max_open_files"`

	LogLevel log.Level `json:"log_level"`
}

// WorkerConfig is bucketmetad-worker's server.json.
type WorkerConfig struct {
	// MasterAddr is the master's RPC listen address.
	MasterAddr string `json:"master_addr"`
	// MetadataPath must point at the same directory the master publishes
	// manifest.json into; workers only ever read it.
	MetadataPath string `json:"metadata_path"`

	LogLevel log.Level `json:"log_level"`
}

const (
	defaultMetadataPath = "./run/bucketmetad"
	defaultListenAddr   = "127.0.0.1:9990"
	defaultMaxOpenFiles = 102400
)

// LoadMaster reads server.json (the filename registered via config.Init
// in the calling binary's main) into a MasterConfig and fills in defaults
// for anything left unset.
func LoadMaster() (*MasterConfig, error) {
	cfg := &MasterConfig{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = defaultMetadataPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.MaxOpenFiles == 0 {
		cfg.MaxOpenFiles = defaultMaxOpenFiles
	}
	return cfg, nil
}

// LoadWorker reads server.json into a WorkerConfig and fills in defaults.
func LoadWorker() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if cfg.MasterAddr == "" {
		cfg.MasterAddr = defaultListenAddr
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = defaultMetadataPath
	}
	return cfg, nil
}
