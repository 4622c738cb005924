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

// Package logging adapts github.com/cubefs/cubefs/blobstore/util/log to a
// small Logger interface with info/warn/error/fatal levels, so callers
// that need to be testable (session, metadata) don't call the global log
// package directly.
package logging

import "github.com/cubefs/cubefs/blobstore/util/log"

type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

type blobstoreLogger struct{}

func (blobstoreLogger) Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func (blobstoreLogger) Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func (blobstoreLogger) Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
func (blobstoreLogger) Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }

// Default is the production Logger, backed by the package-level log
// configured by Setup.
var Default Logger = blobstoreLogger{}

// Setup configures the global log package's output level. Call this once
// at process startup after config is loaded.
func Setup(level log.Level) {
	log.SetOutputLevel(level)
}
