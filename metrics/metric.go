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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var Registry = prometheus.NewRegistry()

var (
	OpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bucketmetad",
		Name:      "op_latency_seconds",
		Help:      "Latency of a façade operation, by op and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "outcome"})

	Refcount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bucketmetad",
		Name:      "session_refcount",
		Help:      "Outstanding namespace handles held by a worker session.",
	}, []string{"worker"})

	Reconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bucketmetad",
		Name:      "session_reconnects_total",
		Help:      "Session reconnects, by whether they were deferred for in-flight operations.",
	}, []string{"worker", "deferred"})

	ScanCursors = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bucketmetad",
		Name:      "open_scan_cursors",
		Help:      "Scan cursors currently open on the master, per connection.",
	}, []string{"conn"})
)

func init() {
	Registry.MustRegister(OpLatency, Refcount, Reconnects, ScanCursors)
}

// ObserveOp records one façade operation's latency and outcome. Callers
// defer this with time.Now() captured at entry.
func ObserveOp(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OpLatency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
