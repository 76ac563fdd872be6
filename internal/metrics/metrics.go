// Copyright 2024 Painter Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the pipeline's Prometheus metrics (C10):
// one set of counters mirroring orchestrate.Counters, registered once
// at process start and served over an optional HTTP endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the counters the orchestrator updates as it runs.
type Pipeline struct {
	BuildsOK       prometheus.Counter
	BuildsFailed   prometheus.Counter
	AnalysesOK     prometheus.Counter
	AnalysesFailed prometheus.Counter
	EdgesEmitted   prometheus.Counter
	EdgesLost      prometheus.Counter
}

// NewPipeline registers the pipeline metrics against reg. Passing a
// fresh *prometheus.Registry (rather than the global default) keeps
// repeated test setups from panicking on duplicate registration.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)
	return &Pipeline{
		BuildsOK: factory.NewCounter(prometheus.CounterOpts{
			Name: "painter_builds_ok_total",
			Help: "Crate/version builds that produced bitcode successfully.",
		}),
		BuildsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "painter_builds_failed_total",
			Help: "Crate/version builds that failed.",
		}),
		AnalysesOK: factory.NewCounter(prometheus.CounterOpts{
			Name: "painter_analyses_ok_total",
			Help: "Per-crate IR analyses that completed.",
		}),
		AnalysesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "painter_analyses_failed_total",
			Help: "Per-crate IR analyses that failed.",
		}),
		EdgesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "painter_edges_emitted_total",
			Help: "INVOKES edges written to sidecar files.",
		}),
		EdgesLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "painter_edges_lost_total",
			Help: "Call sites dropped because the callee could not be statically resolved.",
		}),
	}
}

// Serve starts an HTTP server exposing /metrics against reg and blocks
// until ctx is cancelled or the server fails for a reason other than
// a clean shutdown.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
