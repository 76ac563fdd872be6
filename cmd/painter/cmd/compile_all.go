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

package cmd

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/crates-graph/painter/internal/analyzer"
	"github.com/crates-graph/painter/internal/build"
	"github.com/crates-graph/painter/internal/callir"
	"github.com/crates-graph/painter/internal/ledger"
	"github.com/crates-graph/painter/internal/metrics"
	"github.com/crates-graph/painter/internal/orchestrate"
	"github.com/crates-graph/painter/internal/perrors"
	"github.com/crates-graph/painter/internal/symbolinfo"
	"github.com/crates-graph/painter/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
)

func newCompileAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile-all",
		Short: "Build every unpacked crate source and analyze its bitcode for call edges",
		Long: `compile-all walks sources-dir for {name}-{version} directories, runs the
compiler driver against each under a bounded worker pool, and for every
build that succeeds, walks the resulting LLVM bitcode to emit a calls.csv
sidecar of cross-crate call edges under artifacts-dir.`,
		RunE: runCompileAll,
	}
	return cmd
}

func runCompileAll(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	shutdownTracing, err := tracing.Setup(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer shutdownTracing(ctx)

	var reg *prometheus.Registry
	var pipelineMetrics *metrics.Pipeline
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		pipelineMetrics = metrics.NewPipeline(reg)
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	var led *ledger.Store
	if cfg.LedgerDir != "" {
		led, err = ledger.Open(cfg.LedgerDir)
		if err != nil {
			return err
		}
		defer led.Close()
	}

	driver := &build.Driver{}
	an := &analyzer.Analyzer{
		Dis:           callir.LLVMDis("llvm-dis"),
		Filter:        symbolinfo.DefaultFilter(),
		IRVersion:     cfg.IRVersion,
		MaxModuleSize: cfg.MaxModuleSize,
	}

	orch := &orchestrate.Orchestrator{
		Driver:       ledgerRecordingBuilder{driver, led},
		Analyzer:     an,
		SourcesDir:   cfg.SourcesDir,
		ArtifactsDir: cfg.ArtifactsDir,
		Workers:      cfg.Workers,
	}

	start := time.Now()
	errs := orch.CompileAll(ctx)
	logPhaseDuration("compile-all", start)

	snap := orch.Counters.Snapshot()
	log.Printf("compile-all: %d builds ok, %d failed, %d analyses ok, %d failed, %d edges emitted, %d lost",
		snap.BuildsOK, snap.BuildsFailed, snap.AnalysesOK, snap.AnalysesFailed, snap.EdgesEmitted, snap.EdgesLost)
	if pipelineMetrics != nil {
		pipelineMetrics.BuildsOK.Add(float64(snap.BuildsOK))
		pipelineMetrics.BuildsFailed.Add(float64(snap.BuildsFailed))
		pipelineMetrics.AnalysesOK.Add(float64(snap.AnalysesOK))
		pipelineMetrics.AnalysesFailed.Add(float64(snap.AnalysesFailed))
		pipelineMetrics.EdgesEmitted.Add(float64(snap.EdgesEmitted))
		pipelineMetrics.EdgesLost.Add(float64(snap.EdgesLost))
	}

	if errs.Len() > 0 {
		log.Printf("compile-all: %d items failed:\n%s", errs.Len(), errs.Error())
	}
	return nil
}

// ledgerRecordingBuilder wraps a *build.Driver to record every build's
// outcome in the ledger. compile-all is a full rebuild on every
// invocation (§1 Non-goals: "not an incremental updater"); the ledger
// exists so operators can inspect which crate/versions failed and
// replay just those, not so a rerun can skip already-built ones. A nil
// ledger disables recording entirely.
type ledgerRecordingBuilder struct {
	*build.Driver
	ledger *ledger.Store
}

func (b ledgerRecordingBuilder) Build(ctx context.Context, srcDir, artifactsRoot string) (*build.Outcome, error) {
	outcome, err := b.Driver.Build(ctx, srcDir, artifactsRoot)
	if b.ledger != nil {
		if name, version, ok := build.ParseDirName(filepath.Base(srcDir)); ok && err == nil {
			b.ledger.Record(ledger.Status{
				Phase: perrors.PhaseBuild, Crate: name, Version: version,
				Succeeded: !outcome.Failed, Reason: outcome.FailureReason,
			})
		}
	}
	return outcome, err
}
