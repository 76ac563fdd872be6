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

package orchestrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/crates-graph/painter/internal/analyzer"
	"github.com/crates-graph/painter/internal/build"
	"github.com/crates-graph/painter/internal/perrors"
	"github.com/crates-graph/painter/internal/tracing"
)

// Builder is the slice of *build.Driver the orchestrator needs; tests
// supply a fake so CompileAll can be exercised without spawning cargo.
type Builder interface {
	Build(ctx context.Context, srcDir, artifactsRoot string) (*build.Outcome, error)
}

// Analyzing is the slice of *analyzer.Analyzer the orchestrator needs.
type Analyzing interface {
	Analyze(ctx context.Context, crate, version, bitcodePath string) (*analyzer.Result, error)
}

// Ingesting is the slice of *graph.Ingestor the orchestrator needs.
// Index ingest is not part of this interface: it runs once as part of
// create-fresh-db (§6), outside any worker pool, directly against a
// graph.Ingestor.
type Ingesting interface {
	IngestInvocations(ctx context.Context, crate, version string, edges []analyzer.Edge) error
}

// Orchestrator wires the compiler driver, analyzer and graph ingestor
// together for two of the external operations (§6): compile-all, run
// over a sources tree under a bounded worker pool, and
// export-all-neo4j. create-fresh-db does not go through it.
type Orchestrator struct {
	Driver   Builder
	Analyzer Analyzing
	Ingestor Ingesting

	// RunID correlates every Event this Orchestrator emits with one
	// invocation, so a log aggregator can group a single compile-all or
	// export-all-neo4j run together. Defaults to a fresh NewRunID if
	// left empty.
	RunID string

	SourcesDir   string
	ArtifactsDir string

	// Workers bounds concurrent compiler-driver invocations. Zero means
	// GOMAXPROCS, matching the resource model's default.
	Workers int

	// Progress, if non-nil, receives one Event per crate/version per
	// stage. Sends are non-blocking: a slow or absent consumer never
	// stalls the pipeline.
	Progress chan<- Event

	Counters Counters
}

func (o *Orchestrator) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o *Orchestrator) emit(ev Event) {
	if o.Progress == nil {
		return
	}
	if ev.RunID == "" {
		ev.RunID = o.runID()
	}
	select {
	case o.Progress <- ev:
	default:
	}
}

func (o *Orchestrator) runID() string {
	if o.RunID == "" {
		o.RunID = NewRunID()
	}
	return o.RunID
}

// CompileAll runs the build-then-analyze pipeline (C4 + C3) over every
// {name}-{version} directory directly under SourcesDir. Per-item
// failures are accumulated and returned together at the end; the run
// only stops early if ctx is cancelled.
func (o *Orchestrator) CompileAll(ctx context.Context) *perrors.List {
	o.runID()
	errs := &perrors.List{}

	entries, err := os.ReadDir(o.SourcesDir)
	if err != nil {
		errs.Add(perrors.Wrap(perrors.Item{Phase: perrors.PhaseBuild}, err))
		return errs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())

	for _, entry := range entries {
		if gctx.Err() != nil {
			break // cancelled: start no further items
		}
		if !entry.IsDir() {
			continue
		}
		dirName := entry.Name()
		g.Go(func() error {
			o.compileOne(gctx, dirName, errs)
			return nil
		})
	}
	// The returned error is always nil by construction (compileOne never
	// returns an error to the group); Wait only blocks for completion.
	_ = g.Wait()
	return errs
}

func (o *Orchestrator) compileOne(ctx context.Context, dirName string, errs *perrors.List) {
	name, version, ok := build.ParseDirName(dirName)
	if !ok {
		return
	}
	srcDir := filepath.Join(o.SourcesDir, dirName)

	buildCtx, buildSpan := tracing.Start(ctx, "build", name, version)
	outcome, err := o.Driver.Build(buildCtx, srcDir, o.ArtifactsDir)
	if err != nil {
		buildSpan.RecordError(err)
		buildSpan.End()
		o.Counters.addBuild(false)
		errs.Add(perrors.Wrap(perrors.Item{Crate: name, Version: version, Phase: perrors.PhaseBuild}, err))
		o.emit(Event{Crate: name, Version: version, Stage: StageBuild, Failed: true, Reason: err.Error()})
		return
	}
	if outcome.Failed {
		buildSpan.RecordError(buildFailure(outcome.FailureReason))
		buildSpan.End()
		o.Counters.addBuild(false)
		errs.Add(perrors.Wrap(perrors.Item{Crate: name, Version: version, Phase: perrors.PhaseBuild},
			buildFailure(outcome.FailureReason)))
		o.emit(Event{Crate: name, Version: version, Stage: StageBuild, Failed: true, Reason: outcome.FailureReason})
		return
	}
	buildSpan.End()
	o.Counters.addBuild(true)
	o.emit(Event{Crate: name, Version: version, Stage: StageBuild})

	if o.Analyzer == nil || len(outcome.BitcodeFiles) == 0 {
		return
	}

	merged := &analyzer.Result{Crate: name, Version: version}
	artifactDir := filepath.Join(o.ArtifactsDir, dirName)
	analyzed := 0
	for _, bc := range outcome.BitcodeFiles {
		analyzeCtx, analyzeSpan := tracing.Start(ctx, "analyze", name, version)
		res, err := o.Analyzer.Analyze(analyzeCtx, name, version, bc)
		if err != nil {
			analyzeSpan.RecordError(err)
			analyzeSpan.End()
			o.Counters.addAnalysis(false, 0, 0)
			errs.Add(perrors.Wrap(perrors.Item{Crate: name, Version: version, Phase: perrors.PhaseAnalyze}, err))
			o.emit(Event{Crate: name, Version: version, Stage: StageAnalyze, Failed: true, Reason: err.Error()})
			continue
		}
		analyzeSpan.End()
		analyzed++
		merged.Edges = append(merged.Edges, res.Edges...)
		merged.IntraCrate = append(merged.IntraCrate, res.IntraCrate...)
		merged.LostEdges += res.LostEdges
	}
	if analyzed == 0 {
		return // every module failed: no sidecar, so it never reads as "analyzed, zero edges"
	}

	if err := analyzer.WriteSidecar(artifactDir, merged); err != nil {
		errs.Add(perrors.Wrap(perrors.Item{Crate: name, Version: version, Phase: perrors.PhaseAnalyze}, err))
		o.emit(Event{Crate: name, Version: version, Stage: StageAnalyze, Failed: true, Reason: err.Error()})
		return
	}
	o.Counters.addAnalysis(true, len(merged.Edges), merged.LostEdges)
	o.emit(Event{Crate: name, Version: version, Stage: StageAnalyze})
}

type buildFailure string

func (b buildFailure) Error() string { return string(b) }

// ExportAllNeo4j walks every sidecar file under ArtifactsDir and
// ingests its INVOKES edges into the graph store (C6). The registry
// index itself is seeded by create-fresh-db (§6), not here: by the
// time export-all-neo4j runs, the Crate/Version/DEPENDS_ON facts the
// INVOKES merge matches against must already exist. A crate whose
// transient-error retries run out is recorded and the walk moves on;
// any other ingest error (a constraint violation, cancellation) is
// recorded and stops the walk.
func (o *Orchestrator) ExportAllNeo4j(ctx context.Context) *perrors.List {
	o.runID()
	errs := &perrors.List{}

	entries, err := os.ReadDir(o.ArtifactsDir)
	if err != nil {
		errs.Add(perrors.Wrap(perrors.Item{Phase: perrors.PhaseIngest}, err))
		return errs
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, version, ok := build.ParseDirName(entry.Name())
		if !ok {
			continue
		}
		sidecarPath := filepath.Join(o.ArtifactsDir, entry.Name(), "calls.csv")
		edges, _, err := analyzer.ReadSidecar(sidecarPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs.Add(perrors.Wrap(perrors.Item{Crate: name, Version: version, Phase: perrors.PhaseIngest}, err))
			continue
		}
		ingestCtx, ingestSpan := tracing.Start(ctx, "ingest", name, version)
		err = o.Ingestor.IngestInvocations(ingestCtx, name, version, edges)
		if err != nil {
			ingestSpan.RecordError(err)
		}
		ingestSpan.End()
		if err != nil {
			errs.Add(err)
			o.emit(Event{Crate: name, Version: version, Stage: StageIngest, Failed: true, Reason: err.Error()})
			var te interface{ IsRetriable() bool }
			if !errors.As(err, &te) || !te.IsRetriable() {
				return errs
			}
			continue
		}
		o.emit(Event{Crate: name, Version: version, Stage: StageIngest})
	}
	return errs
}
