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

// Package orchestrate implements the orchestrator (C7): it walks the
// unpacked sources tree, runs the compiler driver and analyzer for
// each {name}-{version} directory under a bounded worker pool, and
// reports progress as it goes.
package orchestrate

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Stage names a pipeline phase an Event reports on.
type Stage string

const (
	StageBuild   Stage = "build"
	StageAnalyze Stage = "analyze"
	StageIngest  Stage = "ingest"
)

// Event is sent to Progress (if set) once per crate/version per stage.
type Event struct {
	RunID          string
	Crate, Version string
	Stage          Stage
	Failed         bool
	Reason         string
}

// NewRunID generates an identifier correlating every Event emitted by
// one Orchestrator run, so a log aggregator can group
// a single compile-all or export-all-neo4j invocation together.
func NewRunID() string {
	return uuid.NewString()
}

// Counters tallies outcomes across the whole run. Every field is
// updated with atomic ops since workers share one instance.
type Counters struct {
	BuildsOK       int64
	BuildsFailed   int64
	AnalysesOK     int64
	AnalysesFailed int64
	EdgesEmitted   int64
	EdgesLost      int64
}

func (c *Counters) addBuild(ok bool) {
	if ok {
		atomic.AddInt64(&c.BuildsOK, 1)
	} else {
		atomic.AddInt64(&c.BuildsFailed, 1)
	}
}

func (c *Counters) addAnalysis(ok bool, edgesEmitted, edgesLost int) {
	if ok {
		atomic.AddInt64(&c.AnalysesOK, 1)
	} else {
		atomic.AddInt64(&c.AnalysesFailed, 1)
	}
	atomic.AddInt64(&c.EdgesEmitted, int64(edgesEmitted))
	atomic.AddInt64(&c.EdgesLost, int64(edgesLost))
}

// Snapshot returns a copy safe to read without racing the workers.
func (c *Counters) Snapshot() Counters {
	return Counters{
		BuildsOK:       atomic.LoadInt64(&c.BuildsOK),
		BuildsFailed:   atomic.LoadInt64(&c.BuildsFailed),
		AnalysesOK:     atomic.LoadInt64(&c.AnalysesOK),
		AnalysesFailed: atomic.LoadInt64(&c.AnalysesFailed),
		EdgesEmitted:   atomic.LoadInt64(&c.EdgesEmitted),
		EdgesLost:      atomic.LoadInt64(&c.EdgesLost),
	}
}
