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

package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/crates-graph/painter/internal/analyzer"
	"github.com/crates-graph/painter/internal/index"
	"github.com/crates-graph/painter/internal/semver"
)

// fakeResult always reports success; these tests care about which
// statements were run, not about driving real server state.
type fakeResult struct{}

func (fakeResult) Err() error { return nil }

type recordedStatement struct {
	cypher string
	params map[string]any
}

// fakeTx records every statement it's asked to run.
type fakeTx struct {
	stmts *[]recordedStatement
}

func (tx *fakeTx) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	*tx.stmts = append(*tx.stmts, recordedStatement{cypher, params})
	return fakeResult{}, nil
}

// fakeSession runs work immediately against a fakeTx, no real retry
// semantics needed since nothing ever fails.
type fakeSession struct {
	stmts *[]recordedStatement
}

func (s *fakeSession) ExecuteWrite(ctx context.Context, work func(tx Transaction) (any, error)) (any, error) {
	return work(&fakeTx{stmts: s.stmts})
}

func (s *fakeSession) Close(ctx context.Context) error { return nil }

func newFakeFactory(stmts *[]recordedStatement) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return &fakeSession{stmts: stmts}, nil
	}
}

func TestIngestIndexMergesVersionAndDependency(t *testing.T) {
	var stmts []recordedStatement
	ing := &Ingestor{NewSession: newFakeFactory(&stmts)}

	v, err := semver.Parse("1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	records := []index.Record{
		{
			Name:       "foo",
			VersionRaw: "1.2.3",
			Version:    v,
			Dependencies: []index.Dependency{
				{RequiredCrateName: "bar", Requirement: "^1", Kind: index.KindNormal},
			},
		},
	}
	if errs := ing.IngestIndex(context.Background(), records); errs.Len() != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(stmts) != 2 {
		t.Fatalf("want 2 statements (version merge + dependency merge), got %d: %+v", len(stmts), stmts)
	}
	if stmts[0].params["crate"] != "foo" || stmts[0].params["version"] != "1.2.3" {
		t.Errorf("version merge params = %+v", stmts[0].params)
	}
	if stmts[1].params["depCrate"] != "bar" {
		t.Errorf("dependency merge params = %+v", stmts[1].params)
	}
}

func TestIngestIndexMarksHighestNonPrereleaseAsLatest(t *testing.T) {
	var stmts []recordedStatement
	ing := &Ingestor{NewSession: newFakeFactory(&stmts)}

	v100, _ := semver.Parse("1.0.0")
	v120, _ := semver.Parse("1.2.0")
	v200beta, _ := semver.Parse("2.0.0-beta.1")
	records := []index.Record{
		{Name: "foo", VersionRaw: "1.0.0", Version: v100},
		{Name: "foo", VersionRaw: "1.2.0", Version: v120},
		{Name: "foo", VersionRaw: "2.0.0-beta.1", Version: v200beta},
	}
	if errs := ing.IngestIndex(context.Background(), records); errs.Len() != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(stmts) != 3 {
		t.Fatalf("want 3 version-merge statements, got %d", len(stmts))
	}
	want := map[string]bool{"1.0.0": false, "1.2.0": true, "2.0.0-beta.1": false}
	for _, s := range stmts {
		version := s.params["version"].(string)
		if s.params["latest"] != want[version] {
			t.Errorf("version %s: latest = %v, want %v", version, s.params["latest"], want[version])
		}
	}
}

func TestIngestIndexBatchesAcrossMultipleTransactions(t *testing.T) {
	var stmts []recordedStatement
	ing := &Ingestor{NewSession: newFakeFactory(&stmts), BatchSize: 1}

	v, _ := semver.Parse("1.0.0")
	records := []index.Record{
		{Name: "a", VersionRaw: "1.0.0", Version: v},
		{Name: "b", VersionRaw: "1.0.0", Version: v},
	}
	if errs := ing.IngestIndex(context.Background(), records); errs.Len() != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(stmts) != 2 {
		t.Fatalf("want 2 version-merge statements, got %d", len(stmts))
	}
}

func TestIngestInvocationsMergesCalleeCrateAndEdge(t *testing.T) {
	var stmts []recordedStatement
	ing := &Ingestor{NewSession: newFakeFactory(&stmts)}

	edges := []analyzer.Edge{
		{CallerSymbol: "foo::a", CalleeSymbol: "bar::b", CalleeCrate: "bar"},
	}
	if err := ing.IngestInvocations(context.Background(), "foo", "1.0.0", edges); err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("want 1 statement, got %d", len(stmts))
	}
	if stmts[0].params["calleeCrate"] != "bar" {
		t.Errorf("params = %+v", stmts[0].params)
	}
}

// failingThenOkSession fails with a transient error on its first use,
// then succeeds — exercising the retry path.
type failingThenOkSession struct {
	calls *int
	stmts *[]recordedStatement
}

type retriableErr struct{}

func (retriableErr) Error() string   { return "deadlock detected" }
func (retriableErr) IsRetriable() bool { return true }

func (s *failingThenOkSession) ExecuteWrite(ctx context.Context, work func(tx Transaction) (any, error)) (any, error) {
	*s.calls++
	if *s.calls == 1 {
		return nil, retriableErr{}
	}
	return work(&fakeTx{stmts: s.stmts})
}

func (s *failingThenOkSession) Close(ctx context.Context) error { return nil }

func TestIngestIndexRetriesTransientError(t *testing.T) {
	var stmts []recordedStatement
	calls := 0
	ing := &Ingestor{
		NewSession: func(ctx context.Context) (Session, error) {
			return &failingThenOkSession{calls: &calls, stmts: &stmts}, nil
		},
		RetryAttempts: 3,
	}
	v, _ := semver.Parse("1.0.0")
	records := []index.Record{{Name: "a", VersionRaw: "1.0.0", Version: v}}
	if errs := ing.IngestIndex(context.Background(), records); errs.Len() != 0 {
		t.Fatalf("unexpected errors after retry: %v", errs)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one failure, one success)", calls)
	}
}

// nonTransientSession always fails with a non-retriable error —
// mimicking a constraint violation, which must abort immediately.
type nonTransientSession struct {
	calls *int
}

func (s *nonTransientSession) ExecuteWrite(ctx context.Context, work func(tx Transaction) (any, error)) (any, error) {
	*s.calls++
	return nil, errors.New("constraint violation")
}

func (s *nonTransientSession) Close(ctx context.Context) error { return nil }

func TestIngestIndexDoesNotRetryNonTransientError(t *testing.T) {
	calls := 0
	ing := &Ingestor{
		NewSession: func(ctx context.Context) (Session, error) {
			return &nonTransientSession{calls: &calls}, nil
		},
		RetryAttempts: 5,
	}
	v, _ := semver.Parse("1.0.0")
	records := []index.Record{{Name: "a", VersionRaw: "1.0.0", Version: v}}
	errs := ing.IngestIndex(context.Background(), records)
	if errs.Len() != 1 {
		t.Fatalf("want 1 recorded error, got %d", errs.Len())
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-transient errors must not retry)", calls)
	}
}
