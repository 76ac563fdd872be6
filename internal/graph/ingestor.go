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
	"fmt"
	"math/rand"
	"time"

	"github.com/crates-graph/painter/internal/analyzer"
	"github.com/crates-graph/painter/internal/index"
	"github.com/crates-graph/painter/internal/perrors"
	"github.com/crates-graph/painter/internal/semver"
)

// Ingestor drives MERGE statements against the graph store. It never
// holds a live Session across calls; each batch gets its own, matching
// the driver's guidance that sessions are cheap and not safe to share
// across goroutines.
type Ingestor struct {
	NewSession SessionFactory

	// BatchSize bounds how many records are folded into one write
	// transaction. A smaller value trades throughput for shorter locks
	// and cheaper retries.
	BatchSize int
	// RetryAttempts bounds retries of a batch after a transient error
	// (deadlock, leader change). A constraint violation is never
	// transient and is returned immediately without retrying.
	RetryAttempts int
}

const defaultBatchSize = 500
const defaultRetryAttempts = 5

func (ing *Ingestor) batchSize() int {
	if ing.BatchSize > 0 {
		return ing.BatchSize
	}
	return defaultBatchSize
}

func (ing *Ingestor) retryAttempts() int {
	if ing.RetryAttempts > 0 {
		return ing.RetryAttempts
	}
	return defaultRetryAttempts
}

// IngestIndex writes Crate, Version, VERSION_OF and DEPENDS_ON facts
// for every record, batching BatchSize at a time. A failed batch is
// recorded in the returned *perrors.List once per record in it. A batch
// whose transient-error retries run out does not stop the run; any
// other error (a constraint violation, cancellation) stops the ingest
// and the remaining batches are not written.
func (ing *Ingestor) IngestIndex(ctx context.Context, records []index.Record) *perrors.List {
	latest := latestFlags(records)
	errs := &perrors.List{}
	for start := 0; start < len(records); start += ing.batchSize() {
		end := start + ing.batchSize()
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		if err := ing.withRetry(ctx, func(tx Transaction) error {
			return writeIndexBatch(ctx, tx, batch, latest)
		}); err != nil {
			for _, rec := range batch {
				errs.Add(perrors.Wrap(perrors.Item{
					Crate:   rec.Name,
					Version: rec.VersionRaw,
					Phase:   perrors.PhaseIngest,
				}, err))
			}
			var te transientError
			if !errors.As(err, &te) || !te.IsRetriable() {
				return errs
			}
		}
	}
	return errs
}

// latestFlags reports, for every record, whether it is the highest
// non-prerelease version among the other records sharing its crate
// name, per semver.IsLatest. Computed once over the whole input so the
// flag is correct regardless of how records are later batched.
func latestFlags(records []index.Record) map[string]bool {
	byCrate := map[string][]int{}
	for i, rec := range records {
		byCrate[rec.Name] = append(byCrate[rec.Name], i)
	}
	flags := make(map[string]bool, len(records))
	for _, idxs := range byCrate {
		versions := make([]semver.Version, len(idxs))
		for j, i := range idxs {
			versions[j] = records[i].Version
		}
		for j, i := range idxs {
			others := make([]semver.Version, 0, len(versions)-1)
			others = append(others, versions[:j]...)
			others = append(others, versions[j+1:]...)
			flags[recordKey(records[i])] = semver.IsLatest(versions[j], others)
		}
	}
	return flags
}

func recordKey(rec index.Record) string {
	return rec.Name + "@" + rec.VersionRaw
}

func writeIndexBatch(ctx context.Context, tx Transaction, batch []index.Record, latest map[string]bool) error {
	for _, rec := range batch {
		res, err := tx.Run(ctx, mergeVersionCypher, map[string]any{
			"crate":   rec.Name,
			"version": rec.VersionRaw,
			"major":   int64(rec.Version.Major),
			"minor":   int64(rec.Version.Minor),
			"patch":   int64(rec.Version.Patch),
			"pre":     rec.Version.Pre,
			"latest":  latest[recordKey(rec)],
		})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		for _, dep := range rec.Dependencies {
			res, err := tx.Run(ctx, mergeDependsOnCypher, map[string]any{
				"crate":        rec.Name,
				"version":      rec.VersionRaw,
				"depCrate":     dep.RequiredCrateName,
				"requirement":  dep.Requirement,
				"kind":         string(dep.Kind),
				"optional":     dep.Optional,
			})
			if err != nil {
				return err
			}
			if err := res.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// IngestInvocations writes INVOKES edges (and the callee Crate nodes
// they require to exist) for one crate/version's analysis result.
func (ing *Ingestor) IngestInvocations(ctx context.Context, crate, version string, edges []analyzer.Edge) error {
	for start := 0; start < len(edges); start += ing.batchSize() {
		end := start + ing.batchSize()
		if end > len(edges) {
			end = len(edges)
		}
		batch := edges[start:end]
		if err := ing.withRetry(ctx, func(tx Transaction) error {
			return writeInvocationBatch(ctx, tx, crate, version, batch)
		}); err != nil {
			return perrors.Wrap(perrors.Item{Crate: crate, Version: version, Phase: perrors.PhaseIngest}, err)
		}
	}
	return nil
}

func writeInvocationBatch(ctx context.Context, tx Transaction, crate, version string, batch []analyzer.Edge) error {
	for _, e := range batch {
		res, err := tx.Run(ctx, mergeInvokesCypher, map[string]any{
			"callerCrate":   crate,
			"callerVersion": version,
			"callerSymbol":  e.CallerSymbol,
			"calleeCrate":   e.CalleeCrate,
			"calleeSymbol":  e.CalleeSymbol,
		})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
	}
	return nil
}

const mergeVersionCypher = `
MERGE (c:Crate {name: $crate})
MERGE (v:Version {crate: $crate, version: $version})
ON CREATE SET v.major = $major, v.minor = $minor, v.patch = $patch, v.pre = $pre
SET v.latest = $latest
MERGE (v)-[:VERSION_OF]->(c)
`

const mergeDependsOnCypher = `
MATCH (v:Version {crate: $crate, version: $version})
MERGE (d:Crate {name: $depCrate})
MERGE (v)-[r:DEPENDS_ON]->(d)
ON CREATE SET r.requirement = $requirement, r.kind = $kind, r.optional = $optional
`

const mergeInvokesCypher = `
MATCH (v:Version {crate: $callerCrate, version: $callerVersion})
MERGE (callee:Crate {name: $calleeCrate})
MERGE (v)-[e:INVOKES {caller_symbol: $callerSymbol, callee_symbol: $calleeSymbol}]->(callee)
`

// withRetry opens one session per attempt (the driver's sessions are
// not meant to be reused after an error) and retries transient
// failures with jittered exponential backoff.
func (ing *Ingestor) withRetry(ctx context.Context, work func(tx Transaction) error) error {
	var lastErr error
	for attempt := 0; attempt < ing.retryAttempts(); attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			backoff += time.Duration(rand.Int63n(int64(backoff) + 1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		sess, err := ing.NewSession(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = sess.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
			return nil, work(tx)
		})
		sess.Close(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
	}
	return fmt.Errorf("graph: exhausted %d attempts: %w", ing.retryAttempts(), lastErr)
}

// transientError is the interface a real neo4j driver error satisfies
// when it is safe to retry (deadlock detected, leader switchover). The
// fallback treats an unrecognized error as non-transient, matching the
// "a constraint violation aborts the whole run" requirement.
type transientError interface {
	IsRetriable() bool
}

func isTransient(err error) bool {
	if te, ok := err.(transientError); ok {
		return te.IsRetriable()
	}
	return false
}
