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

// Package graph implements the graph ingestor (C6): it turns index
// records and per-crate analysis results into idempotent MERGE
// statements against a Neo4j instance reached over Bolt.
//
// The package never talks to the driver directly; everything goes
// through the small Session interface below so the ingestion logic can
// be exercised without a live database.
package graph

import "context"

// Session is the slice of neo4j.SessionWithContext that the ingestor
// needs. The real implementation is backed by
// github.com/neo4j/neo4j-go-driver/v5; tests supply a fake.
type Session interface {
	// ExecuteWrite runs work inside a single write transaction, retrying
	// on transient errors per the driver's own policy.
	ExecuteWrite(ctx context.Context, work func(tx Transaction) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// Transaction is the slice of neo4j.ManagedTransaction the ingestor
// needs.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Result is the slice of neo4j.ResultWithContext the ingestor needs:
// just enough to detect failures, since every statement here is a
// MERGE run for effect.
type Result interface {
	Err() error
}

// SessionFactory produces a new Session per logical unit of work (the
// driver's session objects are not meant to be shared across
// goroutines).
type SessionFactory func(ctx context.Context) (Session, error)
