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

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewDriverSessionFactory adapts a live neo4j.DriverWithContext into
// the SessionFactory the Ingestor needs, so production code never
// imports the driver package directly outside this file.
func NewDriverSessionFactory(driver neo4j.DriverWithContext, database string) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		sess := driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: database,
		})
		return &driverSession{sess}, nil
	}
}

type driverSession struct {
	neo4j.SessionWithContext
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work func(tx Transaction) (any, error)) (any, error) {
	return s.SessionWithContext.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&driverTransaction{tx})
	})
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.SessionWithContext.Close(ctx)
}

type driverTransaction struct {
	tx neo4j.ManagedTransaction
}

func (t *driverTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &driverResult{res}, nil
}

type driverResult struct {
	res neo4j.ResultWithContext
}

// Err consumes the result to surface any server-side error. Every
// statement run through this package is a MERGE executed purely for
// its write effect, so draining the result stream (rather than reading
// records) is the right thing to do here.
func (r *driverResult) Err() error {
	_, err := r.res.Consume(context.Background())
	return err
}

// NewDriver dials a Bolt endpoint with basic auth, matching the
// addr/user/pass triple the CLI takes for export-all-neo4j.
func NewDriver(addr, user, pass string) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(addr, neo4j.BasicAuth(user, pass, ""))
}
