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

import "context"

// schemaStatements are run once, in order, by EnsureSchema. Every one
// uses IF NOT EXISTS so a fresh-db run and a resumed run behave the
// same way — create-fresh-db's whole job is to make this the first
// thing that happens against an empty database.
var schemaStatements = []string{
	`CREATE CONSTRAINT crate_name IF NOT EXISTS FOR (c:Crate) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT version_key IF NOT EXISTS FOR (v:Version) REQUIRE (v.crate, v.version) IS UNIQUE`,
	`CREATE INDEX version_crate IF NOT EXISTS FOR (v:Version) ON (v.crate)`,
	`CREATE INDEX version_latest IF NOT EXISTS FOR (v:Version) ON (v.latest)`,
	`CREATE INDEX invokes_caller_callee IF NOT EXISTS FOR ()-[r:INVOKES]-() ON (r.caller_symbol, r.callee_symbol)`,
}

// dropAllStatement removes every node and relationship, the first step
// create-fresh-db performs so a rerun always starts from an empty
// database rather than layering onto whatever was ingested before.
const dropAllStatement = `MATCH (n) DETACH DELETE n`

// DropAllData deletes every node and relationship in the target
// database. It is the first effect of create-fresh-db (§6): the graph
// store has no concept of "replace," so a fresh build first empties it.
func DropAllData(ctx context.Context, newSession SessionFactory) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	_, err = sess.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, dropAllStatement, nil)
		if err != nil {
			return nil, err
		}
		return nil, res.Err()
	})
	return err
}

// EnsureSchema creates the constraints and indexes the ingestor relies
// on for MERGE to be both correct and fast. It is safe to call
// repeatedly against the same database.
func EnsureSchema(ctx context.Context, newSession SessionFactory) error {
	sess, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	for _, stmt := range schemaStatements {
		_, err := sess.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return nil, res.Err()
		})
		if err != nil {
			return err
		}
	}
	return nil
}
