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
	"testing"
)

func TestEnsureSchemaRunsEveryStatementIdempotently(t *testing.T) {
	var stmts []recordedStatement
	factory := newFakeFactory(&stmts)

	if err := EnsureSchema(context.Background(), factory); err != nil {
		t.Fatal(err)
	}
	if len(stmts) != len(schemaStatements) {
		t.Fatalf("got %d statements, want %d", len(stmts), len(schemaStatements))
	}

	// Running it again against the same (fake) database must not fail —
	// every statement is IF NOT EXISTS.
	if err := EnsureSchema(context.Background(), factory); err != nil {
		t.Fatal(err)
	}
}

func TestDropAllDataRunsDetachDelete(t *testing.T) {
	var stmts []recordedStatement
	factory := newFakeFactory(&stmts)

	if err := DropAllData(context.Background(), factory); err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].cypher != dropAllStatement {
		t.Fatalf("got statements %+v, want exactly one DETACH DELETE", stmts)
	}
}
