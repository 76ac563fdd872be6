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
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/crates-graph/painter/internal/graph"
	"github.com/crates-graph/painter/internal/orchestrate"
)

func newExportAllNeo4jCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-all-neo4j",
		Short: "Ingest every compiled call edge into Neo4j",
		Long: `export-all-neo4j walks artifacts-dir for calls.csv sidecars and MERGEs their
INVOKES edges into the configured Neo4j instance. It assumes create-fresh-db
has already seeded the Crate/Version/DEPENDS_ON facts the INVOKES merge
matches against. Every statement is idempotent, so a rerun after a partial
failure is safe.`,
		RunE: runExportAllNeo4j,
	}
	return cmd
}

func runExportAllNeo4j(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	driver, err := graph.NewDriver(cfg.Neo4jAddr, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		return fmt.Errorf("export-all-neo4j: connecting to %s: %w", cfg.Neo4jAddr, err)
	}
	defer driver.Close(ctx)

	ing := &graph.Ingestor{
		NewSession:    graph.NewDriverSessionFactory(driver, ""),
		BatchSize:     cfg.BatchSize,
		RetryAttempts: cfg.RetryAttempts,
	}
	orch := &orchestrate.Orchestrator{
		Ingestor:     ing,
		ArtifactsDir: cfg.ArtifactsDir,
	}

	start := time.Now()
	errs := orch.ExportAllNeo4j(ctx)
	logPhaseDuration("export-all-neo4j", start)

	if errs.Len() > 0 {
		log.Printf("export-all-neo4j: %d items failed:\n%s", errs.Len(), errs.Error())
	}
	return nil
}
