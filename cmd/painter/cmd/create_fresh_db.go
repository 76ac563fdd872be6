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
	"github.com/crates-graph/painter/internal/index"
)

func newCreateFreshDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-fresh-db",
		Short: "Reset the graph store and seed it from the registry index",
		Long: `create-fresh-db connects to the configured Neo4j instance, deletes every
node and relationship already there, issues the idempotent constraint and
index statements the graph ingestor depends on, then reads index-dir (a
crates.io-index-shaped checkout) and MERGEs every Crate/Version/DEPENDS_ON
fact into the now-empty database. Run this before compile-all/export-all-neo4j
against a database that should reflect only the current index.`,
		RunE: runCreateFreshDB,
	}
	return cmd
}

func runCreateFreshDB(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	indexDir := flagIndexDir.String(cmd)
	reader, err := index.NewFSReader(indexDir)
	if err != nil {
		return fmt.Errorf("create-fresh-db: %w", err)
	}
	defer reader.Close()

	records, err := index.All(reader)
	if err != nil {
		return fmt.Errorf("create-fresh-db: reading index: %w", err)
	}

	start := time.Now()
	driver, err := graph.NewDriver(cfg.Neo4jAddr, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		return fmt.Errorf("create-fresh-db: connecting to %s: %w", cfg.Neo4jAddr, err)
	}
	defer driver.Close(ctx)

	factory := graph.NewDriverSessionFactory(driver, "")
	if err := graph.DropAllData(ctx, factory); err != nil {
		return fmt.Errorf("create-fresh-db: dropping existing data: %w", err)
	}
	if err := graph.EnsureSchema(ctx, factory); err != nil {
		return fmt.Errorf("create-fresh-db: %w", err)
	}

	ing := &graph.Ingestor{
		NewSession:    factory,
		BatchSize:     cfg.BatchSize,
		RetryAttempts: cfg.RetryAttempts,
	}
	errs := ing.IngestIndex(ctx, records)
	logPhaseDuration("create-fresh-db", start)

	if errs.Len() > 0 {
		log.Printf("create-fresh-db: %d index records failed:\n%s", errs.Len(), errs.Error())
	}
	return nil
}
