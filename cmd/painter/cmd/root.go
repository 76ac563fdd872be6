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

// Package cmd implements the painter CLI: create-fresh-db,
// compile-all and export-all-neo4j (§6).
package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/crates-graph/painter/internal/config"
)


// New builds the root command and wires every subcommand under it.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:   "painter",
		Short: "Build a property graph of cross-crate calls for a Rust-like package registry",
		Long: `painter drives a compiler across unpacked registry sources, analyzes the
resulting LLVM bitcode for statically resolvable cross-crate calls, and
ingests the registry index plus those call edges into a Neo4j graph.`,
		SilenceUsage: true,
	}
	addGlobalFlags(root)

	root.AddCommand(
		newCreateFreshDBCmd(),
		newCompileAllCmd(),
		newExportAllNeo4jCmd(),
	)
	return root
}

// configFromFlags assembles a config.Config from the global flags,
// overlays an optional --config YAML file (values there lose to any
// flag the user set explicitly), then applies PAINTER_-prefixed
// environment overrides on top. The resulting precedence is
// env > explicitly set flags > file > flag defaults.
func configFromFlags(cmd *cobra.Command) config.Config {
	cfg := config.Default()
	cfg.SourcesDir = flagSourcesDir.String(cmd)
	cfg.ArtifactsDir = flagArtifactsDir.String(cmd)
	cfg.Neo4jAddr = flagNeo4jAddr.String(cmd)
	cfg.Neo4jUser = flagNeo4jUser.String(cmd)
	cfg.Neo4jPass = flagNeo4jPass.String(cmd)
	cfg.Workers = flagWorkers.Int(cmd)
	cfg.BatchSize = flagBatchSize.Int(cmd)
	cfg.MaxModuleSize = flagMaxModuleSize.Int64(cmd)
	cfg.LedgerDir = flagLedgerDir.String(cmd)
	cfg.MetricsAddr = flagMetricsAddr.String(cmd)
	cfg.IRVersion = flagIRVersion.Int(cmd)

	if path := flagConfigFile.String(cmd); path != "" {
		flagsCfg := cfg
		if err := cfg.LoadFile(path); err != nil {
			log.Printf("config: %v", err)
		}
		if flagSourcesDir.Changed(cmd) {
			cfg.SourcesDir = flagsCfg.SourcesDir
		}
		if flagArtifactsDir.Changed(cmd) {
			cfg.ArtifactsDir = flagsCfg.ArtifactsDir
		}
		if flagNeo4jAddr.Changed(cmd) {
			cfg.Neo4jAddr = flagsCfg.Neo4jAddr
		}
		if flagNeo4jUser.Changed(cmd) {
			cfg.Neo4jUser = flagsCfg.Neo4jUser
		}
		if flagNeo4jPass.Changed(cmd) {
			cfg.Neo4jPass = flagsCfg.Neo4jPass
		}
		if flagWorkers.Changed(cmd) {
			cfg.Workers = flagsCfg.Workers
		}
		if flagBatchSize.Changed(cmd) {
			cfg.BatchSize = flagsCfg.BatchSize
		}
		if flagMaxModuleSize.Changed(cmd) {
			cfg.MaxModuleSize = flagsCfg.MaxModuleSize
		}
		if flagLedgerDir.Changed(cmd) {
			cfg.LedgerDir = flagsCfg.LedgerDir
		}
		if flagMetricsAddr.Changed(cmd) {
			cfg.MetricsAddr = flagsCfg.MetricsAddr
		}
		if flagIRVersion.Changed(cmd) {
			cfg.IRVersion = flagsCfg.IRVersion
		}
	}

	cfg.ApplyEnv()
	return cfg
}

// logPhaseDuration logs how long a pipeline phase took, in the
// teacher's plain log.Printf style rather than a structured logger,
// since painter's CLI output is read by a human operator, not scraped.
func logPhaseDuration(phase string, start time.Time) {
	log.Printf("%s: completed in %s", phase, time.Since(start).Truncate(time.Millisecond))
}
