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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flags, shared across every subcommand.
const (
	flagSourcesDir    flagName = "sources-dir"
	flagArtifactsDir  flagName = "artifacts-dir"
	flagNeo4jAddr     flagName = "neo4j-addr"
	flagNeo4jUser     flagName = "neo4j-user"
	flagNeo4jPass     flagName = "neo4j-pass"
	flagWorkers       flagName = "workers"
	flagBatchSize     flagName = "batch-size"
	flagMaxModuleSize flagName = "max-module-size"
	flagLedgerDir     flagName = "ledger-dir"
	flagMetricsAddr   flagName = "metrics-addr"
	flagIRVersion     flagName = "ir-version"
	flagIndexDir      flagName = "index-dir"
	flagConfigFile    flagName = "config"
)

func addGlobalFlags(cmd *cobra.Command) {
	addFlagsTo(cmd.PersistentFlags())
}

// addFlagsTo registers every global flag on f directly, the same split
// the teacher's cmd/cue/cmd/flags.go uses so flag registration can be
// unit-tested against a bare *pflag.FlagSet without a *cobra.Command.
func addFlagsTo(f *pflag.FlagSet) {
	f.String(string(flagSourcesDir), "sources", "root of unpacked {name}-{version} source directories")
	f.String(string(flagArtifactsDir), "artifacts", "root of per-crate bitcode and sidecar artifacts")
	f.String(string(flagNeo4jAddr), "bolt://localhost:7687", "Bolt address of the target Neo4j instance")
	f.String(string(flagNeo4jUser), "neo4j", "Neo4j username")
	f.String(string(flagNeo4jPass), "", "Neo4j password")
	f.Int(string(flagWorkers), 0, "bounded worker pool size (0 means GOMAXPROCS)")
	f.Int(string(flagBatchSize), 500, "records per graph-store write transaction")
	f.Int64(string(flagMaxModuleSize), 512<<20, "bitcode files above this size (bytes) are skipped rather than analyzed")
	f.String(string(flagLedgerDir), "", "directory for the local BadgerDB pipeline ledger (disabled if empty)")
	f.String(string(flagMetricsAddr), "", "address to serve Prometheus /metrics on (disabled if empty)")
	f.Int(string(flagIRVersion), 17, "expected LLVM IR version; modules disassembled to a different version are rejected")
	f.String(string(flagIndexDir), "index", "root of the crates.io-index-shaped registry checkout")
	f.String(string(flagConfigFile), "", "optional YAML file overlaying these flags (flags explicitly set still win)")
}

// flagName mirrors the teacher's own flag-accessor idiom: a typed flag
// name whose accessor methods panic if the flag was never added to
// the command, rather than silently returning a zero value.
type flagName string

func (f flagName) ensureAdded(cmd *cobra.Command) {
	if cmd.Flags().Lookup(string(f)) == nil {
		panic(fmt.Sprintf("command %q uses flag %q without adding it", cmd.Name(), f))
	}
}

func (f flagName) String(cmd *cobra.Command) string {
	f.ensureAdded(cmd)
	v, _ := cmd.Flags().GetString(string(f))
	return v
}

func (f flagName) Int(cmd *cobra.Command) int {
	f.ensureAdded(cmd)
	v, _ := cmd.Flags().GetInt(string(f))
	return v
}

func (f flagName) Int64(cmd *cobra.Command) int64 {
	f.ensureAdded(cmd)
	v, _ := cmd.Flags().GetInt64(string(f))
	return v
}

// Changed reports whether the user explicitly set this flag, as
// opposed to it carrying its registered default.
func (f flagName) Changed(cmd *cobra.Command) bool {
	f.ensureAdded(cmd)
	return cmd.Flags().Changed(string(f))
}
