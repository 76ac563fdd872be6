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

// Package config holds the single process-wide, read-only configuration
// struct built at startup from CLI flags and environment overrides. No
// component reads configuration from anywhere else; there is no other
// global mutable state in Painter.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once by cmd/painter and passed by value (or pointer to
// an immutable value) to every component that needs it.
type Config struct {
	// SourcesDir is the root directory of {name}-{version} source
	// checkouts, input to the compiler driver (C4).
	SourcesDir string
	// ArtifactsDir is the root directory bitcode and sidecars are
	// written under.
	ArtifactsDir string

	// Neo4jAddr, Neo4jUser, Neo4jPass address the external graph store.
	Neo4jAddr string
	Neo4jUser string
	Neo4jPass string

	// Workers bounds the orchestrator's worker pool. Zero means
	// GOMAXPROCS.
	Workers int
	// BatchSize bounds the number of graph merges per ingest
	// transaction.
	BatchSize int
	// MaxModuleSize refuses bitcode modules larger than this many
	// bytes.
	MaxModuleSize int64
	// IRVersion is the expected LLVM IR major version; modules claiming
	// a different version are refused rather than silently misread.
	IRVersion int

	// LedgerDir is the BadgerDB directory backing the local pipeline
	// status ledger (C11).
	LedgerDir string
	// MetricsAddr, when non-empty, serves Prometheus metrics on this
	// address for the duration of the run.
	MetricsAddr string

	// BuildTimeout is carried in the configuration with a default, but
	// no component applies it: a compiler-driver invocation runs until it
	// exits or the run's context is cancelled.
	BuildTimeout time.Duration
	// RetryAttempts bounds graph-store transient-error retries.
	RetryAttempts int
}

const (
	defaultBatchSize      = 500
	defaultMaxModuleSize  = 512 << 20
	defaultIRVersion      = 17
	defaultBuildTimeout   = 10 * time.Minute
	defaultRetryAttempts  = 5
	envPrefix             = "PAINTER_"
)

// Default returns a Config with every field at its documented default.
// Callers overlay flag values on top.
func Default() Config {
	return Config{
		ArtifactsDir:  "artifacts",
		SourcesDir:    "sources",
		Workers:       runtime.GOMAXPROCS(0),
		BatchSize:     defaultBatchSize,
		MaxModuleSize: defaultMaxModuleSize,
		IRVersion:     defaultIRVersion,
		LedgerDir:     ".painter-ledger",
		BuildTimeout:  defaultBuildTimeout,
		RetryAttempts: defaultRetryAttempts,
	}
}

// ApplyEnv overlays PAINTER_-prefixed environment variables onto c,
// giving operators a way to override flags in scripted environments
// without editing the invocation.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(envPrefix + "WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "BATCH_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchSize = n
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "NEO4J_ADDR"); ok {
		c.Neo4jAddr = v
	}
	if v, ok := os.LookupEnv(envPrefix + "NEO4J_USER"); ok {
		c.Neo4jUser = v
	}
	if v, ok := os.LookupEnv(envPrefix + "NEO4J_PASS"); ok {
		c.Neo4jPass = v
	}
}

// fileOverrides mirrors the subset of Config an operator may reasonably
// want to pin in a checked-in file rather than pass as flags every
// invocation. Zero values are left alone by LoadFile, matching
// ApplyEnv's overlay semantics.
type fileOverrides struct {
	SourcesDir    string `yaml:"sourcesDir,omitempty"`
	ArtifactsDir  string `yaml:"artifactsDir,omitempty"`
	Neo4jAddr     string `yaml:"neo4jAddr,omitempty"`
	Neo4jUser     string `yaml:"neo4jUser,omitempty"`
	Neo4jPass     string `yaml:"neo4jPass,omitempty"`
	Workers       int    `yaml:"workers,omitempty"`
	BatchSize     int    `yaml:"batchSize,omitempty"`
	MaxModuleSize int64  `yaml:"maxModuleSize,omitempty"`
	IRVersion     int    `yaml:"irVersion,omitempty"`
	LedgerDir     string `yaml:"ledgerDir,omitempty"`
	MetricsAddr   string `yaml:"metricsAddr,omitempty"`
	RetryAttempts int    `yaml:"retryAttempts,omitempty"`
}

// LoadFile reads a YAML config file and overlays it onto c. A missing
// file is not an error: operators without one fall back to flags and
// environment overrides alone.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f fileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if f.SourcesDir != "" {
		c.SourcesDir = f.SourcesDir
	}
	if f.ArtifactsDir != "" {
		c.ArtifactsDir = f.ArtifactsDir
	}
	if f.Neo4jAddr != "" {
		c.Neo4jAddr = f.Neo4jAddr
	}
	if f.Neo4jUser != "" {
		c.Neo4jUser = f.Neo4jUser
	}
	if f.Neo4jPass != "" {
		c.Neo4jPass = f.Neo4jPass
	}
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if f.BatchSize > 0 {
		c.BatchSize = f.BatchSize
	}
	if f.MaxModuleSize > 0 {
		c.MaxModuleSize = f.MaxModuleSize
	}
	if f.IRVersion > 0 {
		c.IRVersion = f.IRVersion
	}
	if f.LedgerDir != "" {
		c.LedgerDir = f.LedgerDir
	}
	if f.MetricsAddr != "" {
		c.MetricsAddr = f.MetricsAddr
	}
	if f.RetryAttempts > 0 {
		c.RetryAttempts = f.RetryAttempts
	}
	return nil
}

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch-size must be positive, got %d", c.BatchSize)
	}
	if c.MaxModuleSize <= 0 {
		return fmt.Errorf("config: max-module-size must be positive, got %d", c.MaxModuleSize)
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("config: retry-attempts must be positive, got %d", c.RetryAttempts)
	}
	return nil
}
