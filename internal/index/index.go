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

// Package index defines the index importer interface (C5): the
// collaborator that produces Crate/Version/DependsOn facts from the
// registry index. Painter treats whatever implements Reader as the
// source of truth; this package also supplies one concrete
// implementation (C12) reading a crates.io-index-shaped checkout.
package index

import "github.com/crates-graph/painter/internal/semver"

// DependencyKind mirrors Cargo's three dependency kinds.
type DependencyKind string

const (
	KindNormal DependencyKind = "normal"
	KindBuild  DependencyKind = "build"
	KindDev    DependencyKind = "dev"
)

// Dependency is one declared dependency of a published version.
type Dependency struct {
	RequiredCrateName string
	Requirement       string
	Features          []string
	Kind              DependencyKind
	Optional          bool
}

// Record is one published version as the index reports it: enough to
// produce a Crate, a Version, a VERSION_OF edge, and its DEPENDS_ON
// edges.
type Record struct {
	Name         string
	VersionRaw   string
	Version      semver.Version
	Dependencies []Dependency
}

// Reader iterates over every published version in the registry index.
// Implementations decide their own traversal order; the ingestor makes
// no ordering assumptions between records.
type Reader interface {
	// Next returns the next record, or ok=false once exhausted. err is
	// non-nil only for a fatal read failure (the whole run aborts);
	// individual malformed lines should be skipped internally with a
	// logged warning rather than failing the whole iteration, matching
	// the parsing-error policy used elsewhere in the pipeline.
	Next() (rec Record, ok bool, err error)
	// Close releases any resources (open files, etc.) held by the
	// reader.
	Close() error
}

// All drains r into a slice, for callers (tests, small registries) that
// don't need streaming.
func All(r Reader) ([]Record, error) {
	var out []Record
	for {
		rec, ok, err := r.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}
