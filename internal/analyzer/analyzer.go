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

// Package analyzer implements the per-crate analyzer (C3): it loads one
// bitcode module, walks it for call sites, classifies both ends of each
// call through the symbol classifier, and emits a deduplicated
// invocation-edge sidecar next to the bitcode.
package analyzer

import (
	"context"
	"fmt"
	"os"

	"github.com/crates-graph/painter/internal/callir"
	"github.com/crates-graph/painter/internal/symbolinfo"
)

// Edge is one surviving invocation: this crate-version's own code
// calling into another crate.
type Edge struct {
	CallerSymbol string
	CalleeSymbol string
	CalleeCrate  string
}

// Result is everything the analyzer learned about one crate-version.
type Result struct {
	Crate, Version string
	Edges          []Edge
	// IntraCrate holds calls excluded from Edges because caller and
	// callee share this crate — kept for the offline studies the
	// specification's design notes flag as an open policy question.
	IntraCrate []Edge
	LostEdges  int
}

// Analyzer runs C3 for one crate-version.
type Analyzer struct {
	Dis       callir.Disassembler
	Filter    symbolinfo.Filter
	IRVersion int
	// MaxModuleSize refuses to even attempt loading a bitcode file
	// larger than this many bytes, reporting it as "too large" per the
	// resource cap in the specification's concurrency model.
	MaxModuleSize int64
}

// ErrTooLarge is returned by Analyze when the bitcode file exceeds
// MaxModuleSize.
type ErrTooLarge struct {
	Path string
	Size int64
	Max  int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("analyzer: %s is %d bytes, exceeds cap of %d", e.Path, e.Size, e.Max)
}

// Analyze loads the bitcode at bitcodePath, walks it, and returns the
// deduplicated edge set for (crate, version). A parse failure returns a
// non-nil error and no Result: the caller (the orchestrator) records
// this crate-version as "analysis failed" and continues with the next
// item, per the per-item isolation policy. A crate with no surviving
// edges still returns a Result with an empty Edges slice, marking
// "analyzed, zero edges" rather than "not analyzed".
func (a *Analyzer) Analyze(ctx context.Context, crate, version, bitcodePath string) (*Result, error) {
	if a.MaxModuleSize > 0 {
		if fi, err := os.Stat(bitcodePath); err == nil && fi.Size() > a.MaxModuleSize {
			return nil, &ErrTooLarge{Path: bitcodePath, Size: fi.Size(), Max: a.MaxModuleSize}
		}
	}

	m, err := callir.Load(ctx, a.Dis, bitcodePath, a.IRVersion)
	if err != nil {
		return nil, fmt.Errorf("analyzer: loading %s-%s: %w", crate, version, err)
	}

	sites, stats := callir.Walk(m)

	type key struct{ caller, callee, calleeCrate string }
	seen := make(map[key]bool, len(sites))
	seenIntra := make(map[key]bool)

	result := &Result{Crate: crate, Version: version, LostEdges: stats.LostEdges}
	for _, site := range sites {
		callerSym, ok := a.Filter.Classify(site.CallerSymbol)
		if !ok {
			continue
		}
		calleeSym, ok := a.Filter.Classify(site.CalleeSymbol)
		if !ok {
			continue
		}
		// Only this crate's own code contributes invocations: an edge
		// observed in a function that isn't this crate-version's own
		// function doesn't count as its invocation (this happens when
		// inlining or LTO leaves a borrowed callee body around — the
		// driver disables both, but the filter still double-checks).
		if callerSym.Crate != crate {
			continue
		}
		if calleeSym.Crate == crate {
			k := key{callerSym.Readable, calleeSym.Readable, calleeSym.Crate}
			if !seenIntra[k] {
				seenIntra[k] = true
				result.IntraCrate = append(result.IntraCrate, Edge{
					CallerSymbol: callerSym.Readable,
					CalleeSymbol: calleeSym.Readable,
					CalleeCrate:  calleeSym.Crate,
				})
			}
			continue
		}
		k := key{callerSym.Readable, calleeSym.Readable, calleeSym.Crate}
		if seen[k] {
			continue
		}
		seen[k] = true
		result.Edges = append(result.Edges, Edge{
			CallerSymbol: callerSym.Readable,
			CalleeSymbol: calleeSym.Readable,
			CalleeCrate:  calleeSym.Crate,
		})
	}
	return result, nil
}
