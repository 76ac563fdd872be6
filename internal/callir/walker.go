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

// Package callir implements the IR walker (C2): given a parsed LLVM
// module, it enumerates every call-like instruction in every defined
// function and yields (caller, callee) symbol pairs. It does not
// inspect globals, metadata, or type declarations, and it never
// attempts to recover an indirect call's target — those sites are
// counted as lost and skipped.
package callir

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

// CallSite is one (caller, callee) symbol pair recovered from a direct
// call, invoke, or tail/musttail call instruction.
type CallSite struct {
	CallerSymbol string
	CalleeSymbol string
}

// Stats accumulates the walker's output-contract counters across a
// module: how many call-like instructions were found, and how many of
// them had to be skipped because their target wasn't a statically named
// function.
type Stats struct {
	Sites      int
	LostEdges  int
}

// Walk traverses every function defined in m (functions without a body
// are declarations and contribute no call sites) and returns the direct
// call/invoke edges found, plus the lost-edge count for indirect call
// sites skipped along the way.
func Walk(m *ir.Module) ([]CallSite, Stats) {
	var sites []CallSite
	var stats Stats

	for _, fn := range m.Funcs {
		if len(fn.Blocks) == 0 {
			continue // declaration only, no body to walk
		}
		caller := fn.Name()
		for _, block := range fn.Blocks {
			for _, inst := range block.Insts {
				callee, isCall := calleeOf(inst)
				if !isCall {
					continue
				}
				stats.Sites++
				sym, ok := directTarget(callee)
				if !ok {
					stats.LostEdges++
					continue
				}
				sites = append(sites, CallSite{CallerSymbol: caller, CalleeSymbol: sym})
			}
			if callee, isCall := calleeOf(block.Term); isCall {
				stats.Sites++
				if sym, ok := directTarget(callee); ok {
					sites = append(sites, CallSite{CallerSymbol: caller, CalleeSymbol: sym})
				} else {
					stats.LostEdges++
				}
			}
		}
	}
	return sites, stats
}

// calleeOf reports the called value of inst if inst is a call-like
// instruction: a normal/tail/musttail call instruction, or an invoke
// terminator. Everything else (arithmetic, memory, other terminators)
// reports isCall=false. All call-like variants are treated as
// equivalent edges, per the specification's design note: landing-pad
// and musttail handling are not distinguished from an ordinary call.
func calleeOf(v any) (callee interface{ Ident() string }, isCall bool) {
	switch inst := v.(type) {
	case *ir.InstCall:
		if c, ok := inst.Callee.(interface{ Ident() string }); ok {
			return c, true
		}
		return nil, true // call with no nameable callee value at all
	case *ir.TermInvoke:
		if c, ok := inst.Callee.(interface{ Ident() string }); ok {
			return c, true
		}
		return nil, true
	default:
		return nil, false
	}
}

// directTarget reports the symbol of callee when it statically names a
// function, unwrapping the bitcast constant expressions the compiler
// commonly inserts around a function pointer whose declared and actual
// signatures differ. A value loaded from memory, selected between two
// functions, or produced by inline assembly has no such name and is
// reported as indirect (ok=false).
func directTarget(callee interface{ Ident() string }) (string, bool) {
	v := callee
	for depth := 0; depth < 4; depth++ {
		switch fn := any(v).(type) {
		case *ir.Func:
			return fn.Name(), true
		case *constant.ExprBitCast:
			if inner, ok := fn.From.(interface{ Ident() string }); ok {
				v = inner
				continue
			}
			return "", false
		default:
			return "", false
		}
	}
	return "", false
}

// FormatUnsupported renders a helpful error for a module this build of
// Painter cannot walk, e.g. an IR version mismatch caught before Walk is
// ever called (see callir.CheckVersion).
func FormatUnsupported(gotVersion, wantVersion int) error {
	return fmt.Errorf("callir: module was produced by LLVM IR major version %d, painter expects %d; refusing to analyze rather than risk silently wrong results", gotVersion, wantVersion)
}
