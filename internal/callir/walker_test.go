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

package callir

import (
	"os"
	"testing"

	"github.com/llir/llvm/asm"
)

// loadFixture reads the named textual-IR fixture from testdata/, so
// tests can bypass the disassembler step that Load wraps around
// asm.ParseBytes.
func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return b
}

func TestDetectIRVersion(t *testing.T) {
	b := loadFixture(t, "loop.ll")
	got, ok := DetectIRVersion(b)
	if !ok || got != 17 {
		t.Fatalf("DetectIRVersion = %d, %v, want 17, true", got, ok)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	b := loadFixture(t, "loop.ll")
	if err := CheckVersion(b, 16); err == nil {
		t.Fatal("CheckVersion should reject a mismatched IR version")
	}
	if err := CheckVersion(b, 17); err != nil {
		t.Fatalf("CheckVersion should accept a matching IR version: %v", err)
	}
}

// TestWalkLoopFixture exercises the open question flagged in the
// specification's design notes: a loop body containing an ordinary call
// plus a separate function reached only via musttail should both
// surface as plain call-site edges with no special treatment.
func TestWalkLoopFixture(t *testing.T) {
	b := loadFixture(t, "loop.ll")
	m, err := asm.ParseBytes(b)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	sites, stats := Walk(m)
	if stats.LostEdges != 0 {
		t.Errorf("stats.LostEdges = %d, want 0 (no indirect calls in fixture)", stats.LostEdges)
	}
	if len(sites) != 2 {
		t.Fatalf("len(sites) = %d, want 2, got %+v", len(sites), sites)
	}

	wantCallers := map[string]bool{
		"_ZN3foo1a17h1111111111111111E": false,
		"_ZN3foo1b17h2222222222222222E": false,
	}
	for _, s := range sites {
		if _, ok := wantCallers[s.CallerSymbol]; !ok {
			t.Errorf("unexpected caller %q", s.CallerSymbol)
			continue
		}
		wantCallers[s.CallerSymbol] = true
	}
	for caller, seen := range wantCallers {
		if !seen {
			t.Errorf("expected a call site from %q", caller)
		}
	}
}
