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

package symbolinfo

import "strings"

// Symbol is the transient result of classifying a mangled linker symbol:
// its readable, demangled form and the crate that owns it.
type Symbol struct {
	Crate    string
	Readable string
}

// Filter parameterizes which symbols the classifier keeps. The defaults
// (DefaultFilter) implement the noise rules in the specification;
// callers performing wider studies (e.g. including standard-library
// edges) construct their own.
type Filter struct {
	// ExcludedCrates names owning crates to reject outright (runtime,
	// std, core, alloc by default).
	ExcludedCrates map[string]bool
	// IntrinsicPrefixes rejects any readable path beginning with one of
	// these prefixes (compiler intrinsics).
	IntrinsicPrefixes []string
	// ShimMarkers rejects any readable path containing one of these
	// substrings (drop glue, vtable shims, panic landing pads — all
	// compiler-generated, not user code).
	ShimMarkers []string
}

// DefaultFilter implements the noise policy from the specification: the
// runtime, standard library, core, and alloc crates are excluded,
// together with compiler intrinsics and generated shims.
func DefaultFilter() Filter {
	return Filter{
		ExcludedCrates: map[string]bool{
			"std":        true,
			"core":       true,
			"alloc":      true,
			"compiler_builtins": true,
			"panic_abort":       true,
			"panic_unwind":      true,
		},
		IntrinsicPrefixes: []string{"llvm."},
		ShimMarkers: []string{
			"drop_in_place",
			"{{vtable-shim}}",
			"{{closure-shim}}",
			"{{reify-shim}}",
			"__rust_probestack",
			"rust_begin_unwind",
			"rust_eh_personality",
			"{{landing-pad}}",
		},
	}
}

// Classify demangles sym and decides whether it belongs in the call
// graph. It returns ok=false ("noise") when the symbol cannot be
// demangled, is a compiler intrinsic, is generated shim/glue code, has
// no extractable owning crate, or the owning crate is in f's exclusion
// set.
func (f Filter) Classify(sym string) (Symbol, bool) {
	readable, ok := Demangle(sym)
	if !ok {
		return Symbol{}, false
	}
	for _, prefix := range f.IntrinsicPrefixes {
		if strings.HasPrefix(readable, prefix) || strings.HasPrefix(sym, prefix) {
			return Symbol{}, false
		}
	}
	for _, marker := range f.ShimMarkers {
		if strings.Contains(readable, marker) {
			return Symbol{}, false
		}
	}
	crate, ok := OwningCrate(readable)
	if !ok {
		return Symbol{}, false
	}
	if f.ExcludedCrates[crate] {
		return Symbol{}, false
	}
	return Symbol{Crate: crate, Readable: readable}, true
}

// OwningCrate extracts the owning crate name from a demangled "::"-
// joined path: its first segment, with any trailing hash disambiguator
// (e.g. "my_crate[a1b2c3d4e5f6]") stripped.
func OwningCrate(readable string) (string, bool) {
	first := readable
	if i := strings.Index(readable, "::"); i >= 0 {
		first = readable[:i]
	}
	if i := strings.IndexByte(first, '['); i >= 0 {
		first = first[:i]
	}
	if first == "" {
		return "", false
	}
	return first, true
}
