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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
)

// Disassembler turns an LLVM bitcode file into textual IR. In production
// this shells out to llvm-dis; tests substitute a fake that just reads a
// fixture, since disassembly itself is out of scope for this component.
type Disassembler func(ctx context.Context, bitcodePath string) ([]byte, error)

// LLVMDis invokes the llvm-dis binary matching the pinned LLVM major
// version, writing textual IR to stdout.
func LLVMDis(bin string) Disassembler {
	if bin == "" {
		bin = "llvm-dis"
	}
	return func(ctx context.Context, bitcodePath string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, bin, bitcodePath, "-o", "-")
		var out, errBuf bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &errBuf
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("callir: %s %s: %w: %s", bin, bitcodePath, err, errBuf.String())
		}
		return out.Bytes(), nil
	}
}

// sourceVersionMarker matches a header comment line naming the LLVM IR
// major version, e.g. "; LLVM IR version 17".
var sourceVersionMarker = regexp.MustCompile(`(?m)^;\s*LLVM\s+IR\s+version\s+(\d+)`)

// DetectIRVersion extracts the LLVM IR major version from textual IR's
// header comment, returning ok=false when no marker is present (treated
// conservatively as "unknown", which CheckVersion rejects).
func DetectIRVersion(textual []byte) (int, bool) {
	m := sourceVersionMarker.FindSubmatch(textual)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// CheckVersion refuses to proceed when the textual IR's major version
// doesn't match expected, per the specification's compiler-version
// pinning design note: an implementation must refuse a mismatched
// module rather than silently produce wrong results.
func CheckVersion(textual []byte, expected int) error {
	got, ok := DetectIRVersion(textual)
	if !ok {
		return fmt.Errorf("callir: could not determine LLVM IR version of module")
	}
	if got != expected {
		return FormatUnsupported(got, expected)
	}
	return nil
}

// Load disassembles the bitcode at bitcodePath using dis, checks its IR
// version against expectedIRVersion, and parses the result into an
// *ir.Module ready for Walk.
func Load(ctx context.Context, dis Disassembler, bitcodePath string, expectedIRVersion int) (*ir.Module, error) {
	textual, err := dis(ctx, bitcodePath)
	if err != nil {
		return nil, err
	}
	if err := CheckVersion(textual, expectedIRVersion); err != nil {
		return nil, err
	}
	m, err := asm.ParseBytes(textual)
	if err != nil {
		return nil, fmt.Errorf("callir: parsing %s: %w", bitcodePath, err)
	}
	return m, nil
}
