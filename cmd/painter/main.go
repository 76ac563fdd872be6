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

// Command painter builds a property graph of cross-crate invocation
// edges for a Rust-like package registry: it drives the compiler
// across unpacked registry sources, walks the resulting LLVM bitcode,
// and ingests the result into Neo4j alongside the registry index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crates-graph/painter/cmd/painter/cmd"
)

func main() {
	os.Exit(Main())
}

// Main runs the CLI and returns a process exit code. It is exported,
// rather than inlined into main, so the testscript-driven CLI tests
// can register it as a simulated subprocess command.
func Main() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cmd.New()
	root.SetContext(ctx)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
