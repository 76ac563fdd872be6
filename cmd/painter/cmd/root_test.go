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
	"testing"

	"github.com/spf13/cobra"
)

func TestNewRegistersExpectedSubcommands(t *testing.T) {
	root := New()
	want := map[string]bool{
		"create-fresh-db":  false,
		"compile-all":      false,
		"export-all-neo4j": false,
	}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestConfigFromFlagsAppliesOverrides(t *testing.T) {
	root := New()
	if err := root.ParseFlags([]string{"--workers=4", "--sources-dir=/tmp/src"}); err != nil {
		t.Fatal(err)
	}
	cfg := configFromFlags(root)
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.SourcesDir != "/tmp/src" {
		t.Errorf("SourcesDir = %q, want /tmp/src", cfg.SourcesDir)
	}
	// An unset flag carries its registered default (500 for batch-size).
	if cfg.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want default 500", cfg.BatchSize)
	}
}

func TestFlagNamePanicsWhenFlagNotAdded(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for an unregistered flag")
		}
	}()
	bare := &cobra.Command{Use: "bare"}
	flagName("never-added").String(bare)
}
