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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"
)

func TestLoadFileOverlaysNonZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "painter.yaml")
	const doc = `
sourcesDir: /srv/sources
workers: 8
neo4jAddr: bolt://graph.internal:7687
`
	qt.Assert(t, qt.IsNil(writeFile(path, doc)))

	cfg := Default()
	qt.Assert(t, qt.IsNil(cfg.LoadFile(path)))

	want := Default()
	want.SourcesDir = "/srv/sources"
	want.Workers = 8
	want.Neo4jAddr = "bolt://graph.internal:7687"

	qt.Assert(t, qt.DeepEquals(cfg, want), qt.Commentf("diff: %s", cmp.Diff(want, cfg)))
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()
	before := cfg
	err := cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(cfg, before))
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "painter.yaml")
	qt.Assert(t, qt.IsNil(writeFile(path, "workers: [this is not an int")))

	cfg := Default()
	err := cfg.LoadFile(path)
	qt.Assert(t, qt.IsNotNil(err))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
