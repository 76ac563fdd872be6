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

package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/crates-graph/painter/internal/semver"
)

// FSReader reads a crates.io-index-shaped checkout: a tree of files,
// each named after a crate, each line in a file a JSON object
// describing one published version. Malformed lines are logged and
// skipped, per the parsing-error policy (they never abort the run).
type FSReader struct {
	root  string
	files []string
	fi    int

	cur  *bufio.Scanner
	curF *os.File
}

// NewFSReader walks root (recursively, skipping dotfiles and
// "config.json", which crates.io-shaped indexes use for registry
// metadata rather than crate records) and prepares to stream every
// crate file's lines in a deterministic (lexical) order.
func NewFSReader(root string) (*FSReader, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filepath.Base(path) == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		if base == "config.json" || len(base) > 0 && base[0] == '.' {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index: walking %s: %w", root, err)
	}
	return &FSReader{root: root, files: files}, nil
}

type lineDependency struct {
	Name     string   `json:"name"`
	Req      string   `json:"req"`
	Features []string `json:"features"`
	Optional bool     `json:"optional"`
	Kind     string   `json:"kind"`
}

type lineRecord struct {
	Name string           `json:"name"`
	Vers string           `json:"vers"`
	Deps []lineDependency `json:"deps"`
}

// Next implements Reader.
func (r *FSReader) Next() (Record, bool, error) {
	for {
		if r.cur == nil {
			if r.fi >= len(r.files) {
				return Record{}, false, nil
			}
			f, err := os.Open(r.files[r.fi])
			r.fi++
			if err != nil {
				return Record{}, false, fmt.Errorf("index: opening %s: %w", r.files[r.fi-1], err)
			}
			r.curF = f
			r.cur = bufio.NewScanner(f)
			r.cur.Buffer(make([]byte, 64*1024), 1<<20)
		}
		if !r.cur.Scan() {
			if err := r.cur.Err(); err != nil && err != io.EOF {
				return Record{}, false, fmt.Errorf("index: reading %s: %w", r.files[r.fi-1], err)
			}
			r.curF.Close()
			r.cur, r.curF = nil, nil
			continue
		}
		line := r.cur.Bytes()
		if len(line) == 0 {
			continue
		}
		var lr lineRecord
		if err := json.Unmarshal(line, &lr); err != nil {
			log.Printf("index: skipping malformed line in %s: %v", r.files[r.fi-1], err)
			continue
		}
		v, err := semver.Parse(lr.Vers)
		if err != nil {
			log.Printf("index: skipping %s: %v", lr.Name, err)
			continue
		}
		rec := Record{Name: lr.Name, VersionRaw: lr.Vers, Version: v}
		for _, d := range lr.Deps {
			kind := KindNormal
			switch d.Kind {
			case "build":
				kind = KindBuild
			case "dev":
				kind = KindDev
			}
			rec.Dependencies = append(rec.Dependencies, Dependency{
				RequiredCrateName: d.Name,
				Requirement:       d.Req,
				Features:          d.Features,
				Kind:              kind,
				Optional:          d.Optional,
			})
		}
		return rec, true, nil
	}
}

// Close implements Reader.
func (r *FSReader) Close() error {
	if r.curF != nil {
		return r.curF.Close()
	}
	return nil
}
