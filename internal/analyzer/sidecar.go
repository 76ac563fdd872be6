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

package analyzer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// lostEdgesHeaderPrefix marks the sidecar's optional leading comment
// line carrying the lost-edges counter as part of the output contract
// (see the specification's design note on lost edges), not merely a
// debugging aid.
const lostEdgesHeaderPrefix = "# lost_edges="

// WriteSidecar atomically writes the calls.csv sidecar (and, if result
// carries any, the sibling intra.csv) next to the bitcode directory
// dir. It writes to a temporary file and renames into place so that
// concurrent readers never observe a partial file, per the
// write-to-temp/rename ordering guarantee in the specification.
func WriteSidecar(dir string, result *Result) error {
	if err := writeCSVAtomic(filepath.Join(dir, "calls.csv"), result.Edges, lostEdgesHeaderPrefix+strconv.Itoa(result.LostEdges)); err != nil {
		return fmt.Errorf("analyzer: writing calls.csv: %w", err)
	}
	if len(result.IntraCrate) > 0 {
		if err := writeCSVAtomic(filepath.Join(dir, "intra.csv"), result.IntraCrate, ""); err != nil {
			return fmt.Errorf("analyzer: writing intra.csv: %w", err)
		}
	}
	return nil
}

func writeCSVAtomic(path string, edges []Edge, header string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	w := bufio.NewWriter(tmp)
	if header != "" {
		if _, err := fmt.Fprintln(w, header); err != nil {
			tmp.Close()
			return err
		}
	}
	cw := csv.NewWriter(w)
	for _, e := range edges {
		if err := cw.Write([]string{e.CallerSymbol, e.CalleeSymbol, e.CalleeCrate}); err != nil {
			tmp.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// ReadSidecar parses a calls.csv (or intra.csv) sidecar back into the
// edge multiset it represents, tolerating an optional leading
// "# lost_edges=N" comment line. This is the read half of the
// round-trip testable property: serializing then re-parsing must
// reproduce the same edge multiset.
func ReadSidecar(path string) (edges []Edge, lostEdges int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first, err := br.Peek(len(lostEdgesHeaderPrefix))
	if err == nil && strings.HasPrefix(string(first), lostEdgesHeaderPrefix) {
		line, _ := br.ReadString('\n')
		line = strings.TrimSuffix(strings.TrimPrefix(line, lostEdgesHeaderPrefix), "\n")
		line = strings.TrimSpace(line)
		lostEdges, _ = strconv.Atoi(line)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = 3
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, lostEdges, fmt.Errorf("analyzer: reading %s: %w", path, err)
		}
		edges = append(edges, Edge{CallerSymbol: rec[0], CalleeSymbol: rec[1], CalleeCrate: rec[2]})
	}
	return edges, lostEdges, nil
}
