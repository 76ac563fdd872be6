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

// Package ledger implements the local operational ledger (C11): a
// BadgerDB-backed record of the outcome of every {phase, crate,
// version} triple processed during a run. compile-all and
// export-all-neo4j always do a full rebuild (§1 Non-goals); the
// ledger is a post-hoc report operators can query to find what failed
// and replay just those items by hand, not a cache consulted to skip
// work on the next run.
//
// This is distinct from the graph store: the ledger never holds crate
// or dependency data, only local pipeline bookkeeping. Entries persist
// across runs in the same directory; recording a triple again
// overwrites its previous entry.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/crates-graph/painter/internal/perrors"
)

// Status is the recorded outcome of one phase for one crate/version.
type Status struct {
	Phase     perrors.Phase
	Crate     string
	Version   string
	Succeeded bool
	Reason    string
	UpdatedAt time.Time
}

// Store wraps a Badger database keyed by phase/crate/version.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a ledger at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(phase perrors.Phase, crate, version string) []byte {
	return []byte(string(phase) + "\x00" + crate + "\x00" + version)
}

// Record persists the outcome of one phase for one crate/version,
// overwriting any previous entry.
func (s *Store) Record(st Status) error {
	st.UpdatedAt = st.UpdatedAt.UTC()
	buf, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("ledger: encoding status: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(st.Phase, st.Crate, st.Version), buf)
	})
}

// Lookup returns the recorded status for phase/crate/version, if any.
func (s *Store) Lookup(phase perrors.Phase, crate, version string) (Status, bool, error) {
	var st Status
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(phase, crate, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &st)
		})
	})
	if err != nil {
		return Status{}, false, fmt.Errorf("ledger: looking up %s/%s/%s: %w", phase, crate, version, err)
	}
	return st, found, nil
}

// Succeeded reports whether the latest recorded status for
// phase/crate/version is a success.
func (s *Store) Succeeded(phase perrors.Phase, crate, version string) bool {
	st, found, err := s.Lookup(phase, crate, version)
	return err == nil && found && st.Succeeded
}
