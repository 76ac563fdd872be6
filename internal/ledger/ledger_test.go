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

package ledger

import (
	"testing"
	"time"

	"github.com/crates-graph/painter/internal/perrors"
)

func TestRecordAndLookupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	err = store.Record(Status{
		Phase:     perrors.PhaseBuild,
		Crate:     "foo",
		Version:   "1.0.0",
		Succeeded: true,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, found, err := store.Lookup(perrors.PhaseBuild, "foo", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a recorded status")
	}
	if !got.Succeeded {
		t.Error("want Succeeded = true")
	}

	if _, found, err := store.Lookup(perrors.PhaseAnalyze, "foo", "1.0.0"); err != nil || found {
		t.Errorf("expected no record for a different phase, found=%v err=%v", found, err)
	}
}

func TestSucceededFalseWhenNotRecorded(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if store.Succeeded(perrors.PhaseBuild, "foo", "1.0.0") {
		t.Error("want false for an unrecorded crate/version")
	}
}

func TestSucceededReflectsLatestRecord(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	item := Status{Phase: perrors.PhaseBuild, Crate: "foo", Version: "1.0.0", Succeeded: false}
	if err := store.Record(item); err != nil {
		t.Fatal(err)
	}
	if store.Succeeded(perrors.PhaseBuild, "foo", "1.0.0") {
		t.Error("want false after a recorded failure")
	}

	item.Succeeded = true
	if err := store.Record(item); err != nil {
		t.Fatal(err)
	}
	if !store.Succeeded(perrors.PhaseBuild, "foo", "1.0.0") {
		t.Error("want true after the status is overwritten with a success")
	}
}
