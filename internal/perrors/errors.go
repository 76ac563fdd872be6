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

// Package perrors defines the error types shared across Painter's
// pipeline phases.
//
// Every error surfaced by the compiler driver, the per-crate analyzer, or
// the graph ingestor carries an [Item] identifying the crate, version, and
// phase that produced it, so that a failed run can be summarized and
// replayed item by item. Errors accumulate into a [List] rather than
// aborting the run, matching the isolation-per-item policy of the
// pipeline.
package perrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Phase names one stage of the pipeline that an [Item] failed in.
type Phase string

const (
	PhaseBuild   Phase = "build"
	PhaseAnalyze Phase = "analyze"
	PhaseIngest  Phase = "ingest"
	PhaseIndex   Phase = "index"
)

// Item identifies the crate-version-phase an error is attached to.
type Item struct {
	Crate   string
	Version string
	Phase   Phase
}

func (it Item) String() string {
	if it.Crate == "" {
		return string(it.Phase)
	}
	if it.Version == "" {
		return fmt.Sprintf("%s[%s]", it.Crate, it.Phase)
	}
	return fmt.Sprintf("%s-%s[%s]", it.Crate, it.Version, it.Phase)
}

// Error wraps an underlying cause with the [Item] that produced it.
type Error struct {
	Item  Item
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Wrap attaches item to cause. It returns nil if cause is nil, mirroring
// the convenience of fmt.Errorf("%w", ...) chains used elsewhere in the
// pipeline.
func Wrap(item Item, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Item: item, Cause: cause}
}

// List is a goroutine-safe accumulator of errors produced by independent
// workers. Unlike a plain slice, Add may be called concurrently from the
// orchestrator's worker pool.
type List struct {
	mu   sync.Mutex
	errs []*Error
}

// Add appends err, flattening nested Lists and ignoring nil errors. It is
// safe for concurrent use.
func (l *List) Add(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var nested *List
	if errors.As(err, &nested) && nested != l {
		l.errs = append(l.errs, nested.snapshot()...)
		return
	}
	var pe *Error
	if errors.As(err, &pe) {
		l.errs = append(l.errs, pe)
		return
	}
	l.errs = append(l.errs, &Error{Cause: err})
}

func (l *List) snapshot() []*Error {
	out := make([]*Error, len(l.errs))
	copy(out, l.errs)
	return out
}

// Len reports the number of accumulated errors.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errs)
}

// Items returns the accumulated errors sorted by their Item identifier,
// suitable for printing a deterministic failure ledger.
func (l *List) Items() []*Error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.snapshot()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Item.String() < out[j].Item.String()
	})
	return out
}

// Err returns an error representing the whole list, or nil if empty.
func (l *List) Err() error {
	if l.Len() == 0 {
		return nil
	}
	return l
}

func (l *List) Error() string {
	items := l.Items()
	lines := make([]string, len(items))
	for i, e := range items {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}
