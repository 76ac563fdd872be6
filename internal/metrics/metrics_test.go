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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)

	p.BuildsOK.Inc()
	p.BuildsOK.Inc()
	p.EdgesLost.Add(3)

	if got := testutil.ToFloat64(p.BuildsOK); got != 2 {
		t.Errorf("BuildsOK = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.EdgesLost); got != 3 {
		t.Errorf("EdgesLost = %v, want 3", got)
	}
}

func TestNewPipelineDoesNotPanicOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPipeline(reg)
}
