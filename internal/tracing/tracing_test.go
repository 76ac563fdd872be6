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

package tracing

import (
	"bytes"
	"context"
	"testing"
)

func TestSetupAndStartProduceASpan(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx, span := Start(context.Background(), "build", "foo", "1.0.0")
	if ctx == nil {
		t.Fatal("want non-nil context")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("expected the stdout exporter to have written the completed span")
	}
}
