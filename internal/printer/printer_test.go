// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package printer

import (
	"bytes"
	"context"
	"testing"
)

func TestOptPrintf_WithTarget(t *testing.T) {
	var buf bytes.Buffer
	pr := New(&buf, &buf)

	opt := NewOpt().Target("fabric")
	pr.OptPrintf(opt, "applied 3 patches\n")

	expected := "Target \"fabric\": applied 3 patches\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestOptPrintf_Indent(t *testing.T) {
	var buf bytes.Buffer
	pr := New(&buf, &buf)

	pr.OptPrintf(NewOpt().Indent(2), "first\n\nsecond\n")

	expected := "  first\n\n  second\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestOptPrintf_Stderr(t *testing.T) {
	var out, errOut bytes.Buffer
	pr := New(&out, &errOut)

	pr.OptPrintf(NewOpt().Stderr(), "warning\n")

	if out.Len() != 0 {
		t.Errorf("Expected empty stdout, got %q", out.String())
	}
	if errOut.String() != "warning\n" {
		t.Errorf("Expected %q on stderr, got %q", "warning\n", errOut.String())
	}
}

func TestOptPrintf_NilOptions(t *testing.T) {
	var buf bytes.Buffer
	pr := New(&buf, &buf)

	pr.OptPrintf(nil, "General message\n")

	expected := "General message\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestFromContextOrDie(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, &buf))
	FromContextOrDie(ctx).Printf("hello %s\n", "world")
	if buf.String() != "hello world\n" {
		t.Errorf("Expected %q, got %q", "hello world\n", buf.String())
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for context without printer")
		}
	}()
	FromContextOrDie(context.Background())
}
