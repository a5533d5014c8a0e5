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

package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/kptdev/portpatch/internal/util/diff"
)

// RejectSuffix is appended to the relative path of a file to name its
// rejects.
const RejectSuffix = ".rej"

// RejectPath returns the location of the rejects for rel below rejectsDir.
func RejectPath(rejectsDir, rel string) string {
	return filepath.Join(rejectsDir, filepath.FromSlash(rel)+RejectSuffix)
}

// formatRejects renders the failed hunks of the file at rel as a unified
// diff that can be applied by hand once the context is fixed.
func formatRejects(rel string, hunks []hunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", rel, rel)
	fmt.Fprintf(&b, "--- a/%s\n", rel)
	fmt.Fprintf(&b, "+++ b/%s\n", rel)
	for _, h := range hunks {
		f := h.frag
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@", f.OldPosition, f.OldLines, f.NewPosition, f.NewLines)
		if f.Comment != "" {
			b.WriteString(" " + f.Comment)
		}
		b.WriteString("\n")
		for _, l := range f.Lines {
			switch l.Op {
			case gitdiff.OpContext:
				b.WriteByte(' ')
			case gitdiff.OpDelete:
				b.WriteByte('-')
			case gitdiff.OpAdd:
				b.WriteByte('+')
			}
			b.WriteString(l.Line)
			if !strings.HasSuffix(l.Line, "\n") {
				b.WriteString("\n" + diff.NoNewlineMarker + "\n")
			}
		}
	}
	return b.String()
}

func writeRejects(rejectsDir, rel string, content []byte) (string, error) {
	dst := RejectPath(rejectsDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, content, 0644); err != nil {
		return "", err
	}
	return dst, nil
}
