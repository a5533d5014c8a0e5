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

package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// NoNewlineMarker follows a patch line whose content has no trailing
// newline.
const NoNewlineMarker = `\ No newline at end of file`

// Change is the kind of change made to a file.
type Change int

const (
	Modified Change = iota
	Added
	Removed
)

// FileDiff describes the change to a single file.
type FileDiff struct {
	// Path is the slash-separated path relative to the tree root.
	Path   string
	Change Change
	// Old is the base content, empty for added files.
	Old []byte
	// New is the working content, empty for removed files.
	New []byte
	// Executable marks an added or removed file as executable.
	Executable bool
}

// SplitLines splits content into lines that keep their terminating "\n".
// The last line has no terminator when content doesn't end with one.
// Carriage returns stay part of the line.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// WriteUnified writes fd as a git-style unified diff with the given number
// of context lines. Structural lines always end in "\n" so the output is the
// same on every platform.
func WriteUnified(w io.Writer, fd FileDiff, contextLines int) error {
	ew := &errWriter{w: w}
	ew.printf("diff --git %s %s\n", quoteName("a/"+fd.Path), quoteName("b/"+fd.Path))

	mode := "100644"
	if fd.Executable {
		mode = "100755"
	}
	switch fd.Change {
	case Added:
		ew.printf("new file mode %s\n", mode)
	case Removed:
		ew.printf("deleted file mode %s\n", mode)
	}

	oldLines := SplitLines(fd.Old)
	newLines := SplitLines(fd.New)
	if fd.Change != Modified && len(oldLines) == 0 && len(newLines) == 0 {
		// empty file added or removed, git writes no hunks either
		return ew.err
	}

	oldName, newName := quoteName("a/"+fd.Path), quoteName("b/"+fd.Path)
	switch fd.Change {
	case Added:
		oldName = "/dev/null"
	case Removed:
		newName = "/dev/null"
	}
	ew.printf("--- %s\n", oldName)
	ew.printf("+++ %s\n", newName)

	m := difflib.NewMatcherWithJunk(oldLines, newLines, false, nil)
	for _, group := range m.GetGroupedOpCodes(contextLines) {
		first, last := group[0], group[len(group)-1]
		ew.printf("@@ -%s +%s @@\n", hunkRange(first.I1, last.I2), hunkRange(first.J1, last.J2))
		for _, op := range group {
			switch op.Tag {
			case 'e':
				for _, l := range oldLines[op.I1:op.I2] {
					ew.line(' ', l)
				}
			case 'r', 'd', 'i':
				for _, l := range oldLines[op.I1:op.I2] {
					ew.line('-', l)
				}
				for _, l := range newLines[op.J1:op.J2] {
					ew.line('+', l)
				}
			}
		}
	}
	return ew.err
}

// hunkRange formats a zero-based half-open line range as "start,count".
// An empty range starts at the line before it.
func hunkRange(start, end int) string {
	count := end - start
	if count == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	return fmt.Sprintf("%d,%d", start+1, count)
}

// quoteName quotes a path the way git does when it contains characters
// that would make the header ambiguous.
func quoteName(name string) string {
	needsQuote := false
	for i := 0; i < len(name); i++ {
		if c := name[i]; c < 0x20 || c == 0x7f || c == '"' || c == '\\' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return name
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\n':
			b.WriteString(`\n`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\%03o`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) line(op byte, l string) {
	if ew.err != nil {
		return
	}
	if _, ew.err = io.WriteString(ew.w, string(op)+l); ew.err != nil {
		return
	}
	if !strings.HasSuffix(l, "\n") {
		_, ew.err = io.WriteString(ew.w, "\n"+NoNewlineMarker+"\n")
	}
}
