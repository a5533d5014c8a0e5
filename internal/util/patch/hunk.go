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
	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// hunk is a text fragment split into the lines it expects to find and the
// lines it leaves behind.
type hunk struct {
	frag *gitdiff.TextFragment
	// old holds the context and deleted lines, new the context and added
	// lines, both in patch order.
	old []string
	new []string
	// leading and trailing count the context lines at either end.
	leading  int
	trailing int
}

func newHunk(frag *gitdiff.TextFragment) hunk {
	h := hunk{frag: frag}
	for _, l := range frag.Lines {
		switch l.Op {
		case gitdiff.OpContext:
			h.old = append(h.old, l.Line)
			h.new = append(h.new, l.Line)
		case gitdiff.OpDelete:
			h.old = append(h.old, l.Line)
		case gitdiff.OpAdd:
			h.new = append(h.new, l.Line)
		}
	}
	for _, l := range frag.Lines {
		if l.Op != gitdiff.OpContext {
			break
		}
		h.leading++
	}
	for i := len(frag.Lines) - 1; i >= 0 && frag.Lines[i].Op == gitdiff.OpContext; i-- {
		h.trailing++
	}
	// a hunk made only of context counts it once
	if h.leading == len(frag.Lines) {
		h.trailing = 0
	}
	return h
}

// declaredStart is the zero-based index of the first old line as written
// in the hunk header. An empty old range inserts after OldPosition.
func (h hunk) declaredStart() int {
	if h.frag.OldLines == 0 {
		return int(h.frag.OldPosition)
	}
	return int(h.frag.OldPosition) - 1
}

// placement is where a hunk was found in the source lines.
type placement struct {
	// at is the index of the first matched source line.
	at int
	// lead and trail are the context lines dropped from either end.
	lead  int
	trail int
}

func (h hunk) oldLines(p placement) []string {
	return h.old[p.lead : len(h.old)-p.trail]
}

func (h hunk) newLines(p placement) []string {
	return h.new[p.lead : len(h.new)-p.trail]
}

// locate searches src for the hunk, starting at expected and moving
// outwards one line at a time in both directions. Matches never start
// before floor. With maxFuzz > 0 the search is repeated with up to maxFuzz
// context lines dropped at each end.
func (h hunk) locate(src []string, expected, floor, maxFuzz int) (placement, bool) {
	tried := map[[2]int]bool{}
	for fuzz := 0; fuzz <= maxFuzz; fuzz++ {
		lead, trail := min(fuzz, h.leading), min(fuzz, h.trailing)
		if tried[[2]int{lead, trail}] {
			continue
		}
		tried[[2]int{lead, trail}] = true

		p := placement{lead: lead, trail: trail}
		if at, found := search(src, h.oldLines(p), expected+lead, floor); found {
			p.at = at
			return p, true
		}
	}
	return placement{}, false
}

func search(src, want []string, expected, floor int) (int, bool) {
	ceiling := len(src) - len(want)
	if ceiling < floor {
		return 0, false
	}
	expected = max(floor, min(expected, ceiling))
	for d := 0; expected-d >= floor || expected+d <= ceiling; d++ {
		if lo := expected - d; lo >= floor && matchAt(src, want, lo) {
			return lo, true
		}
		if hi := expected + d; d > 0 && hi <= ceiling && matchAt(src, want, hi) {
			return hi, true
		}
	}
	return 0, false
}

func matchAt(src, want []string, at int) bool {
	for i, l := range want {
		if src[at+i] != l {
			return false
		}
	}
	return true
}

// applyHunks places every hunk in src and returns the patched lines along
// with the hunks that could not be placed and the offset of each placed
// hunk from its declared position. Hunks are placed in order and never
// overlap.
func applyHunks(src []string, hunks []hunk, maxFuzz int) ([]string, []hunk, []int) {
	var (
		out      []string
		rejected []hunk
		offsets  []int
		cursor   int
		shift    int
	)
	for _, h := range hunks {
		expected := h.declaredStart() + shift
		p, found := h.locate(src, expected, cursor, maxFuzz)
		if !found {
			rejected = append(rejected, h)
			continue
		}
		out = append(out, src[cursor:p.at]...)
		out = append(out, h.newLines(p)...)
		cursor = p.at + len(h.oldLines(p))

		offset := p.at - (h.declaredStart() + p.lead)
		offsets = append(offsets, offset)
		shift = offset
	}
	out = append(out, src[cursor:]...)
	return out, rejected, offsets
}
