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
	"path"
	"strings"

	"sigs.k8s.io/kustomize/kyaml/sets"
)

// IgnoreRules decides which relative paths are excluded from patch
// generation. An entry without a slash matches any single path segment
// exactly, so ".git" matches "a/.git/config". An entry with slashes matches
// a contiguous run of segments, so "build/tmp" matches "x/build/tmp/y" but
// not "x/build/y".
type IgnoreRules struct {
	names    sets.String
	segments [][]string
}

// NewIgnoreRules parses the ignore entries. Blank entries are dropped and
// surrounding slashes are trimmed.
func NewIgnoreRules(entries []string) *IgnoreRules {
	r := &IgnoreRules{names: sets.String{}}
	for _, e := range entries {
		e = strings.Trim(path.Clean("/"+strings.ReplaceAll(strings.TrimSpace(e), `\`, "/")), "/")
		if e == "" || e == "." {
			continue
		}
		segs := strings.Split(e, "/")
		if len(segs) == 1 {
			r.names.Insert(e)
			continue
		}
		r.segments = append(r.segments, segs)
	}
	return r
}

// Match reports whether the slash-separated relative path is ignored.
func (r *IgnoreRules) Match(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	segs := strings.Split(rel, "/")
	for _, s := range segs {
		if r.names.Has(s) {
			return true
		}
	}
	for _, rule := range r.segments {
		if containsRun(segs, rule) {
			return true
		}
	}
	return false
}

// MatchName reports whether a single file or directory name is ignored on
// its own.
func (r *IgnoreRules) MatchName(name string) bool {
	return r.names.Has(name)
}

func containsRun(segs, run []string) bool {
	for i := 0; i+len(run) <= len(segs); i++ {
		matched := true
		for j := range run {
			if segs[i+j] != run[j] {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
