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
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"k8s.io/klog/v2"
	"sigs.k8s.io/kustomize/kyaml/sets"
)

// treeSet returns the slash-separated relative paths of the regular files
// below root that are not ignored. Ignored directories are not descended
// into.
func treeSet(root string, rules *IgnoreRules) (sets.String, error) {
	files := sets.String{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rules.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case d.IsDir():
			return nil
		case d.Type().IsRegular():
			files.Insert(rel)
		default:
			klog.Warningf("skipping %s: not a regular file", filepath.Join(root, rel))
		}
		return nil
	})
	return files, err
}

// classify sorts the union of both trees into changed, added, removed and
// unchanged paths by comparing file content byte for byte.
func classify(baseDir, workingDir string, rules *IgnoreRules) (Summary, error) {
	baseFiles, err := treeSet(baseDir, rules)
	if err != nil {
		return Summary{}, err
	}
	workingFiles, err := treeSet(workingDir, rules)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Added:   sortedList(workingFiles.Difference(baseFiles)),
		Removed: sortedList(baseFiles.Difference(workingFiles)),
	}
	for _, f := range sortedList(baseFiles.Intersection(workingFiles)) {
		equal, err := sameContent(filepath.Join(baseDir, filepath.FromSlash(f)),
			filepath.Join(workingDir, filepath.FromSlash(f)))
		if err != nil {
			return Summary{}, err
		}
		if equal {
			s.Unchanged = append(s.Unchanged, f)
		} else {
			s.Changed = append(s.Changed, f)
		}
	}
	return s, nil
}

// sortedList returns the members of s in lexical order, or nil if s is
// empty.
func sortedList(s sets.String) []string {
	if s.Len() == 0 {
		return nil
	}
	l := s.List()
	sort.Strings(l)
	return l
}

func sameContent(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if ai.Size() != bi.Size() {
		return false, nil
	}
	ab, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	bb, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}
