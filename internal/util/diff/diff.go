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

// Package diff turns the difference between a pristine tree and an edited
// tree into one unified-diff patch file per changed path.
package diff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/types"
	"k8s.io/klog/v2"
)

// PatchSuffix is appended to the relative path of a file to name its patch.
const PatchSuffix = ".patch"

// DefaultContext is the number of unchanged lines written around each
// change.
const DefaultContext = 3

// Summary lists the relative paths of the compared files by outcome.
type Summary struct {
	Changed   []string
	Added     []string
	Removed   []string
	Unchanged []string
}

// Differences returns the number of files a patch was written for.
func (s Summary) Differences() int {
	return len(s.Changed) + len(s.Added) + len(s.Removed)
}

// Patched returns the relative paths of every file a patch was written for,
// in lexical order.
func (s Summary) Patched() []string {
	var paths []string
	paths = append(paths, s.Changed...)
	paths = append(paths, s.Added...)
	paths = append(paths, s.Removed...)
	sort.Strings(paths)
	return paths
}

// ExitCode follows diff(1): 0 when the trees are the same, 1 when they
// differ. Differences are not a failure.
func (s Summary) ExitCode() int {
	if s.Differences() > 0 {
		return errors.ExitDifferences
	}
	return errors.ExitClean
}

// Codec generates patch sets.
type Codec struct {
	// Context is the number of context lines per hunk. Zero means
	// DefaultContext.
	Context int
}

// NewCodec returns a Codec using DefaultContext.
func NewCodec() *Codec {
	return &Codec{Context: DefaultContext}
}

// GeneratePatches compares baseDir with workingDir and writes a patch for
// every changed, added or removed file to outputDir/<path>.patch. Paths
// matched by ignore are skipped. outputDir is expected to be empty, stale
// patches in it are not removed.
func (c *Codec) GeneratePatches(_ context.Context, baseDir, workingDir, outputDir string, ignore []string) (Summary, error) {
	const op errors.Op = "diff.GeneratePatches"
	rules := NewIgnoreRules(ignore)

	s, err := classify(baseDir, workingDir, rules)
	if err != nil {
		return Summary{}, errors.E(op, errors.DiffEngine, err)
	}
	klog.V(1).Infof("diff %s %s: %d changed, %d added, %d removed, %d unchanged",
		baseDir, workingDir, len(s.Changed), len(s.Added), len(s.Removed), len(s.Unchanged))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return Summary{}, errors.E(op, errors.DiffEngine, types.UniquePath(outputDir), err)
	}

	contextLines := c.Context
	if contextLines <= 0 {
		contextLines = DefaultContext
	}
	for _, group := range []struct {
		paths  []string
		change Change
	}{
		{s.Changed, Modified},
		{s.Added, Added},
		{s.Removed, Removed},
	} {
		for _, rel := range group.paths {
			fd, err := loadFileDiff(baseDir, workingDir, rel, group.change)
			if err != nil {
				return Summary{}, errors.E(op, errors.DiffEngine, err)
			}
			if err := writePatch(outputDir, fd, contextLines); err != nil {
				return Summary{}, errors.E(op, errors.DiffEngine, types.UniquePath(outputDir), err)
			}
		}
	}
	return s, nil
}

func loadFileDiff(baseDir, workingDir, rel string, change Change) (FileDiff, error) {
	fd := FileDiff{Path: rel, Change: change}
	basePath := filepath.Join(baseDir, filepath.FromSlash(rel))
	workingPath := filepath.Join(workingDir, filepath.FromSlash(rel))
	var err error
	switch change {
	case Modified:
		if fd.Old, err = os.ReadFile(basePath); err != nil {
			return fd, err
		}
		fd.New, err = os.ReadFile(workingPath)
	case Added:
		if fd.New, err = os.ReadFile(workingPath); err != nil {
			return fd, err
		}
		fd.Executable, err = isExecutable(workingPath)
	case Removed:
		if fd.Old, err = os.ReadFile(basePath); err != nil {
			return fd, err
		}
		fd.Executable, err = isExecutable(basePath)
	}
	return fd, err
}

func isExecutable(p string) (bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0100 != 0, nil
}

// PatchPath returns the location of the patch for rel below patchesDir.
func PatchPath(patchesDir, rel string) string {
	return filepath.Join(patchesDir, filepath.FromSlash(rel)+PatchSuffix)
}

func writePatch(outputDir string, fd FileDiff, contextLines int) error {
	var buf bytes.Buffer
	if err := WriteUnified(&buf, fd, contextLines); err != nil {
		return err
	}
	dst := PatchPath(outputDir, fd.Path)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing patch for %s: %w", fd.Path, err)
	}
	klog.V(1).Infof("wrote %s", dst)
	return nil
}
