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

// Package patch reconstructs a working tree from a pristine tree and a
// patch set, writing the hunks that don't apply to a rejects directory.
package patch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/types"
	"github.com/kptdev/portpatch/internal/util/diff"
	"github.com/kptdev/portpatch/internal/util/pkgutil"
	"k8s.io/klog/v2"
)

// Mode controls how strictly hunks must match the base tree.
type Mode string

const (
	// Exact applies each patch as a whole at the declared positions. Any
	// conflict rejects every hunk of the file.
	Exact Mode = "exact"
	// Offset searches above and below the declared position for each hunk.
	Offset Mode = "offset"
	// Fuzzy is Offset plus retries with up to MaxFuzz context lines
	// dropped at each end of the hunk.
	Fuzzy Mode = "fuzzy"
)

// MaxFuzz is the number of context lines Fuzzy may drop at each end.
const MaxFuzz = 2

// Modes are the supported modes.
var Modes = []Mode{Exact, Offset, Fuzzy}

// ParseMode returns the Mode named by s. The empty string is Offset.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return Offset, nil
	}
	for _, m := range Modes {
		if string(m) == strings.ToLower(s) {
			return m, nil
		}
	}
	return "", errors.E(errors.Op("patch.ParseMode"), errors.InvalidParam,
		fmt.Errorf("unknown patch mode %q, must be one of %v", s, Modes))
}

// Status is the outcome of applying the patch for one file.
type Status string

const (
	// StatusApplied means every hunk was placed.
	StatusApplied Status = "applied"
	// StatusCreated means the patch added the file.
	StatusCreated Status = "created"
	// StatusDeleted means the patch removed the file.
	StatusDeleted Status = "deleted"
	// StatusRejected means at least one hunk could not be placed.
	StatusRejected Status = "rejected"
)

// FileResult is the outcome for a single patch.
type FileResult struct {
	// Path is the slash-separated path of the patched file.
	Path   string
	Status Status
	// Hunks is the number of hunks in the patch.
	Hunks int
	// RejectedHunks is the number of hunks written to RejectFile.
	RejectedHunks int
	// Offsets holds, per placed hunk, the distance in lines between where
	// it was declared and where it was applied.
	Offsets []int
	// RejectFile is the location of the rejects, if any.
	RejectFile string
}

// Summary collects the per-file outcomes of ApplyPatches in patch order.
type Summary struct {
	Files []FileResult
}

// Applied returns the paths of the files whose patch applied completely.
func (s Summary) Applied() []string {
	var paths []string
	for _, f := range s.Files {
		if f.Status != StatusRejected {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Rejected returns the paths of the files with rejected hunks.
func (s Summary) Rejected() []string {
	var paths []string
	for _, f := range s.Files {
		if f.Status == StatusRejected {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// RejectedHunks returns the total number of rejected hunks.
func (s Summary) RejectedHunks() int {
	var n int
	for _, f := range s.Files {
		n += f.RejectedHunks
	}
	return n
}

// ExitCode is 1 when hunks were rejected and 0 otherwise.
func (s Summary) ExitCode() int {
	if len(s.Rejected()) > 0 {
		return errors.ExitDifferences
	}
	return errors.ExitClean
}

// Applier applies patch sets.
type Applier struct {
	Mode Mode
}

// NewApplier returns an Applier using the given mode.
func NewApplier(mode Mode) *Applier {
	return &Applier{Mode: mode}
}

// ApplyPatches copies baseDir into outputDir and applies every *.patch file
// below patchesDir to it, in lexical order of the patch paths. When
// patchesDir is missing or empty the copy is all that happens.
//
// Rejected hunks are written to rejectsDir/<path>.rej and processing goes
// on with the next patch. If any file had rejects the returned error is a
// *errors.PatchesRejectedError. A patch that cannot be parsed is a hard
// failure and stops processing.
func (a *Applier) ApplyPatches(ctx context.Context, baseDir, patchesDir, outputDir, rejectsDir string) (Summary, error) {
	const op errors.Op = "patch.ApplyPatches"
	mode := a.Mode
	if mode == "" {
		mode = Offset
	}

	if err := pkgutil.CopyDir(ctx, baseDir, outputDir); err != nil {
		return Summary{}, errors.E(op, errors.PatchEngine, types.UniquePath(baseDir),
			fmt.Errorf("copying base tree: %w", err))
	}

	found, err := pkgutil.HasEntries(patchesDir)
	if err != nil {
		return Summary{}, errors.E(op, errors.PatchEngine, types.UniquePath(patchesDir), err)
	}
	if !found {
		klog.V(1).Infof("no patches in %s, using %s as is", patchesDir, baseDir)
		return Summary{}, nil
	}

	patches, err := listPatches(patchesDir)
	if err != nil {
		return Summary{}, errors.E(op, errors.PatchEngine, types.UniquePath(patchesDir), err)
	}

	var s Summary
	for _, rel := range patches {
		res, err := a.applyPatch(mode, patchesDir, rel, outputDir, rejectsDir)
		if err != nil {
			return s, errors.E(op, errors.PatchEngine, types.UniquePath(patchesDir), err)
		}
		s.Files = append(s.Files, res)
	}

	if rejected := s.Rejected(); len(rejected) > 0 {
		return s, &errors.PatchesRejectedError{Paths: rejected}
	}
	return s, nil
}

// listPatches returns the slash-separated paths of the patch files below
// dir in lexical order. Other files are skipped with a warning.
func listPatches(dir string) ([]string, error) {
	var patches []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !d.Type().IsRegular() || !strings.HasSuffix(rel, diff.PatchSuffix) {
			klog.Warningf("ignoring %s: not a %s file", p, diff.PatchSuffix)
			return nil
		}
		patches = append(patches, rel)
		return nil
	})
	sort.Strings(patches)
	return patches, err
}

func parsePatch(content []byte) (*gitdiff.File, error) {
	files, _, err := gitdiff.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("error parsing patch: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("patch did not specify any files")
	}
	if len(files) > 1 {
		return nil, fmt.Errorf("patch specified multiple files")
	}
	if files[0].IsBinary {
		return nil, fmt.Errorf("patch was a binary diff; expected text diff")
	}
	if files[0].IsCopy || files[0].IsRename {
		return nil, fmt.Errorf("patch was of an unexpected type (copy/rename)")
	}
	return files[0], nil
}

func (a *Applier) applyPatch(mode Mode, patchesDir, patchRel, outputDir, rejectsDir string) (FileResult, error) {
	content, err := os.ReadFile(filepath.Join(patchesDir, filepath.FromSlash(patchRel)))
	if err != nil {
		return FileResult{}, err
	}
	f, err := parsePatch(content)
	if err != nil {
		return FileResult{}, fmt.Errorf("%s: %w", patchRel, err)
	}

	name := f.NewName
	if f.IsDelete {
		name = f.OldName
	}
	rel := path.Clean(name)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return FileResult{}, fmt.Errorf("%s: patch names invalid path %q", patchRel, name)
	}
	if want := strings.TrimSuffix(patchRel, diff.PatchSuffix); want != rel {
		return FileResult{}, fmt.Errorf("%s: patch contained unexpected name; got %q, want %q", patchRel, rel, want)
	}

	res := FileResult{Path: rel, Hunks: len(f.TextFragments)}
	target := filepath.Join(outputDir, filepath.FromSlash(rel))
	old, err := os.ReadFile(target)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return res, err
	}

	reject := func(reason string, rejects []byte) (FileResult, error) {
		klog.Warningf("%s: %s", rel, reason)
		res.Status = StatusRejected
		if res.RejectedHunks == 0 {
			res.RejectedHunks = max(1, res.Hunks)
		}
		res.RejectFile, err = writeRejects(rejectsDir, rel, rejects)
		return res, err
	}

	switch {
	case f.IsNew && exists:
		return reject("patch creates a file that already exists", content)
	case !f.IsNew && !exists:
		return reject("patch targets a file that does not exist", content)
	case f.IsDelete:
		if !bytes.Equal(old, []byte(expectedOld(f))) {
			return reject("file to delete does not match the patch", content)
		}
		if err := os.Remove(target); err != nil {
			return res, err
		}
		res.Status = StatusDeleted
		return res, nil
	}

	var patched []byte
	var rejected []hunk
	if mode == Exact {
		var out bytes.Buffer
		if err := gitdiff.Apply(&out, bytes.NewReader(old), f); err != nil {
			klog.V(1).Infof("%s: %v", rel, err)
			for _, frag := range f.TextFragments {
				rejected = append(rejected, newHunk(frag))
			}
			patched = old
		} else {
			patched = out.Bytes()
			res.Offsets = make([]int, len(f.TextFragments))
		}
	} else {
		hunks := make([]hunk, 0, len(f.TextFragments))
		for _, frag := range f.TextFragments {
			hunks = append(hunks, newHunk(frag))
		}
		fuzz := 0
		if mode == Fuzzy {
			fuzz = MaxFuzz
		}
		var lines []string
		lines, rejected, res.Offsets = applyHunks(diff.SplitLines(old), hunks, fuzz)
		patched = []byte(strings.Join(lines, ""))
	}
	for i, o := range res.Offsets {
		if o != 0 {
			klog.V(1).Infof("%s: hunk %d applied with offset %d", rel, i+1, o)
		}
	}

	if f.IsNew {
		perm := os.FileMode(0644)
		if f.NewMode&0111 != 0 {
			perm = 0755
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return res, err
		}
		if err := os.WriteFile(target, patched, perm); err != nil {
			return res, err
		}
		res.Status = StatusCreated
	} else {
		if err := os.WriteFile(target, patched, 0644); err != nil {
			return res, err
		}
		res.Status = StatusApplied
	}

	if len(rejected) > 0 {
		res.RejectedHunks = len(rejected)
		return reject(fmt.Sprintf("%d of %d hunks rejected", len(rejected), res.Hunks),
			[]byte(formatRejects(rel, rejected)))
	}
	return res, nil
}

// expectedOld reassembles the content a delete patch expects to remove.
func expectedOld(f *gitdiff.File) string {
	var b strings.Builder
	for _, frag := range f.TextFragments {
		for _, l := range frag.Lines {
			if l.Op != gitdiff.OpAdd {
				b.WriteString(l.Line)
			}
		}
	}
	return b.String()
}
