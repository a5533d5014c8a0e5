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

package porting

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/gitutil"
	"github.com/kptdev/portpatch/internal/types"
	"github.com/kptdev/portpatch/internal/util/diff"
	"github.com/kptdev/portpatch/internal/util/patch"
	"github.com/kptdev/portpatch/internal/util/pkgutil"
)

// State is the lifecycle stage of a target.
type State string

const (
	// Uninitialized means there is no upstream tree.
	Uninitialized State = "Uninitialized"
	// UpstreamFetched means the upstream tree exists but the target has no
	// working tree.
	UpstreamFetched State = "UpstreamFetched"
	// WorkingTreeReady means the working tree was materialized and can be
	// edited.
	WorkingTreeReady State = "WorkingTreeReady"
	// PatchesRegenerated means the patch set was written after the working
	// tree was materialized.
	PatchesRegenerated State = "PatchesRegenerated"
)

// TargetStatus is the on-disk state of one target.
type TargetStatus struct {
	Target types.TargetName
	State  State
	// Patches is the number of patch files in the target's patch set.
	Patches int
	// Rejects holds the slash-separated paths of files with rejects left
	// from the last setup.
	Rejects []string
}

// Status describes the workflow directories as they are on disk.
type Status struct {
	// Commit is the commit id recorded in the commit marker, if any.
	Commit  string
	Targets []TargetStatus
}

// Status infers the state of every target from the filesystem. It never
// modifies anything.
func (w *Workflow) Status(_ context.Context) (Status, error) {
	const op errors.Op = "porting.Status"
	var s Status

	commit, _, err := gitutil.ReadCommitMarker(w.dirs.CommitMarker)
	if err != nil {
		return s, errors.E(op, err)
	}
	s.Commit = commit

	fetched, err := pkgutil.Exists(w.dirs.Upstream)
	if err != nil {
		return s, errors.E(op, errors.IO, types.UniquePath(w.dirs.Upstream), err)
	}

	for _, t := range w.pf.Targets {
		ts := TargetStatus{Target: t.Name, State: Uninitialized}
		ts.Patches, err = countFiles(w.PatchesDir(t), diff.PatchSuffix)
		if err == nil {
			ts.Rejects, err = listFiles(w.RejectsDir(t), patch.RejectSuffix)
		}
		if err == nil && fetched {
			ts.State, err = w.targetState(w.WorkingDir(t), w.PatchesDir(t))
		}
		if err != nil {
			return s, errors.E(op, t.Name, errors.IO, err)
		}
		s.Targets = append(s.Targets, ts)
	}
	return s, nil
}

func (w *Workflow) targetState(working, patches string) (State, error) {
	wi, err := os.Stat(working)
	if os.IsNotExist(err) {
		return UpstreamFetched, nil
	}
	if err != nil {
		return "", err
	}
	pi, err := os.Stat(patches)
	if os.IsNotExist(err) {
		return WorkingTreeReady, nil
	}
	if err != nil {
		return "", err
	}
	// generation recreates the patch directory
	if pi.ModTime().After(wi.ModTime()) {
		return PatchesRegenerated, nil
	}
	return WorkingTreeReady, nil
}

func countFiles(dir, suffix string) (int, error) {
	files, err := listFiles(dir, suffix)
	return len(files), err
}

// listFiles returns the slash-separated paths below dir of the regular
// files ending in suffix, with the suffix removed. A missing dir has none.
func listFiles(dir, suffix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == dir {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(p, suffix) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, strings.TrimSuffix(filepath.ToSlash(rel), suffix))
		return nil
	})
	return files, err
}
