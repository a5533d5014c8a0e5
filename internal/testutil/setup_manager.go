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

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/portpatch/internal/portfile"
	"github.com/kptdev/portpatch/internal/types"
)

// UpstreamBranch is the branch TestSetupManager moves on every upstream
// change.
const UpstreamBranch = "upstream"

// TestSetupManager prepares a fork root with a Portfile next to an
// upstream repository.
type TestSetupManager struct {
	T *testing.T

	// Targets are the porting targets written to the Portfile.
	Targets []portfile.Target

	// UpstreamInit is committed to the upstream repository by Init.
	UpstreamInit map[string]string

	// Sources are written below the fork root by Init, keyed by target.
	Sources map[types.TargetName]map[string]string

	UpstreamRepo *TestGitRepo

	// ForkRoot holds the Portfile and every workflow directory.
	ForkRoot string

	// Commits are the upstream commits in the order they were made.
	Commits []string
}

// Init creates the upstream repository and the fork root, commits
// UpstreamInit, points UpstreamBranch at it and writes the Portfile.
func (g *TestSetupManager) Init() bool {
	g.T.Helper()
	g.UpstreamRepo = NewTestGitRepo(g.T)
	g.ForkRoot = g.T.TempDir()

	g.UpdateUpstream(g.UpstreamInit)
	for name, files := range g.Sources {
		WriteTree(g.T, filepath.Join(g.ForkRoot, string(name)), files)
	}
	return g.WritePortfile(g.Portfile())
}

// Portfile returns the Portfile Init writes.
func (g *TestSetupManager) Portfile() *portfile.Portfile {
	pf := portfile.Default()
	pf.Name = "fork"
	pf.Upstream.Repo = g.UpstreamRepo.RepoDirectory
	pf.Upstream.Ref = UpstreamBranch
	pf.Targets = append([]portfile.Target(nil), g.Targets...)
	return pf
}

// WritePortfile replaces the Portfile in the fork root.
func (g *TestSetupManager) WritePortfile(pf *portfile.Portfile) bool {
	g.T.Helper()
	b, err := pf.Encode()
	if err != nil {
		g.T.Errorf("encoding Portfile failed: %v", err)
		return false
	}
	if err := os.WriteFile(g.PortfilePath(), b, 0644); err != nil {
		g.T.Errorf("writing Portfile failed: %v", err)
		return false
	}
	return true
}

// PortfilePath is the location of the Portfile.
func (g *TestSetupManager) PortfilePath() string {
	return filepath.Join(g.ForkRoot, portfile.PortfileName)
}

// UpdateUpstream writes files to the upstream repository, commits them and
// moves UpstreamBranch to the new commit.
func (g *TestSetupManager) UpdateUpstream(files map[string]string) string {
	g.T.Helper()
	for rel, content := range files {
		g.UpstreamRepo.WriteFile(rel, content, 0644)
	}
	commit := g.UpstreamRepo.Commit("upstream change")
	g.UpstreamRepo.CreateBranch(UpstreamBranch, commit)
	g.Commits = append(g.Commits, commit)
	return commit
}

// RemoveUpstream deletes files from the upstream repository and commits.
func (g *TestSetupManager) RemoveUpstream(rels ...string) string {
	g.T.Helper()
	for _, rel := range rels {
		g.UpstreamRepo.RemoveFile(rel)
	}
	commit := g.UpstreamRepo.Commit("upstream removal")
	g.UpstreamRepo.CreateBranch(UpstreamBranch, commit)
	g.Commits = append(g.Commits, commit)
	return commit
}

// Path joins the slash-separated rel to the fork root.
func (g *TestSetupManager) Path(rel string) string {
	return filepath.Join(g.ForkRoot, filepath.FromSlash(rel))
}

// AssertDir checks the files below the slash-separated rel in the fork
// root.
func (g *TestSetupManager) AssertDir(rel string, expected map[string]string) bool {
	g.T.Helper()
	return AssertTree(g.T, expected, g.Path(rel))
}
