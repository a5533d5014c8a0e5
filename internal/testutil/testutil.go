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
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
)

const TmpDirPrefix = "test-portpatch"

// TestGitRepo manages a local git repository for testing
type TestGitRepo struct {
	// RepoDirectory is the work tree root of the git repo
	RepoDirectory string

	// Repo is the go-git handle on the repository
	Repo *git.Repository

	t *testing.T
}

// NewTestGitRepo initializes an empty repository in a temp directory that
// is removed when the test ends.
func NewTestGitRepo(t *testing.T) *TestGitRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit(%q) failed: %v", dir, err)
	}
	return &TestGitRepo{RepoDirectory: dir, Repo: repo, t: t}
}

// WriteFile writes content to the slash-separated path rel in the work tree.
func (g *TestGitRepo) WriteFile(rel string, content string, perm os.FileMode) {
	g.t.Helper()
	WriteFile(g.t, g.RepoDirectory, rel, content, perm)
}

// Symlink creates a symlink at rel pointing to target.
func (g *TestGitRepo) Symlink(target, rel string) {
	g.t.Helper()
	p := filepath.Join(g.RepoDirectory, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		g.t.Fatalf("MkdirAll(%q) failed: %v", filepath.Dir(p), err)
	}
	if err := os.Symlink(target, p); err != nil {
		g.t.Fatalf("Symlink(%q, %q) failed: %v", target, p, err)
	}
}

// RemoveFile deletes the slash-separated path rel from the work tree.
func (g *TestGitRepo) RemoveFile(rel string) {
	g.t.Helper()
	if err := os.Remove(filepath.Join(g.RepoDirectory, filepath.FromSlash(rel))); err != nil {
		g.t.Fatalf("Remove(%q) failed: %v", rel, err)
	}
}

// Commit stages every change in the work tree, additions and deletions
// included, and commits it. It returns the new commit id.
func (g *TestGitRepo) Commit(message string) string {
	g.t.Helper()
	wt, err := g.Repo.Worktree()
	if err != nil {
		g.t.Fatalf("Worktree() failed: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		g.t.Fatalf("Add failed: %v", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		All: true,
		Author: &object.Signature{
			Name:  "Port Patch",
			Email: "portpatch@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		g.t.Fatalf("Commit(%q) failed: %v", message, err)
	}
	return hash.String()
}

// CommitFiles writes files and commits them in one step.
func (g *TestGitRepo) CommitFiles(message string, files map[string]string) string {
	g.t.Helper()
	for rel, content := range files {
		g.WriteFile(rel, content, 0644)
	}
	return g.Commit(message)
}

// CreateBranch points a branch at the given commit without checking it out.
func (g *TestGitRepo) CreateBranch(name, commit string) {
	g.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(commit))
	if err := g.Repo.Storer.SetReference(ref); err != nil {
		g.t.Fatalf("SetReference(%q) failed: %v", name, err)
	}
}

// CreateTag creates an annotated tag on the given commit.
func (g *TestGitRepo) CreateTag(name, commit string) {
	g.t.Helper()
	_, err := g.Repo.CreateTag(name, plumbing.NewHash(commit), &git.CreateTagOptions{
		Tagger: &object.Signature{
			Name:  "Port Patch",
			Email: "portpatch@example.com",
			When:  time.Now(),
		},
		Message: name,
	})
	if err != nil {
		g.t.Fatalf("CreateTag(%q) failed: %v", name, err)
	}
}

// Head returns the commit id HEAD points at.
func (g *TestGitRepo) Head() string {
	g.t.Helper()
	ref, err := g.Repo.Head()
	if err != nil {
		g.t.Fatalf("Head() failed: %v", err)
	}
	return ref.Hash().String()
}

// WriteFile writes content to the slash-separated path rel below dir,
// creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string, perm os.FileMode) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("MkdirAll(%q) failed: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), perm); err != nil {
		t.Fatalf("WriteFile(%q) failed: %v", p, err)
	}
}

// WriteTree writes every file of tree below dir.
func WriteTree(t *testing.T, dir string, tree map[string]string) {
	t.Helper()
	for rel, content := range tree {
		WriteFile(t, dir, rel, content, 0644)
	}
}

// ReadTree returns the regular files below dir keyed by their
// slash-separated relative path. A missing dir reads as an empty tree.
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %q failed: %v", dir, err)
	}
	return tree
}

// AssertTree fails the test if the files below dir differ from expected.
func AssertTree(t *testing.T, expected map[string]string, dir string) bool {
	t.Helper()
	if diff := cmp.Diff(expected, ReadTree(t, dir)); diff != "" {
		t.Errorf("unexpected tree %s (-want +got):\n%s", dir, diff)
		return false
	}
	return true
}

// AssertTreesEqual fails the test if the files below a and b differ.
func AssertTreesEqual(t *testing.T, a, b string) bool {
	t.Helper()
	if diff := cmp.Diff(ReadTree(t, a), ReadTree(t, b)); diff != "" {
		t.Errorf("trees %s and %s differ (-a +b):\n%s", a, b, diff)
		return false
	}
	return true
}
