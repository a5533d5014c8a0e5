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

// Package gitutil extracts file trees from git commits and records the
// extracted commit.
package gitutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/types"
	"k8s.io/klog/v2"
)

// Extractor materializes the tree of a commit into a plain directory. It
// reads the object database only, so the repository's work tree, index and
// HEAD are never touched.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract resolves refOrCommitID in the repository at repoLocation and
// writes every regular file of the commit's tree below destinationDir. It
// returns the full id of the extracted commit.
//
// repoLocation may be the work tree root, a directory inside it, or a bare
// repository. Files already present in destinationDir are replaced, files
// that are not part of the commit are left alone.
func (e *Extractor) Extract(_ context.Context, repoLocation, refOrCommitID, destinationDir string) (string, error) {
	const op errors.Op = "gitutil.Extract"

	repo, err := git.PlainOpenWithOptions(repoLocation, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", errors.E(op, errors.Git, types.UniquePath(repoLocation),
			fmt.Errorf("cannot open git repository: %w", err))
	}
	defer closeRepo(repo)

	commit, err := resolveCommit(repo, refOrCommitID)
	if err != nil {
		return "", errors.E(op, types.UniquePath(repoLocation), err)
	}
	klog.V(1).Infof("resolved %q to commit %s", refOrCommitID, commit.Hash)

	tree, err := commit.Tree()
	if err != nil {
		return "", errors.E(op, errors.Git, types.UniquePath(repoLocation),
			fmt.Errorf("cannot read tree of commit %s: %w", commit.Hash, err))
	}

	if err := os.MkdirAll(destinationDir, 0755); err != nil {
		return "", errors.E(op, errors.IO, types.UniquePath(destinationDir), err)
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		var perm os.FileMode
		switch f.Mode {
		case filemode.Regular, filemode.Deprecated:
			perm = 0644
		case filemode.Executable:
			perm = 0755
		default:
			klog.Warningf("skipping %s: not a regular file (mode %s)", f.Name, f.Mode)
			return nil
		}
		return writeBlob(f, destinationDir, perm)
	})
	if err != nil {
		return "", errors.E(op, types.UniquePath(destinationDir), err)
	}
	return commit.Hash.String(), nil
}

// resolveCommit turns a branch, tag, or full or abbreviated commit id into
// a commit. Annotated tags are peeled.
func resolveCommit(repo *git.Repository, ref string) (*object.Commit, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errors.E(errors.ReferenceNotFound, "empty reference")
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		commit, err := repo.CommitObject(*hash)
		if err == nil {
			return commit, nil
		}
		return nil, classify(ref, err)
	}

	// annotated tags resolve to the tag object, not the commit
	tagRef, tagErr := repo.Reference(plumbing.NewTagReferenceName(ref), true)
	if tagErr != nil {
		return nil, unresolved(ref, err)
	}
	tag, tagErr := repo.TagObject(tagRef.Hash())
	if tagErr != nil {
		return nil, unresolved(ref, err)
	}
	commit, tagErr := tag.Commit()
	if tagErr != nil {
		return nil, classify(ref, tagErr)
	}
	return commit, nil
}

func writeBlob(f *object.File, destinationDir string, perm os.FileMode) error {
	rel := path.Clean(f.Name)
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return errors.E(errors.Git, fmt.Errorf("tree entry %q escapes the destination", f.Name))
	}
	dst := filepath.Join(destinationDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.E(errors.IO, err)
	}
	// an existing file may carry other permissions, start from scratch
	if err := os.RemoveAll(dst); err != nil {
		return errors.E(errors.IO, err)
	}

	r, err := f.Reader()
	if err != nil {
		return errors.E(errors.Git, fmt.Errorf("cannot read blob %s for %s: %w", f.Hash, f.Name, err))
	}
	defer r.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.E(errors.IO, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.E(errors.IO, fmt.Errorf("writing %s: %w", dst, err))
	}
	if err := out.Close(); err != nil {
		return errors.E(errors.IO, err)
	}
	// umask may have stripped bits on create
	if err := os.Chmod(dst, perm); err != nil {
		return errors.E(errors.IO, err)
	}
	klog.V(2).Infof("extracted %s", f.Name)
	return nil
}

func closeRepo(repo *git.Repository) {
	if c, ok := repo.Storer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			klog.Warningf("closing repository storage: %v", err)
		}
	}
}
