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

// Package porting composes the extractor, the patch codec and the patch
// applier into the workflow that keeps a fork's targets in sync with an
// upstream reference.
package porting

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/gitutil"
	"github.com/kptdev/portpatch/internal/portfile"
	"github.com/kptdev/portpatch/internal/printer"
	"github.com/kptdev/portpatch/internal/types"
	"github.com/kptdev/portpatch/internal/util/diff"
	"github.com/kptdev/portpatch/internal/util/patch"
	"github.com/kptdev/portpatch/internal/util/pkgutil"
	"k8s.io/klog/v2"
)

// Extractor writes the tree of a commit to a directory.
type Extractor interface {
	Extract(ctx context.Context, repoLocation, refOrCommitID, destinationDir string) (string, error)
}

// PatchGenerator derives a patch set from two trees.
type PatchGenerator interface {
	GeneratePatches(ctx context.Context, baseDir, workingDir, outputDir string, ignore []string) (diff.Summary, error)
}

// PatchApplier rebuilds a tree from a base tree and a patch set.
type PatchApplier interface {
	ApplyPatches(ctx context.Context, baseDir, patchesDir, outputDir, rejectsDir string) (patch.Summary, error)
}

// Workflow runs the porting operations for every target of a Portfile.
// Operations on the same Workflow must not run concurrently.
type Workflow struct {
	root string
	pf   *portfile.Portfile
	dirs portfile.Directories

	extractor Extractor
	codec     PatchGenerator
	applier   PatchApplier
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithExtractor replaces the git extractor.
func WithExtractor(e Extractor) Option {
	return func(w *Workflow) { w.extractor = e }
}

// WithPatchGenerator replaces the patch codec.
func WithPatchGenerator(g PatchGenerator) Option {
	return func(w *Workflow) { w.codec = g }
}

// WithPatchApplier replaces the patch applier. By default the applier uses
// the patch mode of the Portfile.
func WithPatchApplier(a PatchApplier) Option {
	return func(w *Workflow) { w.applier = a }
}

// WithEnvironment applies the overrides in env to the Portfile.
func WithEnvironment(env portfile.Environment) Option {
	return func(w *Workflow) { w.pf = w.pf.WithEnvironment(env) }
}

// New returns a Workflow for pf. Relative locations in pf resolve against
// root, which is normally the directory holding the Portfile.
func New(root string, pf *portfile.Portfile, opts ...Option) *Workflow {
	w := &Workflow{
		root:      root,
		pf:        pf.DeepCopy(),
		extractor: gitutil.NewExtractor(),
		codec:     diff.NewCodec(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.dirs = w.pf.Directories.Abs(root)
	if w.applier == nil {
		w.applier = patch.NewApplier(patch.Mode(w.pf.PatchMode))
	}
	return w
}

// Portfile returns the effective configuration, overrides included.
func (w *Workflow) Portfile() *portfile.Portfile {
	return w.pf.DeepCopy()
}

// Directories returns the absolute workflow layout.
func (w *Workflow) Directories() portfile.Directories {
	return w.dirs
}

// WorkingDir returns the working tree of target t.
func (w *Workflow) WorkingDir(t portfile.Target) string {
	return filepath.Join(w.dirs.Workspace, string(t.Name))
}

// PatchesDir returns the patch set of target t.
func (w *Workflow) PatchesDir(t portfile.Target) string {
	return filepath.Join(w.dirs.Patches, string(t.Name))
}

// RejectsDir returns the rejects of target t.
func (w *Workflow) RejectsDir(t portfile.Target) string {
	return filepath.Join(w.dirs.Rejects, string(t.Name))
}

// SourceDir returns the externally visible sources of target t.
func (w *Workflow) SourceDir(t portfile.Target) string {
	return w.resolve(t.SourceDir())
}

func (w *Workflow) repoLocation() string {
	return w.resolve(w.pf.Upstream.Repo)
}

func (w *Workflow) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(w.root, filepath.FromSlash(p))
}

// SetupReport describes the outcome of SetupWorkspace.
type SetupReport struct {
	// Commit is the upstream commit the working trees are based on.
	Commit string
	// PreviousCommit is the commit recorded by the marker before setup,
	// if there was one.
	PreviousCommit string
	// Targets holds the apply outcome per target, in configuration order.
	Targets []TargetApply
}

// TargetApply is the apply outcome of one target.
type TargetApply struct {
	Target portfile.Target
	// Copied is true when the target had no patches and the upstream tree
	// was used as is.
	Copied  bool
	Summary patch.Summary
}

// SetupWorkspace extracts the upstream ref and materializes the working
// tree of every target from it. Rejects of all targets are collected and
// returned together once every target was processed.
func (w *Workflow) SetupWorkspace(ctx context.Context) (SetupReport, error) {
	const op errors.Op = "porting.SetupWorkspace"
	pr := printer.FromContextOrDie(ctx)
	var report SetupReport

	if err := w.validate(); err != nil {
		return report, errors.E(op, errors.Configuration, err)
	}

	pr.Printf("Setting up workspace\n")
	for _, dir := range []string{w.dirs.Upstream, w.dirs.Workspace} {
		if err := os.RemoveAll(dir); err != nil {
			return report, errors.E(op, errors.IO, types.UniquePath(dir), err)
		}
	}

	previous, found, err := gitutil.ReadCommitMarker(w.dirs.CommitMarker)
	if err != nil {
		return report, errors.E(op, err)
	}
	report.PreviousCommit = previous

	pr.Printf("Pulling %s@%s into %s\n", w.pf.Upstream.Repo, w.pf.Upstream.Ref, w.rel(w.dirs.Upstream))
	commit, err := w.extractor.Extract(ctx, w.repoLocation(), w.pf.Upstream.Ref, w.dirs.Upstream)
	if err != nil {
		return report, errors.E(op, err)
	}
	report.Commit = commit

	switch {
	case !found:
		if err := gitutil.WriteCommitMarker(w.dirs.CommitMarker, commit); err != nil {
			return report, errors.E(op, err)
		}
	case previous != commit:
		klog.Infof("upstream moved from %s to %s since the commit marker was written", previous, commit)
		pr.OptPrintf(printer.NewOpt().Stderr(),
			"[Warn] %s records %s but %s resolves to %s\n", w.rel(w.dirs.CommitMarker), previous, w.pf.Upstream.Ref, commit)
	}
	// the upstream tree must exist even when the commit is empty
	if err := os.MkdirAll(w.dirs.Upstream, 0755); err != nil {
		return report, errors.E(op, errors.IO, types.UniquePath(w.dirs.Upstream), err)
	}

	var rejected []string
	for _, t := range w.pf.Targets {
		res, err := w.applyTarget(ctx, t)
		report.Targets = append(report.Targets, res)
		var rejErr *errors.PatchesRejectedError
		switch {
		case errors.As(err, &rejErr):
			for _, p := range rejErr.Paths {
				rejected = append(rejected, path.Join(string(t.Name), p))
			}
		case err != nil:
			return report, errors.E(op, t.Name, err)
		}
	}

	if len(rejected) > 0 {
		pr.OptPrintf(printer.NewOpt().Stderr(),
			"Patches failed to apply for %d file(s), see %s\n", len(rejected), w.rel(w.dirs.Rejects))
		return report, &errors.PatchesRejectedError{Paths: rejected}
	}
	pr.Printf("\nSet up %d target(s) at %s.\n", len(w.pf.Targets), shortCommit(commit))
	return report, nil
}

func (w *Workflow) applyTarget(ctx context.Context, t portfile.Target) (TargetApply, error) {
	pr := printer.FromContextOrDie(ctx)
	res := TargetApply{Target: t}
	patches, out, rejects := w.PatchesDir(t), w.WorkingDir(t), w.RejectsDir(t)

	if err := os.RemoveAll(rejects); err != nil {
		return res, errors.E(errors.IO, types.UniquePath(rejects), err)
	}
	found, err := pkgutil.HasEntries(patches)
	if err != nil {
		return res, errors.E(errors.IO, types.UniquePath(patches), err)
	}
	res.Copied = !found
	if res.Copied {
		pr.OptPrintf(printer.NewOpt().Target(t.Name), "copying upstream into %s\n", w.rel(out))
	} else {
		pr.OptPrintf(printer.NewOpt().Target(t.Name), "patching %s\n", w.rel(out))
	}

	res.Summary, err = w.applier.ApplyPatches(ctx, w.dirs.Upstream, patches, out, rejects)
	if err != nil {
		if errors.Is(err, errors.PatchesRejected) {
			pr.OptPrintf(printer.NewOpt().Target(t.Name).Stderr(),
				"%d file(s) rejected, see %s\n", len(res.Summary.Rejected()), w.rel(rejects))
		}
		return res, err
	}
	if !res.Copied {
		pr.OptPrintf(printer.NewOpt().Target(t.Name), "applied %d patch(es)\n", len(res.Summary.Files))
	}
	return res, nil
}

// UpdateCommitRef extracts the configured upstream ref and records its
// commit in the marker, without touching any working tree. A missing or
// placeholder ref is returned as an error. Failures after that are logged
// and swallowed and the returned commit is empty.
//
// TODO(portpatch): decide whether a failed refresh should fail composite
// operations such as RebuildPatches, since it leaves the marker stale.
func (w *Workflow) UpdateCommitRef(ctx context.Context) (string, error) {
	const op errors.Op = "porting.UpdateCommitRef"
	pr := printer.FromContextOrDie(ctx)

	if err := w.pf.ValidateUpstream(); err != nil {
		return "", errors.E(op, errors.Configuration, err)
	}
	if err := w.pf.ValidateLayout(w.root); err != nil {
		return "", errors.E(op, errors.Configuration, err)
	}

	pr.Printf("Updating commit reference\n")
	commit, err := w.extractor.Extract(ctx, w.repoLocation(), w.pf.Upstream.Ref, w.dirs.Upstream)
	if err == nil {
		err = gitutil.WriteCommitMarker(w.dirs.CommitMarker, commit)
	}
	if err != nil {
		klog.Errorf("Failed to update commit ref: %v", errors.E(op, err))
		return "", nil
	}
	pr.Printf("Recorded %s in %s\n", shortCommit(commit), w.rel(w.dirs.CommitMarker))
	return commit, nil
}

// TargetDiff is the patch generation outcome of one target.
type TargetDiff struct {
	Target  portfile.Target
	Summary diff.Summary
}

// GeneratePatches regenerates the patch set of every target from the
// difference between the upstream tree and its working tree. It stops at
// the first target that fails.
func (w *Workflow) GeneratePatches(ctx context.Context) ([]TargetDiff, error) {
	const op errors.Op = "porting.GeneratePatches"
	pr := printer.FromContextOrDie(ctx)
	var diffs []TargetDiff

	if len(w.pf.Targets) == 0 {
		return nil, errors.E(op, errors.Configuration, "no targets configured")
	}
	if err := w.pf.ValidateLayout(w.root); err != nil {
		return nil, errors.E(op, errors.Configuration, err)
	}
	if err := w.requireDir(w.dirs.Upstream, "upstream tree"); err != nil {
		return nil, errors.E(op, err)
	}

	pr.Printf("Generating patches\n")
	for _, t := range w.pf.Targets {
		working, out := w.WorkingDir(t), w.PatchesDir(t)
		if err := w.requireDir(working, "working tree"); err != nil {
			return diffs, errors.E(op, t.Name, err)
		}
		if err := pkgutil.Clear(out); err != nil {
			return diffs, errors.E(op, t.Name, errors.IO, types.UniquePath(out), err)
		}

		s, err := w.codec.GeneratePatches(ctx, w.dirs.Upstream, working, out, w.pf.Ignore)
		if err != nil {
			return diffs, errors.E(op, t.Name, err)
		}
		if err := diff.Prune(out, w.pf.Ignore); err != nil {
			return diffs, errors.E(op, t.Name, err)
		}
		diffs = append(diffs, TargetDiff{Target: t, Summary: s})
		pr.OptPrintf(printer.NewOpt().Target(t.Name), "%d changed, %d added, %d removed, %d unchanged\n",
			len(s.Changed), len(s.Added), len(s.Removed), len(s.Unchanged))
	}
	pr.Printf("\nGenerated patches for %d target(s).\n", len(diffs))
	return diffs, nil
}

// RebuildPatches throws away every patch set and regenerates them from the
// target source directories against a fresh upstream tree.
func (w *Workflow) RebuildPatches(ctx context.Context) error {
	const op errors.Op = "porting.RebuildPatches"
	pr := printer.FromContextOrDie(ctx)

	if err := w.validate(); err != nil {
		return errors.E(op, errors.Configuration, err)
	}
	if err := os.RemoveAll(w.dirs.Patches); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(w.dirs.Patches), err)
	}
	if err := w.CleanWorkspace(ctx); err != nil {
		return errors.E(op, err)
	}
	if _, err := w.UpdateCommitRef(ctx); err != nil {
		return errors.E(op, err)
	}
	// without patches every working tree is a plain copy of upstream
	if _, err := w.SetupWorkspace(ctx); err != nil {
		return errors.E(op, err)
	}

	for _, t := range w.pf.Targets {
		src, working := w.SourceDir(t), w.WorkingDir(t)
		if err := w.requireDir(src, "source directory"); err != nil {
			return errors.E(op, t.Name, err)
		}
		pr.OptPrintf(printer.NewOpt().Target(t.Name), "rebuilding patches from %s\n", w.rel(src))
		if err := os.RemoveAll(working); err != nil {
			return errors.E(op, t.Name, errors.IO, types.UniquePath(working), err)
		}
		if err := pkgutil.CopyDir(ctx, src, working); err != nil {
			return errors.E(op, t.Name, errors.IO, types.UniquePath(src), err)
		}
	}

	if _, err := w.GeneratePatches(ctx); err != nil {
		return errors.E(op, err)
	}
	if err := w.CleanWorkspace(ctx); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// CleanWorkspace removes the upstream tree, the working trees and the
// scratch directory. Patches and the commit marker are kept.
func (w *Workflow) CleanWorkspace(ctx context.Context) error {
	const op errors.Op = "porting.CleanWorkspace"
	pr := printer.FromContextOrDie(ctx)
	if err := w.pf.ValidateLayout(w.root); err != nil {
		return errors.E(op, errors.Configuration, err)
	}
	for _, dir := range []string{w.dirs.Workspace, w.dirs.Upstream, w.dirs.Scratch} {
		klog.V(1).Infof("removing %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return errors.E(op, errors.IO, types.UniquePath(dir), err)
		}
	}
	pr.Printf("Cleaned up working directories\n")
	return nil
}

// SplitSources replaces the source directory of every target with a copy
// of its working tree.
func (w *Workflow) SplitSources(ctx context.Context) error {
	const op errors.Op = "porting.SplitSources"
	pr := printer.FromContextOrDie(ctx)

	if err := w.pf.ValidateLayout(w.root); err != nil {
		return errors.E(op, errors.Configuration, err)
	}
	if err := w.requireDir(w.dirs.Workspace, "working directory"); err != nil {
		return errors.E(op, err)
	}

	pr.Printf("Splitting sources into individual directories\n")
	for _, t := range w.pf.Targets {
		working, src := w.WorkingDir(t), w.SourceDir(t)
		if err := w.requireDir(working, "working tree"); err != nil {
			return errors.E(op, t.Name, err)
		}
		if err := os.RemoveAll(src); err != nil {
			return errors.E(op, t.Name, errors.IO, types.UniquePath(src), err)
		}
		if err := pkgutil.CopyDir(ctx, working, src); err != nil {
			return errors.E(op, t.Name, errors.IO, types.UniquePath(working), err)
		}
		pr.OptPrintf(printer.NewOpt().Target(t.Name), "copied %s to %s\n", w.rel(working), w.rel(src))
	}
	return nil
}

// validate checks the configuration and the directory layout under root.
func (w *Workflow) validate() error {
	if err := w.pf.Validate(); err != nil {
		return err
	}
	return w.pf.ValidateLayout(w.root)
}

// requireDir returns a Configuration error naming what when dir is not an
// existing directory.
func (w *Workflow) requireDir(dir, what string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return errors.E(errors.Configuration, types.UniquePath(dir),
			fmt.Errorf("%s %s does not exist, run setup first", what, w.rel(dir)))
	case err != nil:
		return errors.E(errors.IO, types.UniquePath(dir), err)
	case !info.IsDir():
		return errors.E(errors.Configuration, types.UniquePath(dir),
			fmt.Errorf("%s %s is not a directory", what, w.rel(dir)))
	}
	return nil
}

// rel shortens p for display.
func (w *Workflow) rel(p string) string {
	r, err := filepath.Rel(w.root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(r)
}

func shortCommit(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
