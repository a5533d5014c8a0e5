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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/gitutil"
	"github.com/kptdev/portpatch/internal/portfile"
	"github.com/kptdev/portpatch/internal/printer/fake"
	"github.com/kptdev/portpatch/internal/testutil"
	"github.com/kptdev/portpatch/internal/types"
	"github.com/kptdev/portpatch/internal/util/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upstreamFiles = map[string]string{
	"README.md":       "line1\n",
	"src/main/App.kt": "fun main() {\n    println(\"upstream\")\n}\n",
}

func setup(t *testing.T, targets ...string) (*testutil.TestSetupManager, *Workflow) {
	t.Helper()
	g := &testutil.TestSetupManager{T: t, UpstreamInit: upstreamFiles}
	for _, name := range targets {
		g.Targets = append(g.Targets, portfile.Target{Name: types.TargetName(name)})
	}
	require.True(t, g.Init())
	pf, err := portfile.ReadFile(g.PortfilePath())
	require.NoError(t, err)
	return g, New(g.ForkRoot, pf)
}

func readMarker(t *testing.T, g *testutil.TestSetupManager) string {
	t.Helper()
	id, _, err := gitutil.ReadCommitMarker(g.Path("commit.sha"))
	require.NoError(t, err)
	return id
}

func sortedKeys(m map[string]string) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestSetupWorkspace_noPatches(t *testing.T) {
	g, w := setup(t, "fabric", "forge")
	ctx := fake.CtxWithNilPrinter()

	report, err := w.SetupWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Commits[0], report.Commit)
	assert.Empty(t, report.PreviousCommit)
	require.Len(t, report.Targets, 2)
	for _, ta := range report.Targets {
		assert.True(t, ta.Copied)
		assert.Empty(t, ta.Summary.Files)
	}

	g.AssertDir("upstream", upstreamFiles)
	g.AssertDir("workspace/fabric", upstreamFiles)
	g.AssertDir("workspace/forge", upstreamFiles)
	assert.Equal(t, g.Commits[0], readMarker(t, g))
}

func TestSetupWorkspace_configuration(t *testing.T) {
	testCases := map[string]func(pf *portfile.Portfile){
		"placeholder ref":       func(pf *portfile.Portfile) { pf.Upstream.Ref = "invalid" },
		"empty ref":             func(pf *portfile.Portfile) { pf.Upstream.Ref = "" },
		"no targets":            func(pf *portfile.Portfile) { pf.Targets = nil },
		"unknown patch mode":    func(pf *portfile.Portfile) { pf.PatchMode = "loose" },
		"duplicate target name": func(pf *portfile.Portfile) { pf.Targets = append(pf.Targets, pf.Targets[0]) },
	}

	for tn, mutate := range testCases {
		t.Run(tn, func(t *testing.T) {
			g := &testutil.TestSetupManager{T: t, UpstreamInit: upstreamFiles,
				Targets: []portfile.Target{{Name: "fabric"}}}
			require.True(t, g.Init())
			pf := g.Portfile()
			mutate(pf)

			_, err := New(g.ForkRoot, pf).SetupWorkspace(fake.CtxWithNilPrinter())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.Configuration), "unexpected error %v", err)
			assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))

			// nothing was touched
			for _, dir := range []string{"upstream", "workspace", "commit.sha"} {
				_, err := os.Stat(g.Path(dir))
				assert.True(t, os.IsNotExist(err), dir)
			}
		})
	}
}

func TestSetupWorkspace_unknownRef(t *testing.T) {
	g, _ := setup(t, "fabric")
	pf := g.Portfile()
	pf.Upstream.Ref = "does-not-exist"

	_, err := New(g.ForkRoot, pf).SetupWorkspace(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ReferenceNotFound), "unexpected error %v", err)
}

func TestWorkflow_patchCycle(t *testing.T) {
	g, w := setup(t, "fabric", "forge")
	ctx := fake.CtxWithNilPrinter()

	_, err := w.SetupWorkspace(ctx)
	require.NoError(t, err)

	// edit the fabric working tree only
	testutil.WriteTree(t, g.Path("workspace/fabric"), map[string]string{
		"src/main/App.kt":         "fun main() {\n    println(\"fabric\")\n}\n",
		"src/main/Fabric.kt":      "object Fabric\n",
		".idea/workspace.xml":     "<project/>\n",
		"build/classes/App.class": "\xca\xfe",
	})
	require.NoError(t, os.Remove(g.Path("workspace/fabric/README.md")))

	diffs, err := w.GeneratePatches(ctx)
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.Equal(t, types.TargetName("fabric"), diffs[0].Target.Name)
	assert.Equal(t, []string{"src/main/App.kt"}, diffs[0].Summary.Changed)
	assert.Equal(t, []string{"src/main/Fabric.kt"}, diffs[0].Summary.Added)
	assert.Equal(t, []string{"README.md"}, diffs[0].Summary.Removed)
	assert.Equal(t, 0, diffs[1].Summary.Differences())

	patches := testutil.ReadTree(t, g.Path("patches"))
	assert.Len(t, patches, 3)
	assert.Contains(t, patches, "fabric/src/main/App.kt.patch")
	assert.Contains(t, patches, "fabric/src/main/Fabric.kt.patch")
	assert.Contains(t, patches, "fabric/README.md.patch")

	s, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Commits[0], s.Commit)
	assert.Equal(t, PatchesRegenerated, s.Targets[0].State)
	assert.Equal(t, 3, s.Targets[0].Patches)

	require.NoError(t, w.CleanWorkspace(ctx))
	for _, dir := range []string{"upstream", "workspace", "tmp"} {
		_, err := os.Stat(g.Path(dir))
		assert.True(t, os.IsNotExist(err), dir)
	}
	assert.Len(t, testutil.ReadTree(t, g.Path("patches")), 3)
	assert.Equal(t, g.Commits[0], readMarker(t, g))

	s, err = w.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, s.Targets[0].State)

	// setting up again reproduces the edits, ignored paths excluded
	report, err := w.SetupWorkspace(ctx)
	require.NoError(t, err)
	assert.False(t, report.Targets[0].Copied)
	assert.True(t, report.Targets[1].Copied)
	g.AssertDir("workspace/fabric", map[string]string{
		"src/main/App.kt":    "fun main() {\n    println(\"fabric\")\n}\n",
		"src/main/Fabric.kt": "object Fabric\n",
	})
	g.AssertDir("workspace/forge", upstreamFiles)

	s, err = w.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, WorkingTreeReady, s.Targets[0].State)
}

func TestSetupWorkspace_rejects(t *testing.T) {
	g, w := setup(t, "fabric", "forge")
	ctx := fake.CtxWithNilPrinter()

	_, err := w.SetupWorkspace(ctx)
	require.NoError(t, err)
	testutil.WriteTree(t, g.Path("workspace/fabric"), map[string]string{
		"README.md":       "line1 fabric\n",
		"src/main/App.kt": "fun main() {\n    println(\"fabric\")\n}\n",
	})
	testutil.WriteTree(t, g.Path("workspace/forge"), map[string]string{
		"README.md": "line1 forge\n",
	})
	_, err = w.GeneratePatches(ctx)
	require.NoError(t, err)

	// stale rejects from an earlier run are dropped
	testutil.WriteFile(t, g.Path("rejects/fabric"), "old.txt.rej", "stale", 0644)

	moved := g.UpdateUpstream(map[string]string{"README.md": "line1 upstream\n"})

	report, err := w.SetupWorkspace(ctx)
	require.Error(t, err)
	var rejected *errors.PatchesRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, []string{"fabric/README.md", "forge/README.md"}, rejected.Paths)
	assert.Equal(t, errors.ExitDifferences, errors.ExitCode(err))

	// the marker keeps the commit the patches were made against
	assert.Equal(t, moved, report.Commit)
	assert.Equal(t, g.Commits[0], report.PreviousCommit)
	assert.Equal(t, g.Commits[0], readMarker(t, g))

	// every target was processed and clean hunks were applied
	require.Len(t, report.Targets, 2)
	g.AssertDir("workspace/fabric", map[string]string{
		"README.md":       "line1 upstream\n",
		"src/main/App.kt": "fun main() {\n    println(\"fabric\")\n}\n",
	})
	rejects := testutil.ReadTree(t, g.Path("rejects"))
	assert.Len(t, rejects, 2)
	assert.Contains(t, rejects["fabric/README.md.rej"], "+line1 fabric\n")
	assert.Contains(t, rejects["forge/README.md.rej"], "+line1 forge\n")

	s, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, s.Targets[0].Rejects)
}

func TestUpdateCommitRef(t *testing.T) {
	g, w := setup(t, "fabric")
	ctx := fake.CtxWithNilPrinter()

	commit, err := w.UpdateCommitRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Commits[0], commit)
	assert.Equal(t, commit, readMarker(t, g))
	g.AssertDir("upstream", upstreamFiles)
	_, err = os.Stat(g.Path("workspace"))
	assert.True(t, os.IsNotExist(err))

	moved := g.UpdateUpstream(map[string]string{"NEW.md": "new\n"})
	commit, err = w.UpdateCommitRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, moved, commit)
	assert.Equal(t, moved, readMarker(t, g))
}

func TestUpdateCommitRef_failures(t *testing.T) {
	g, _ := setup(t, "fabric")
	ctx := fake.CtxWithNilPrinter()
	require.NoError(t, gitutil.WriteCommitMarker(g.Path("commit.sha"), g.Commits[0]))

	// extraction failures are swallowed
	pf := g.Portfile()
	pf.Upstream.Ref = "does-not-exist"
	commit, err := New(g.ForkRoot, pf).UpdateCommitRef(ctx)
	assert.NoError(t, err)
	assert.Empty(t, commit)
	assert.Equal(t, g.Commits[0], readMarker(t, g))

	pf.Upstream.Repo = filepath.Join(g.ForkRoot, "not-a-repo")
	commit, err = New(g.ForkRoot, pf).UpdateCommitRef(ctx)
	assert.NoError(t, err)
	assert.Empty(t, commit)

	// configuration is not
	pf.Upstream.Ref = portfile.PlaceholderRef
	_, err = New(g.ForkRoot, pf).UpdateCommitRef(ctx)
	assert.True(t, errors.Is(err, errors.Configuration))
}

func TestRebuildPatches(t *testing.T) {
	g := &testutil.TestSetupManager{
		T:            t,
		UpstreamInit: upstreamFiles,
		Targets: []portfile.Target{
			{Name: "fabric"},
			{Name: "forge", Source: "loaders/forge"},
		},
		Sources: map[types.TargetName]map[string]string{
			"fabric": {
				"README.md":       "line1\n",
				"src/main/App.kt": "fun main() {\n    println(\"fabric\")\n}\n",
			},
		},
	}
	require.True(t, g.Init())
	testutil.WriteTree(t, g.Path("loaders/forge"), map[string]string{
		"README.md": "line1 forge\n",
	})
	// stale patches disappear
	testutil.WriteFile(t, g.Path("patches/fabric"), "Gone.kt.patch", "stale", 0644)
	moved := g.UpdateUpstream(map[string]string{"NEW.md": "new\n"})

	pf, err := portfile.ReadFile(g.PortfilePath())
	require.NoError(t, err)
	w := New(g.ForkRoot, pf)
	ctx := fake.CtxWithNilPrinter()
	require.NoError(t, w.RebuildPatches(ctx))

	patches := testutil.ReadTree(t, g.Path("patches"))
	assert.Equal(t, []string{
		"fabric/NEW.md.patch",
		"fabric/src/main/App.kt.patch",
		"forge/NEW.md.patch",
		"forge/README.md.patch",
		"forge/src/main/App.kt.patch",
	}, sortedKeys(patches))
	assert.Contains(t, patches["fabric/NEW.md.patch"], "deleted file mode 100644\n")

	assert.Equal(t, moved, readMarker(t, g))
	for _, dir := range []string{"upstream", "workspace"} {
		_, err := os.Stat(g.Path(dir))
		assert.True(t, os.IsNotExist(err), dir)
	}

	// a fresh setup reproduces the sources
	_, err = w.SetupWorkspace(ctx)
	require.NoError(t, err)
	testutil.AssertTreesEqual(t, g.Path("fabric"), g.Path("workspace/fabric"))
	testutil.AssertTreesEqual(t, g.Path("loaders/forge"), g.Path("workspace/forge"))
}

func TestRebuildPatches_missingSource(t *testing.T) {
	g, w := setup(t, "fabric")
	err := w.RebuildPatches(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Configuration), "unexpected error %v", err)
	_, statErr := os.Stat(g.Path("fabric"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSplitSources(t *testing.T) {
	g, w := setup(t, "fabric")
	ctx := fake.CtxWithNilPrinter()

	err := w.SplitSources(ctx)
	assert.True(t, errors.Is(err, errors.Configuration), "unexpected error %v", err)

	_, err = w.SetupWorkspace(ctx)
	require.NoError(t, err)
	testutil.WriteFile(t, g.Path("workspace/fabric"), "src/main/Fabric.kt", "object Fabric\n", 0644)
	testutil.WriteFile(t, g.Path("fabric"), "stale.txt", "stale", 0644)

	require.NoError(t, w.SplitSources(ctx))
	testutil.AssertTreesEqual(t, g.Path("workspace/fabric"), g.Path("fabric"))
	_, err = os.Stat(g.Path("fabric/stale.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkflow_unsafeLayout(t *testing.T) {
	testCases := map[string]struct {
		mutate func(pf *portfile.Portfile)
	}{
		"target named after the patches root": {
			mutate: func(pf *portfile.Portfile) {
				pf.Targets = append(pf.Targets, portfile.Target{Name: "patches"})
			},
		},
		"source is the fork root": {
			mutate: func(pf *portfile.Portfile) { pf.Targets[0].Source = "." },
		},
		"workspace is the fork root": {
			mutate: func(pf *portfile.Portfile) { pf.Directories.Workspace = "." },
		},
		"rejects share the patches root": {
			mutate: func(pf *portfile.Portfile) { pf.Directories.Rejects = "patches" },
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			g, w := setup(t, "fabric")
			ctx := fake.CtxWithNilPrinter()
			_, err := w.SetupWorkspace(ctx)
			require.NoError(t, err)
			testutil.WriteFile(t, g.Path("workspace/fabric"), "README.md", "mine\n", 0644)
			_, err = w.GeneratePatches(ctx)
			require.NoError(t, err)
			before := testutil.ReadTree(t, g.ForkRoot)

			pf := g.Portfile()
			tc.mutate(pf)
			unsafe := New(g.ForkRoot, pf)
			for name, run := range map[string]func() error{
				"setup": func() error {
					_, err := unsafe.SetupWorkspace(ctx)
					return err
				},
				"update-ref": func() error {
					_, err := unsafe.UpdateCommitRef(ctx)
					return err
				},
				"generate": func() error {
					_, err := unsafe.GeneratePatches(ctx)
					return err
				},
				"rebuild": func() error { return unsafe.RebuildPatches(ctx) },
				"clean":   func() error { return unsafe.CleanWorkspace(ctx) },
				"split":   func() error { return unsafe.SplitSources(ctx) },
			} {
				err := run()
				assert.True(t, errors.Is(err, errors.Configuration), "%s: unexpected error %v", name, err)
			}
			assert.Equal(t, before, testutil.ReadTree(t, g.ForkRoot))
		})
	}
}

func TestGeneratePatches_requiresSetup(t *testing.T) {
	_, w := setup(t, "fabric")
	_, err := w.GeneratePatches(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Configuration), "unexpected error %v", err)
}

func TestCleanWorkspace_idempotent(t *testing.T) {
	g, w := setup(t, "fabric")
	ctx := fake.CtxWithNilPrinter()
	require.NoError(t, w.CleanWorkspace(ctx))
	require.NoError(t, w.CleanWorkspace(ctx))

	testutil.WriteFile(t, g.Path("tmp"), "scratch.txt", "x", 0644)
	require.NoError(t, w.CleanWorkspace(ctx))
	_, err := os.Stat(g.Path("tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkflow_environment(t *testing.T) {
	g, _ := setup(t, "fabric")
	g.UpstreamRepo.CreateBranch("release", g.Commits[0])
	moved := g.UpdateUpstream(map[string]string{"NEW.md": "new\n"})

	pf := g.Portfile()
	pf.Upstream.Ref = portfile.PlaceholderRef
	w := New(g.ForkRoot, pf, WithEnvironment(portfile.NewEnvironment(map[string]string{
		portfile.EnvUpstreamRef: "release",
		portfile.EnvPatchMode:   "exact",
	})))
	assert.Equal(t, "release", w.Portfile().Upstream.Ref)
	assert.Equal(t, portfile.Exact, w.Portfile().PatchMode)
	assert.Equal(t, portfile.PlaceholderRef, pf.Upstream.Ref)

	report, err := w.SetupWorkspace(fake.CtxWithNilPrinter())
	require.NoError(t, err)
	assert.Equal(t, g.Commits[0], report.Commit)
	assert.NotEqual(t, moved, report.Commit)
}

func TestWorkflow_output(t *testing.T) {
	g, _ := setup(t, "fabric")
	pf, err := portfile.ReadFile(g.PortfilePath())
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	ctx := fake.CtxWithPrinter(&out, &errOut)
	_, err = New(g.ForkRoot, pf).SetupWorkspace(ctx)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Setting up workspace\n")
	assert.Contains(t, out.String(), "Target \"fabric\": copying upstream into workspace/fabric\n")
	assert.Empty(t, errOut.String())
}

type failingApplier struct{}

func (failingApplier) ApplyPatches(context.Context, string, string, string, string) (patch.Summary, error) {
	return patch.Summary{}, errors.E(errors.PatchEngine, "boom")
}

func TestSetupWorkspace_hardFailureStops(t *testing.T) {
	g := &testutil.TestSetupManager{T: t, UpstreamInit: upstreamFiles,
		Targets: []portfile.Target{{Name: "fabric"}, {Name: "forge"}}}
	require.True(t, g.Init())

	report, err := New(g.ForkRoot, g.Portfile(), WithPatchApplier(failingApplier{})).
		SetupWorkspace(fake.CtxWithNilPrinter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.PatchEngine))
	assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
	assert.Len(t, report.Targets, 1)
}
