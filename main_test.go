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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/portfile"
	"github.com/kptdev/portpatch/internal/printer/fake"
	"github.com/kptdev/portpatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func portpatch(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(fake.CtxWithPrinter(&out, &errOut))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{code: errors.ExitCode(err), stdout: out.String(), stderr: errOut.String()}
}

func newFork(t *testing.T) *testutil.TestSetupManager {
	t.Helper()
	g := &testutil.TestSetupManager{
		T:            t,
		Targets:      []portfile.Target{{Name: "fabric"}},
		UpstreamInit: map[string]string{"README.md": "line1\n"},
	}
	require.True(t, g.Init())
	return g
}

func TestPortpatch_lifecycle(t *testing.T) {
	g := newFork(t)
	cfg := g.PortfilePath()

	res := portpatch(t, "setup", "-f", cfg)
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	assert.Contains(t, res.stdout, `Target "fabric": copying upstream into workspace/fabric`)
	g.AssertDir("workspace/fabric", map[string]string{"README.md": "line1\n"})

	testutil.WriteFile(t, g.ForkRoot, "workspace/fabric/README.md", "mine\n", 0644)
	res = portpatch(t, "generate", "-f", cfg, "--exit-code")
	assert.Equal(t, errors.ExitDifferences, res.code)
	assert.Empty(t, res.stderr)
	assert.Contains(t, res.stdout, "TARGET")
	assert.Contains(t, res.stdout, "fabric")
	assert.FileExists(t, g.Path("patches/fabric/README.md.patch"))

	res = portpatch(t, "status", "-f", cfg)
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Commit:   "+g.Commits[0])

	res = portpatch(t, "clean", "-f", cfg)
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	assert.NoDirExists(t, g.Path("workspace"))
	assert.NoDirExists(t, g.Path("upstream"))

	res = portpatch(t, "setup", "-f", cfg)
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	g.AssertDir("workspace/fabric", map[string]string{"README.md": "mine\n"})
}

func TestPortpatch_rejects(t *testing.T) {
	g := newFork(t)
	cfg := g.PortfilePath()
	require.Equal(t, errors.ExitClean, portpatch(t, "setup", "-f", cfg).code)
	testutil.WriteFile(t, g.ForkRoot, "workspace/fabric/README.md", "mine\n", 0644)
	require.Equal(t, errors.ExitClean, portpatch(t, "generate", "-f", cfg).code)

	g.UpdateUpstream(map[string]string{"README.md": "theirs\n"})
	res := portpatch(t, "update-ref", "-f", cfg)
	require.Equal(t, errors.ExitClean, res.code, res.stderr)

	res = portpatch(t, "setup", "-f", cfg)
	assert.Equal(t, errors.ExitDifferences, res.code)
	assert.Contains(t, res.stdout, "rejects\n└── fabric\n    └── README.md.rej\n")
	assert.Contains(t, res.stderr, "Error: 1 file(s) had rejected hunks: fabric/README.md")
	assert.FileExists(t, g.Path("rejects/fabric/README.md.rej"))
}

func TestPortpatch_tools(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	commit := repo.CommitFiles("init", map[string]string{"a.txt": "a\n", "dir/b.txt": "b\n"})
	dir := t.TempDir()
	base := filepath.Join(dir, "base")
	work := filepath.Join(dir, "work")

	res := portpatch(t, "tools", "extract", repo.RepoDirectory, commit, base,
		"--marker", filepath.Join(dir, "commit.sha"))
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	assert.Equal(t, commit+"\n", res.stdout)
	marker, err := os.ReadFile(filepath.Join(dir, "commit.sha"))
	require.NoError(t, err)
	assert.Equal(t, commit, string(bytes.TrimSpace(marker)))

	res = portpatch(t, "tools", "extract", repo.RepoDirectory, commit, work)
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	testutil.WriteFile(t, work, "a.txt", "A\n", 0644)
	testutil.WriteFile(t, work, "c.txt", "c\n", 0644)

	patches := filepath.Join(dir, "patches")
	res = portpatch(t, "tools", "diff", base, work, patches)
	assert.Equal(t, errors.ExitDifferences, res.code)
	assert.Equal(t, "1 changed, 1 added, 0 removed, 1 unchanged\n", res.stdout)

	out := filepath.Join(dir, "out")
	res = portpatch(t, "tools", "apply", base, patches, out, filepath.Join(dir, "rejects"))
	require.Equal(t, errors.ExitClean, res.code, res.stderr)
	testutil.AssertTreesEqual(t, work, out)

	res = portpatch(t, "tools", "apply", base, patches, out, filepath.Join(dir, "rejects"), "--mode", "sloppy")
	assert.Equal(t, errors.ExitFailure, res.code)
	assert.Contains(t, res.stderr, `unknown patch mode "sloppy"`)
}

func TestPortpatch_usageErrors(t *testing.T) {
	testCases := map[string]struct {
		args             []string
		expectedStderr   string
		expectedContains string
	}{
		"unknown command": {
			args:           []string{"bogus"},
			expectedStderr: `Error: unknown command "bogus" for "portpatch"` + "\n",
		},
		"missing args": {
			args:           []string{"tools", "diff", "a"},
			expectedStderr: "Error: accepts 3 arg(s), received 1\n",
		},
		"unknown flag": {
			args:           []string{"setup", "--bogus"},
			expectedStderr: "Error: unknown flag: --bogus\n",
		},
		"zero context": {
			args:             []string{"tools", "diff", "a", "b", "c", "--context", "0"},
			expectedContains: "--context must be at least 1, got 0",
		},
		"missing Portfile": {
			args: []string{"setup", "-f", filepath.Join(t.TempDir(), "Portfile")},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			res := portpatch(t, tc.args...)
			assert.Equal(t, errors.ExitFailure, res.code)
			switch {
			case tc.expectedStderr != "":
				assert.Equal(t, tc.expectedStderr, res.stderr)
			case tc.expectedContains != "":
				assert.Contains(t, res.stderr, tc.expectedContains)
			default:
				assert.Contains(t, res.stderr, "Error: ")
			}
		})
	}
}
