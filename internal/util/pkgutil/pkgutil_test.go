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

package pkgutil_test

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/kptdev/portpatch/internal/printer/fake"
	"github.com/kptdev/portpatch/internal/testutil"
	"github.com/kptdev/portpatch/internal/util/pkgutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func TestCopyDir(t *testing.T) {
	src := fs.NewDir(t, "copy-src",
		fs.WithFile("a.txt", "a\n"),
		fs.WithFile("gradlew", "#!/bin/sh\n", fs.WithMode(0755)),
		fs.WithDir("nested",
			fs.WithFile("b.txt", "b\n"),
			fs.WithDir(".git", fs.WithFile("HEAD", "ref: refs/heads/main\n")),
		),
	)
	defer src.Remove()
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink("a.txt", filepath.Join(src.Path(), "link")))
	}

	dst := filepath.Join(t.TempDir(), "dst")
	var stderr bytes.Buffer
	ctx := fake.CtxWithPrinter(&bytes.Buffer{}, &stderr)
	require.NoError(t, pkgutil.CopyDir(ctx, src.Path(), dst, ".git"))

	testutil.AssertTree(t, map[string]string{
		"a.txt":        "a\n",
		"gradlew":      "#!/bin/sh\n",
		"nested/b.txt": "b\n",
	}, dst)

	if runtime.GOOS != "windows" {
		assert.Contains(t, stderr.String(), `Ignoring symlink "link"`)
		info, err := os.Stat(filepath.Join(dst, "gradlew"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestHasEntries(t *testing.T) {
	dir := t.TempDir()

	found, err := pkgutil.HasEntries(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, found)

	found, err = pkgutil.HasEntries(dir)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	found, err = pkgutil.HasEntries(dir)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	testutil.WriteTree(t, dir, map[string]string{"a/b.txt": "b"})

	require.NoError(t, pkgutil.Clear(dir))
	found, err := pkgutil.HasEntries(dir)
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := pkgutil.Exists(dir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRemoveEmptyDirs(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"keep/file.txt": "x"})
	for _, d := range []string{"empty", "nested/empty/deeper", "keep/empty"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0755))
	}

	require.NoError(t, pkgutil.RemoveEmptyDirs(root))

	var dirs []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != root {
			rel, _ := filepath.Rel(root, p)
			dirs = append(dirs, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, dirs)

	// the root is kept even when it ends up empty
	empty := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(empty, "a", "b"), 0755))
	require.NoError(t, pkgutil.RemoveEmptyDirs(empty))
	exists, err := pkgutil.Exists(empty)
	require.NoError(t, err)
	assert.True(t, exists)

	// a missing root is not an error
	assert.NoError(t, pkgutil.RemoveEmptyDirs(filepath.Join(empty, "missing")))
}

func TestDeepestFirstSorter(t *testing.T) {
	paths := []string{"a", "a/b/c", "b", "a/b"}
	sort.Slice(paths, pkgutil.DeepestFirstSorter(paths))
	assert.Equal(t, []string{"a/b/c", "a/b", "a", "b"}, paths)
}
