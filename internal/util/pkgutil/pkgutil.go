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

// Package pkgutil contains helpers to copy, clear and inspect the
// directory trees the porting workflow operates on.
package pkgutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kptdev/portpatch/internal/printer"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// CopyDir copies the content of srcDir into dstDir, creating dstDir if
// needed. Files keep their permissions. Symlinks are skipped with a warning,
// as are entries whose name is in skipNames.
func CopyDir(ctx context.Context, srcDir, dstDir string, skipNames ...string) error {
	pr := printer.FromContextOrDie(ctx)
	skip := make(map[string]bool, len(skipNames))
	for _, n := range skipNames {
		skip[n] = true
	}
	opts := copy.Options{
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			return src != srcDir && skip[filepath.Base(src)], nil
		},
		OnSymlink: func(src string) copy.SymlinkAction {
			// try to print relative path of symlink
			// if we can, else absolute path
			displayPath, err := filepath.Rel(srcDir, src)
			if err != nil {
				displayPath = src
			}
			pr.OptPrintf(printer.NewOpt().Stderr(), "[Warn] Ignoring symlink %q\n", displayPath)
			return copy.Skip
		},
	}
	klog.V(1).Infof("copying %s to %s", srcDir, dstDir)
	return copy.Copy(srcDir, dstDir, opts)
}

// Exists returns true if a file or directory exists on the provided path,
// and false otherwise.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return !os.IsNotExist(err), nil
}

// HasEntries returns true if dir exists and contains at least one file or
// directory.
func HasEntries(dir string) (bool, error) {
	f, err := os.Open(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	// List up to one file or folder in the directory.
	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes dir and everything below it, then recreates it empty.
func Clear(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// RemoveEmptyDirs deletes every empty directory below root, starting with
// the most deeply nested ones so that directories which only contained
// empty directories go as well. root itself is kept.
func RemoveEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() && p != root {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(dirs, DeepestFirstSorter(dirs))
	for _, p := range dirs {
		found, err := HasEntries(p)
		if err != nil {
			return err
		}
		if !found {
			klog.V(2).Infof("removing empty directory %s", p)
			if err := os.Remove(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeepestFirstSorter returns a "less" function that can be used with the
// sort.Slice function to sort paths so nested directories are always before
// their parents.
func DeepestFirstSorter(paths []string) func(i, j int) bool {
	return func(i, j int) bool {
		iSegmentCount := len(strings.Split(filepath.ToSlash(paths[i]), "/"))
		jSegmentCount := len(strings.Split(filepath.ToSlash(paths[j]), "/"))
		if iSegmentCount != jSegmentCount {
			return iSegmentCount > jSegmentCount
		}
		return paths[i] < paths[j]
	}
}
