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

package diff

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/types"
	"github.com/kptdev/portpatch/internal/util/pkgutil"
	"k8s.io/klog/v2"
)

// Prune removes every file or directory below outputDir whose name is an
// ignored name, then every directory left empty. outputDir itself is kept.
func Prune(outputDir string, ignore []string) error {
	const op errors.Op = "diff.Prune"
	rules := NewIgnoreRules(ignore)

	var doomed []string
	err := filepath.WalkDir(outputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == outputDir {
				return filepath.SkipDir
			}
			return err
		}
		if p == outputDir {
			return nil
		}
		if rules.MatchName(d.Name()) {
			doomed = append(doomed, p)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return errors.E(op, errors.DiffEngine, types.UniquePath(outputDir), err)
	}

	for _, p := range doomed {
		klog.V(1).Infof("pruning ignored %s", p)
		if err := os.RemoveAll(p); err != nil {
			return errors.E(op, errors.DiffEngine, types.UniquePath(outputDir), err)
		}
	}
	if err := pkgutil.RemoveEmptyDirs(outputDir); err != nil {
		return errors.E(op, errors.DiffEngine, types.UniquePath(outputDir), err)
	}
	return nil
}
