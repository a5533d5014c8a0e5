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

package gitutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/types"
)

// ReadCommitMarker returns the commit id recorded at path. The boolean is
// false when no marker exists.
func ReadCommitMarker(path string) (string, bool, error) {
	const op errors.Op = "gitutil.ReadCommitMarker"
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.E(op, errors.IO, types.UniquePath(path), err)
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// WriteCommitMarker records commitID at path. The content is the raw id
// without a trailing newline. The file is replaced atomically so readers
// never see a partial write.
func WriteCommitMarker(path, commitID string) error {
	const op errors.Op = "gitutil.WriteCommitMarker"
	if strings.TrimSpace(commitID) == "" {
		return errors.E(op, errors.InvalidParam, "commit id must not be empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.TrimSpace(commitID)); err != nil {
		tmp.Close()
		return errors.E(op, errors.IO, types.UniquePath(dir), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir),
			fmt.Errorf("replacing commit marker: %w", err))
	}
	return nil
}
