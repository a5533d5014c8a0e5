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
	goerrors "errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/kptdev/portpatch/internal/errors"
)

// isNotFound reports whether err means an object or reference does not
// exist in the repository.
func isNotFound(err error) bool {
	return goerrors.Is(err, plumbing.ErrReferenceNotFound) || goerrors.Is(err, plumbing.ErrObjectNotFound)
}

// unresolved wraps an error returned by ResolveRevision. Malformed revision
// syntax and unknown names both mean ref does not name a commit.
func unresolved(ref string, err error) error {
	return errors.E(errors.ReferenceNotFound, fmt.Errorf("cannot resolve %q: %w", ref, err))
}

// classify wraps an error from resolving ref into a ReferenceNotFound or
// Git error.
func classify(ref string, err error) error {
	if isNotFound(err) {
		return errors.E(errors.ReferenceNotFound, fmt.Errorf("cannot resolve %q: %w", ref, err))
	}
	return errors.E(errors.Git, fmt.Errorf("resolving %q: %w", ref, err))
}
