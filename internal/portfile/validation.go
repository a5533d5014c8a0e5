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

package portfile

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/kptdev/portpatch/internal/errors"
	"sigs.k8s.io/kustomize/kyaml/sets"
)

// ValidateUpstream checks that an upstream ref is configured. The
// placeholder ref is compared case-insensitively.
func (pf *Portfile) ValidateUpstream() error {
	var violations errors.Violations
	ref := strings.TrimSpace(pf.Upstream.Ref)
	switch {
	case ref == "":
		violations = append(violations, errors.Violation{
			Field:  "upstream.ref",
			Type:   errors.Missing,
			Reason: "an upstream branch, tag or commit id must be set",
		})
	case strings.EqualFold(ref, PlaceholderRef):
		violations = append(violations, errors.Violation{
			Field:  "upstream.ref",
			Value:  ref,
			Type:   errors.Invalid,
			Reason: fmt.Sprintf("%q is a placeholder, set a real branch, tag or commit id", ref),
		})
	}
	if strings.TrimSpace(pf.Upstream.Repo) == "" {
		violations = append(violations, errors.Violation{
			Field:  "upstream.repo",
			Type:   errors.Missing,
			Reason: "the upstream repository location must be set",
		})
	}
	if len(violations) > 0 {
		return &errors.ValidationError{Violations: violations}
	}
	return nil
}

// Validate checks everything the workflow needs before touching disk.
func (pf *Portfile) Validate() error {
	var violations errors.Violations
	if err := pf.ValidateUpstream(); err != nil {
		violations = append(violations, err.(*errors.ValidationError).Violations...)
	}

	if len(pf.Targets) == 0 {
		violations = append(violations, errors.Violation{
			Field:  "targets",
			Type:   errors.Missing,
			Reason: "at least one target must be configured",
		})
	}
	seen := sets.String{}
	for i, t := range pf.Targets {
		field := fmt.Sprintf("targets[%d].name", i)
		name := string(t.Name)
		if reason := invalidTargetName(name); reason != "" {
			violations = append(violations, errors.Violation{
				Field:  field,
				Value:  name,
				Type:   errors.Invalid,
				Reason: reason,
			})
			continue
		}
		if seen.Has(name) {
			violations = append(violations, errors.Violation{
				Field:  field,
				Value:  name,
				Type:   errors.Invalid,
				Reason: "target names must be unique",
			})
		}
		seen.Insert(name)
	}

	if !validPatchMode(pf.PatchMode) {
		violations = append(violations, errors.Violation{
			Field:  "patchMode",
			Value:  string(pf.PatchMode),
			Type:   errors.Invalid,
			Reason: fmt.Sprintf("must be one of %v", PatchModes),
		})
	}

	if len(violations) > 0 {
		return &errors.ValidationError{Violations: violations}
	}
	return nil
}

// ValidateLayout checks the directories and target sources resolved
// against root. Each of them is removed and recreated by some operation, so
// none may contain root or the Portfile, and none may overlap another.
// Locations outside root are allowed.
func (pf *Portfile) ValidateLayout(root string) error {
	root = filepath.Clean(root)
	portfilePath := filepath.Join(root, PortfileName)
	type location struct {
		field string
		value string
		path  string
	}
	var locs []location
	d := pf.Directories
	for _, f := range []struct{ field, value string }{
		{"directories.upstream", d.Upstream},
		{"directories.workspace", d.Workspace},
		{"directories.patches", d.Patches},
		{"directories.rejects", d.Rejects},
		{"directories.scratch", d.Scratch},
		{"directories.commitMarker", d.CommitMarker},
	} {
		locs = append(locs, location{f.field, f.value, resolveAt(root, f.value)})
	}
	for i, t := range pf.Targets {
		src := t.SourceDir()
		locs = append(locs, location{fmt.Sprintf("targets[%d].source", i), src, resolveAt(root, src)})
	}

	var violations errors.Violations
	// locations already accepted; a rejected one is not compared again
	var accepted []location
	for _, l := range locs {
		var reason string
		switch {
		case strings.TrimSpace(l.value) == "":
			reason = "must not be empty"
		case contains(l.path, root):
			reason = "must not be the fork root or one of its parents"
		case contains(l.path, portfilePath):
			reason = fmt.Sprintf("must not contain the %s", PortfileName)
		default:
			for _, other := range accepted {
				if contains(l.path, other.path) || contains(other.path, l.path) {
					reason = fmt.Sprintf("overlaps %s %q", other.field, other.value)
					break
				}
			}
		}
		if reason != "" {
			violations = append(violations, errors.Violation{
				Field:  l.field,
				Value:  l.value,
				Type:   errors.Invalid,
				Reason: reason,
			})
			continue
		}
		accepted = append(accepted, l)
	}
	if len(violations) > 0 {
		return &errors.ValidationError{Violations: violations}
	}
	return nil
}

func resolveAt(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

// contains reports whether p is dir or lies below it. Both are clean.
func contains(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func invalidTargetName(name string) string {
	switch {
	case name == "":
		return "target name must not be empty"
	case name == "." || name == "..":
		return "target name must name a directory"
	case strings.ContainsAny(name, `/\`):
		return "target name must be a single path segment"
	case path.Clean(name) != name:
		return "target name must be a clean path segment"
	}
	return ""
}

func validPatchMode(m PatchMode) bool {
	for _, v := range PatchModes {
		if m == v {
			return true
		}
	}
	return false
}
