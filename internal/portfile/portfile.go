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

// Package portfile contains the types and functions for working with
// Portfile instances, the configuration of a fork maintained as patches.
package portfile

import (
	"bytes"
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/types"
	"gopkg.in/yaml.v3"
	kyaml "sigs.k8s.io/kustomize/kyaml/yaml"
)

// PortfileName is the default name of the Portfile
const PortfileName = "Portfile"

// PlaceholderRef is the upstream ref used when none was configured. The
// workflow refuses to run with it.
const PlaceholderRef = "INVALID"

// TypeMeta is the TypeMeta for Portfile instances.
var TypeMeta = kyaml.ResourceMeta{
	TypeMeta: kyaml.TypeMeta{
		Kind:       PortfileName,
		APIVersion: "kpt.dev/v1alpha1",
	},
}

// DefaultIgnore are the path segments excluded from patch generation when
// the Portfile doesn't list any.
var DefaultIgnore = []string{".git", ".idea", ".gradle", "build", "artifacts"}

// Portfile contains the configuration of a fork maintained as a set of
// patches against an upstream reference.
type Portfile struct {
	kyaml.ResourceMeta `yaml:",inline"`

	// Upstream is the repository and ref the snapshot is extracted from.
	Upstream Upstream `yaml:"upstream,omitempty"`

	// Targets are the subtrees maintained as patch sets.
	Targets []Target `yaml:"targets,omitempty"`

	// PatchMode controls how strictly hunks must match when patches are
	// applied.
	PatchMode PatchMode `yaml:"patchMode,omitempty"`

	// Ignore lists path segments excluded from patch generation.
	Ignore []string `yaml:"ignore,omitempty"`

	// Directories overrides the workflow directory layout.
	Directories Directories `yaml:"directories,omitempty"`
}

// Upstream defines where the pristine snapshot comes from
type Upstream struct {
	// Repo is the location of the git repository, relative to the Portfile.
	Repo string `yaml:"repo,omitempty"`

	// Ref is a branch, tag or commit id.
	Ref string `yaml:"ref,omitempty"`
}

// Target is a porting target. It can be written as a plain string, in which
// case the source directory has the same name as the target.
type Target struct {
	// Name names the target's subdirectory below the workspace, patches and
	// rejects roots.
	Name types.TargetName `yaml:"name"`

	// Source is the externally visible source directory of the target,
	// relative to the Portfile.
	Source string `yaml:"source,omitempty"`
}

// UnmarshalYAML accepts both the string shorthand and the mapping form.
func (t *Target) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		t.Name = types.TargetName(value.Value)
		t.Source = ""
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i]
			switch key.Value {
			case "name", "source":
			default:
				return fmt.Errorf("line %d: field %s not found in type portfile.Target", key.Line, key.Value)
			}
		}
		type plain Target
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*t = Target(p)
		return nil
	}
	return fmt.Errorf("line %d: target must be a string or a mapping", value.Line)
}

// SourceDir returns the source directory of the target.
func (t Target) SourceDir() string {
	if t.Source == "" {
		return string(t.Name)
	}
	return t.Source
}

// PatchMode defines how hunks are matched against the base tree.
type PatchMode string

const (
	// Exact requires every hunk to apply at its declared position.
	Exact PatchMode = "exact"
	// Offset searches for the hunk context above and below its declared
	// position.
	Offset PatchMode = "offset"
	// Fuzzy is Offset, plus retries with up to two context lines dropped at
	// each end of the hunk.
	Fuzzy PatchMode = "fuzzy"
)

// PatchModes are the accepted patch modes.
var PatchModes = []PatchMode{Exact, Offset, Fuzzy}

// Directories is the on-disk layout of the workflow. Relative paths resolve
// against the directory holding the Portfile.
type Directories struct {
	Upstream     string `yaml:"upstream,omitempty"`
	Workspace    string `yaml:"workspace,omitempty"`
	Patches      string `yaml:"patches,omitempty"`
	Rejects      string `yaml:"rejects,omitempty"`
	Scratch      string `yaml:"scratch,omitempty"`
	CommitMarker string `yaml:"commitMarker,omitempty"`
}

// Abs returns a copy of d with every relative directory joined to root.
func (d Directories) Abs(root string) Directories {
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	return Directories{
		Upstream:     abs(d.Upstream),
		Workspace:    abs(d.Workspace),
		Patches:      abs(d.Patches),
		Rejects:      abs(d.Rejects),
		Scratch:      abs(d.Scratch),
		CommitMarker: abs(d.CommitMarker),
	}
}

// Default returns a Portfile with every default applied and no targets.
func Default() *Portfile {
	pf := &Portfile{ResourceMeta: TypeMeta}
	pf.setDefaults()
	return pf
}

func (pf *Portfile) setDefaults() {
	if pf.Upstream.Repo == "" {
		pf.Upstream.Repo = "."
	}
	if pf.Upstream.Ref == "" {
		pf.Upstream.Ref = PlaceholderRef
	}
	if pf.PatchMode == "" {
		pf.PatchMode = Offset
	}
	if pf.Ignore == nil {
		pf.Ignore = append([]string(nil), DefaultIgnore...)
	}
	d := &pf.Directories
	for _, f := range []struct {
		field *string
		def   string
	}{
		{&d.Upstream, "upstream"},
		{&d.Workspace, "workspace"},
		{&d.Patches, "patches"},
		{&d.Rejects, "rejects"},
		{&d.Scratch, "tmp"},
		{&d.CommitMarker, "commit.sha"},
	} {
		if *f.field == "" {
			*f.field = f.def
		}
	}
}

// ReadFile reads the Portfile at path.
func ReadFile(path string) (*Portfile, error) {
	const op errors.Op = "portfile.ReadFile"
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(op, errors.Configuration, types.UniquePath(filepath.Dir(path)), err)
	}
	defer f.Close()

	pf, err := DecodePortfile(f)
	if err != nil {
		return nil, errors.E(op, types.UniquePath(filepath.Dir(path)), err)
	}
	return pf, nil
}

// DecodePortfile decodes a Portfile from in. Unknown fields are rejected
// and defaults are applied to unset fields. An empty document yields the
// defaults.
func DecodePortfile(in io.Reader) (*Portfile, error) {
	const op errors.Op = "portfile.DecodePortfile"
	pf := &Portfile{}
	d := yaml.NewDecoder(in)
	d.KnownFields(true)
	if err := d.Decode(pf); err != nil && !goerrors.Is(err, io.EOF) {
		return nil, errors.E(op, errors.Configuration, fmt.Errorf("invalid Portfile: %w", err))
	}
	if pf.Kind == "" && pf.APIVersion == "" {
		pf.ResourceMeta.TypeMeta = TypeMeta.TypeMeta
	}
	if pf.Kind != PortfileName {
		return nil, errors.E(op, errors.Configuration,
			fmt.Errorf("invalid Portfile: unexpected kind %q", pf.Kind))
	}
	pf.setDefaults()
	return pf, nil
}

// Encode writes pf as YAML.
func (pf *Portfile) Encode() ([]byte, error) {
	var buf bytes.Buffer
	e := yaml.NewEncoder(&buf)
	e.SetIndent(2)
	if err := e.Encode(pf); err != nil {
		return nil, err
	}
	if err := e.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeepCopy returns a copy of pf that shares no slices with it.
func (pf *Portfile) DeepCopy() *Portfile {
	out := *pf
	out.Targets = append([]Target(nil), pf.Targets...)
	if pf.Ignore != nil {
		out.Ignore = append([]string{}, pf.Ignore...)
	}
	if pf.Labels != nil {
		out.Labels = make(map[string]string, len(pf.Labels))
		for k, v := range pf.Labels {
			out.Labels[k] = v
		}
	}
	if pf.Annotations != nil {
		out.Annotations = make(map[string]string, len(pf.Annotations))
		for k, v := range pf.Annotations {
			out.Annotations[k] = v
		}
	}
	return &out
}

// Target returns the target with the given name.
func (pf *Portfile) Target(name types.TargetName) (Target, bool) {
	for _, t := range pf.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}
