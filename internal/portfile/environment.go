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
	"os"
	"sort"

	"k8s.io/klog/v2"
)

const (
	// EnvUpstreamRepo overrides upstream.repo
	EnvUpstreamRepo = "PORTPATCH_UPSTREAM_REPO"
	// EnvUpstreamRef overrides upstream.ref
	EnvUpstreamRef = "PORTPATCH_UPSTREAM_REF"
	// EnvPatchMode overrides patchMode
	EnvPatchMode = "PORTPATCH_PATCH_MODE"
)

// EnvironmentKeys are the variables read by EnvironmentFromOS.
var EnvironmentKeys = []string{EnvUpstreamRepo, EnvUpstreamRef, EnvPatchMode}

// Environment is a snapshot of configuration overrides. It is captured once
// and never changes afterwards.
type Environment struct {
	values map[string]string
}

// NewEnvironment returns an Environment holding a copy of values.
func NewEnvironment(values map[string]string) Environment {
	env := Environment{values: make(map[string]string, len(values))}
	for k, v := range values {
		env.values[k] = v
	}
	return env
}

// EnvironmentFromOS captures the override variables from the process
// environment. Variables that are unset or empty are not captured.
func EnvironmentFromOS() Environment {
	values := map[string]string{}
	for _, k := range EnvironmentKeys {
		if v, found := os.LookupEnv(k); found && v != "" {
			values[k] = v
		}
	}
	return NewEnvironment(values)
}

// Lookup returns the value of key, if set.
func (e Environment) Lookup(key string) (string, bool) {
	v, found := e.values[key]
	return v, found
}

// Keys returns the set keys in sorted order.
func (e Environment) Keys() []string {
	var keys []string
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithEnvironment returns a copy of pf with the overrides in env applied.
// pf itself is left unchanged.
func (pf *Portfile) WithEnvironment(env Environment) *Portfile {
	out := pf.DeepCopy()
	if v, found := env.Lookup(EnvUpstreamRepo); found {
		klog.V(1).Infof("upstream repo overridden by %s: %s", EnvUpstreamRepo, v)
		out.Upstream.Repo = v
	}
	if v, found := env.Lookup(EnvUpstreamRef); found {
		klog.V(1).Infof("upstream ref overridden by %s: %s", EnvUpstreamRef, v)
		out.Upstream.Ref = v
	}
	if v, found := env.Lookup(EnvPatchMode); found {
		klog.V(1).Infof("patch mode overridden by %s: %s", EnvPatchMode, v)
		out.PatchMode = PatchMode(v)
	}
	return out
}
