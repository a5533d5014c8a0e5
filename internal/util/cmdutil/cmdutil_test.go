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

package cmdutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/portfile"
	"github.com/kptdev/portpatch/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixDocs(t *testing.T) {
	c := &cobra.Command{
		Use:     "portpatch setup",
		Short:   "portpatch sets up",
		Long:    "portpatch sets up the workspace",
		Example: "portpatch setup -f Portfile",
	}
	FixDocs("portpatch", "pp", c)
	assert.Equal(t, "pp setup", c.Use)
	assert.Equal(t, "pp sets up", c.Short)
	assert.Equal(t, "pp sets up the workspace", c.Long)
	assert.Equal(t, "pp setup -f Portfile", c.Example)
}

func TestHandleError(t *testing.T) {
	testCases := map[string]struct {
		err            error
		stack          bool
		expectedOutput string
		expectedPrefix string
	}{
		"nil": {},
		"failure": {
			err:            errors.E(errors.Op("porting.SetupWorkspace"), errors.Configuration, "no targets"),
			expectedOutput: "Error: porting.SetupWorkspace: configuration error: no targets\n",
		},
		"differences are not printed": {
			err: &errors.DifferencesError{Count: 3},
		},
		"stack trace": {
			err:            errors.E(errors.Op("x"), "boom"),
			stack:          true,
			expectedPrefix: "*errors.Error",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			if tc.stack {
				StackOnError = true
				t.Cleanup(func() { StackOnError = false })
			}
			var errOut bytes.Buffer
			c := &cobra.Command{}
			c.SetErr(&errOut)

			err := HandleError(c, tc.err)
			assert.Equal(t, tc.err, err)
			if tc.expectedPrefix != "" {
				assert.Contains(t, errOut.String(), tc.expectedPrefix)
				return
			}
			assert.Equal(t, tc.expectedOutput, errOut.String())
		})
	}
}

func TestLoadWorkflow(t *testing.T) {
	dir := t.TempDir()
	pf := portfile.Default()
	pf.Upstream.Ref = "main"
	pf.Targets = []portfile.Target{{Name: "fabric"}}
	b, err := pf.Encode()
	require.NoError(t, err)
	testutil.WriteFile(t, dir, "fork/Portfile", string(b), 0644)
	t.Setenv(portfile.EnvUpstreamRef, "release")

	c := &cobra.Command{}
	c.Flags().StringP(ConfigFlag, "f", "", "")
	require.NoError(t, c.Flags().Set(ConfigFlag, filepath.Join(dir, "fork", "Portfile")))

	w, err := LoadWorkflow(c)
	require.NoError(t, err)
	assert.Equal(t, "release", w.Portfile().Upstream.Ref)
	assert.Equal(t, filepath.Join(dir, "fork", "upstream"), w.Directories().Upstream)

	require.NoError(t, c.Flags().Set(ConfigFlag, filepath.Join(dir, "missing", "Portfile")))
	_, err = LoadWorkflow(c)
	assert.True(t, errors.Is(err, errors.Configuration))
}

func TestPrintRejects(t *testing.T) {
	var out bytes.Buffer
	PrintRejects(&out, "rejects", []string{"fabric/README.md", "fabric/src/main/App.kt", "forge/src/main/App.kt"})
	assert.Equal(t, `rejects
├── fabric
│   ├── README.md.rej
│   └── src
│       └── main
│           └── App.kt.rej
└── forge
    └── src
        └── main
            └── App.kt.rej
`, out.String())

	out.Reset()
	PrintRejects(&out, "rejects", nil)
	assert.Empty(t, out.String())
}
