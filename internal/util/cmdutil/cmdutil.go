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
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/portfile"
	"github.com/kptdev/portpatch/internal/porting"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

const (
	StackTraceOnErrors = "COBRA_STACK_TRACE_ON_ERRORS"
	trueString         = "true"

	// ConfigFlag names the persistent flag holding the Portfile location.
	ConfigFlag = "config"
)

// FixDocs replaces instances of old with new in the docs for c
func FixDocs(old, new string, c *cobra.Command) {
	c.Use = strings.ReplaceAll(c.Use, old, new)
	c.Short = strings.ReplaceAll(c.Short, old, new)
	c.Long = strings.ReplaceAll(c.Long, old, new)
	c.Example = strings.ReplaceAll(c.Example, old, new)
}

func PrintErrorStacktrace() bool {
	e := os.Getenv(StackTraceOnErrors)
	if StackOnError || e == trueString || e == "1" {
		return true
	}
	return false
}

// StackOnError if true, will print a stack trace on failure.
var StackOnError bool

// HandleError prints err to the error stream of c, with a stack trace if
// requested, and returns it. Found differences are not failures and are
// returned without printing.
func HandleError(c *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var differences *errors.DifferencesError
	if errors.As(err, &differences) {
		return err
	}
	if PrintErrorStacktrace() {
		fmt.Fprintf(c.ErrOrStderr(), "%s", goerrors.Wrap(err, 1).ErrorStack())
	}
	fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n", err)
	return err
}

// PortfilePath returns the absolute location of the Portfile selected by
// the config flag of c.
func PortfilePath(c *cobra.Command) (string, error) {
	p := portfile.PortfileName
	if f := c.Flag(ConfigFlag); f != nil && f.Value.String() != "" {
		p = f.Value.String()
	}
	return filepath.Abs(p)
}

// LoadWorkflow reads the Portfile selected by c and returns a workflow
// rooted at its directory. Environment overrides are applied.
func LoadWorkflow(c *cobra.Command, opts ...porting.Option) (*porting.Workflow, error) {
	const op errors.Op = "cmdutil.LoadWorkflow"
	p, err := PortfilePath(c)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	pf, err := portfile.ReadFile(p)
	if err != nil {
		return nil, errors.E(op, err)
	}
	opts = append([]porting.Option{porting.WithEnvironment(portfile.EnvironmentFromOS())}, opts...)
	return porting.New(filepath.Dir(p), pf, opts...), nil
}

// PrintRejects renders the slash-separated paths of rejected files as a
// tree below root.
func PrintRejects(w io.Writer, root string, paths []string) {
	if len(paths) == 0 {
		return
	}
	tree := treeprint.New()
	tree.SetValue(root)
	branches := map[string]treeprint.Tree{}
	for _, p := range paths {
		parent := tree
		dir, name := path.Split(p)
		var prefix string
		for _, seg := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
			if seg == "" {
				continue
			}
			prefix = path.Join(prefix, seg)
			b, found := branches[prefix]
			if !found {
				b = parent.AddBranch(seg)
				branches[prefix] = b
			}
			parent = b
		}
		parent.AddNode(name + ".rej")
	}
	fmt.Fprint(w, tree.String())
}
