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

// Package cmdgenerate contains the generate command
package cmdgenerate

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/porting"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "generate",
		Args:    cobra.NoArgs,
		Short:   docs.GenerateShort,
		Long:    docs.GenerateShort + "\n" + docs.GenerateLong,
		Example: docs.GenerateExamples,
		RunE:    r.runE,
	}
	c.Flags().BoolVar(&r.ExitCode, "exit-code", false,
		"exit with status 1 when any target differs from upstream.")
	cmdutil.FixDocs("portpatch", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx      context.Context
	Command  *cobra.Command
	ExitCode bool
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	w, err := cmdutil.LoadWorkflow(c)
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	diffs, err := w.GeneratePatches(r.ctx)
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	differences := renderDiffsAsTable(c.OutOrStdout(), diffs)
	if r.ExitCode && differences > 0 {
		return cmdutil.HandleError(c, &errors.DifferencesError{Count: differences})
	}
	return nil
}

// renderDiffsAsTable prints one row per target and returns the total
// number of differing files.
func renderDiffsAsTable(w io.Writer, diffs []porting.TargetDiff) int {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"TARGET", "CHANGED", "ADDED", "REMOVED", "UNCHANGED"})
	var total int
	for _, d := range diffs {
		s := d.Summary
		t.AppendRow(table.Row{d.Target.Name, len(s.Changed), len(s.Added), len(s.Removed), len(s.Unchanged)})
		total += s.Differences()
	}
	t.AppendSeparator()
	t.Render()
	return total
}
