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

// Package cmdstatus contains the status command
package cmdstatus

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/porting"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "status",
		Args:    cobra.NoArgs,
		Short:   docs.StatusShort,
		Long:    docs.StatusShort + "\n" + docs.StatusLong,
		Example: docs.StatusExamples,
		RunE:    r.runE,
	}
	cmdutil.FixDocs("portpatch", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	w, err := cmdutil.LoadWorkflow(c)
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	s, err := w.Status(r.ctx)
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	renderStatus(c.OutOrStdout(), w.Portfile().Upstream.Ref, s)
	return nil
}

func renderStatus(w io.Writer, ref string, s porting.Status) {
	commit := s.Commit
	if commit == "" {
		commit = "<none>"
	}
	fmt.Fprintf(w, "Upstream: %s\nCommit:   %s\n", ref, commit)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"TARGET", "STATE", "PATCHES", "REJECTS"})
	for _, ts := range s.Targets {
		t.AppendRow(table.Row{ts.Target, ts.State, ts.Patches, len(ts.Rejects)})
	}
	t.AppendSeparator()
	t.Render()
}
