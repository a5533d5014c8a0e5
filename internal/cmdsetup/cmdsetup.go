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

// Package cmdsetup contains the setup command
package cmdsetup

import (
	"context"

	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "setup",
		Args:    cobra.NoArgs,
		Short:   docs.SetupShort,
		Long:    docs.SetupShort + "\n" + docs.SetupLong,
		Example: docs.SetupExamples,
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
	_, err = w.SetupWorkspace(r.ctx)
	var rejected *errors.PatchesRejectedError
	if errors.As(err, &rejected) {
		cmdutil.PrintRejects(c.OutOrStdout(), w.Portfile().Directories.Rejects, rejected.Paths)
	}
	return cmdutil.HandleError(c, err)
}
