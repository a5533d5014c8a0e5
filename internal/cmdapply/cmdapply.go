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

// Package cmdapply contains the apply command
package cmdapply

import (
	"context"
	"fmt"

	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/kptdev/portpatch/internal/util/patch"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "apply BASE PATCHES OUT REJECTS",
		Args:    cobra.ExactArgs(4),
		Short:   docs.ApplyShort,
		Long:    docs.ApplyShort + "\n" + docs.ApplyLong,
		Example: docs.ApplyExamples,
		RunE:    r.runE,
	}
	c.Flags().StringVar(&r.Mode, "mode", string(patch.Offset),
		fmt.Sprintf("how strictly hunks must match, one of %v.", patch.Modes))
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
	Mode    string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	mode, err := patch.ParseMode(r.Mode)
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	s, err := patch.NewApplier(mode).ApplyPatches(r.ctx, args[0], args[1], args[2], args[3])
	if len(s.Files) > 0 {
		fmt.Fprintf(c.OutOrStdout(), "%d applied, %d rejected (%d hunks)\n",
			len(s.Applied()), len(s.Rejected()), s.RejectedHunks())
	}
	cmdutil.PrintRejects(c.OutOrStdout(), args[3], s.Rejected())
	return cmdutil.HandleError(c, err)
}
