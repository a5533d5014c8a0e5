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

// Package cmddiff contains the diff command
package cmddiff

import (
	"context"
	"fmt"

	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/kptdev/portpatch/internal/util/diff"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "diff BASE WORKING OUT",
		Args:    cobra.ExactArgs(3),
		Short:   docs.DiffShort,
		Long:    docs.DiffShort + "\n" + docs.DiffLong,
		Example: docs.DiffExamples,
		RunE:    r.runE,
	}
	c.Flags().StringSliceVar(&r.Ignore, "ignore", nil,
		"path segment or segment sequence to skip. May be repeated.")
	c.Flags().IntVar(&r.Context, "context", diff.DefaultContext,
		"number of context lines around each change, at least 1.")
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
	Ignore  []string
	Context int
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmddiff.runE"
	// the codec treats zero as "use the default"
	if r.Context < 1 {
		return cmdutil.HandleError(c, errors.E(op, errors.InvalidParam,
			fmt.Errorf("--context must be at least 1, got %d", r.Context)))
	}
	codec := &diff.Codec{Context: r.Context}
	s, err := codec.GeneratePatches(r.ctx, args[0], args[1], args[2], r.Ignore)
	if err == nil {
		err = diff.Prune(args[2], r.Ignore)
	}
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	fmt.Fprintf(c.OutOrStdout(), "%d changed, %d added, %d removed, %d unchanged\n",
		len(s.Changed), len(s.Added), len(s.Removed), len(s.Unchanged))
	if n := s.Differences(); n > 0 {
		return cmdutil.HandleError(c, &errors.DifferencesError{Count: n})
	}
	return nil
}
