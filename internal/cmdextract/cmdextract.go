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

// Package cmdextract contains the extract command
package cmdextract

import (
	"context"
	"fmt"

	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/gitutil"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx, Extractor: gitutil.NewExtractor()}
	c := &cobra.Command{
		Use:     "extract REPO REF DIR",
		Args:    cobra.ExactArgs(3),
		Short:   docs.ExtractShort,
		Long:    docs.ExtractShort + "\n" + docs.ExtractLong,
		Example: docs.ExtractExamples,
		RunE:    r.runE,
	}
	c.Flags().StringVar(&r.Marker, "marker", "",
		"also record the resolved commit id in this file.")
	cmdutil.FixDocs("portpatch", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx       context.Context
	Command   *cobra.Command
	Extractor *gitutil.Extractor
	Marker    string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	commit, err := r.Extractor.Extract(r.ctx, args[0], args[1], args[2])
	if err != nil {
		return cmdutil.HandleError(c, err)
	}
	if r.Marker != "" {
		if err := gitutil.WriteCommitMarker(r.Marker, commit); err != nil {
			return cmdutil.HandleError(c, err)
		}
	}
	fmt.Fprintln(c.OutOrStdout(), commit)
	return nil
}
