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

package commands

import (
	"context"

	"github.com/kptdev/portpatch/internal/cmdapply"
	"github.com/kptdev/portpatch/internal/cmddiff"
	"github.com/kptdev/portpatch/internal/cmdextract"
	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/spf13/cobra"
)

func GetToolsCommand(ctx context.Context, name string) *cobra.Command {
	tools := &cobra.Command{
		Use:     "tools",
		Short:   docs.ToolsShort,
		Long:    docs.ToolsLong,
		Example: docs.ToolsExamples,
		Aliases: []string{"tool"},
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	tools.AddCommand(
		cmdextract.NewCommand(ctx, name),
		cmddiff.NewCommand(ctx, name),
		cmdapply.NewCommand(ctx, name),
	)
	return tools
}
