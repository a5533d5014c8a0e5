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
	"strings"

	"github.com/kptdev/portpatch/internal/cmdclean"
	"github.com/kptdev/portpatch/internal/cmdgenerate"
	"github.com/kptdev/portpatch/internal/cmdrebuild"
	"github.com/kptdev/portpatch/internal/cmdsetup"
	"github.com/kptdev/portpatch/internal/cmdsplit"
	"github.com/kptdev/portpatch/internal/cmdstatus"
	"github.com/kptdev/portpatch/internal/cmdupdateref"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GetPortpatchCommands returns the set of portpatch commands to be registered
func GetPortpatchCommands(ctx context.Context, name string) []*cobra.Command {
	c := []*cobra.Command{
		cmdsetup.NewCommand(ctx, name),
		cmdupdateref.NewCommand(ctx, name),
		cmdgenerate.NewCommand(ctx, name),
		cmdrebuild.NewCommand(ctx, name),
		cmdsplit.NewCommand(ctx, name),
		cmdclean.NewCommand(ctx, name),
		cmdstatus.NewCommand(ctx, name),
		GetToolsCommand(ctx, name),
	}

	// apply cross-cutting issues to commands
	NormalizeCommand(c...)
	return c
}

// NormalizeCommand will modify commands to be consistent, e.g. silencing errors
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		cmd.Flags().SetNormalizeFunc(WordSepNormalizeFunc)
		// usage errors happen before RunE and are reported here
		if validate := cmd.Args; validate != nil {
			cmd.Args = func(c *cobra.Command, args []string) error {
				return cmdutil.HandleError(c, validate(c, args))
			}
		}
		cmd.SetFlagErrorFunc(cmdutil.HandleError)
		NormalizeCommand(cmd.Commands()...)
	}
}

// WordSepNormalizeFunc lets flags be spelled with underscores.
func WordSepNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}
	return pflag.NormalizedName(name)
}
