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

package main

import (
	"context"
	goflag "flag"
	"os"

	"github.com/kptdev/portpatch/commands"
	docs "github.com/kptdev/portpatch/internal/docs/portdocs"
	"github.com/kptdev/portpatch/internal/errors"
	"github.com/kptdev/portpatch/internal/printer"
	"github.com/kptdev/portpatch/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx := printer.WithContext(context.Background(), printer.New(os.Stdout, os.Stderr))
	cmd := newRootCommand(ctx)
	cmd.SetArgs(args)
	err := cmd.Execute()
	klog.Flush()
	return errors.ExitCode(err)
}

func newRootCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "portpatch",
		Short:         docs.READMEShort,
		Long:          docs.READMEShort + "\n" + docs.READMELong,
		Example:       docs.READMEExamples,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(c *cobra.Command, args []string) error {
			return cmdutil.HandleError(c, cobra.NoArgs(c, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().StringP(cmdutil.ConfigFlag, "f", "",
		"path to the Portfile. Defaults to ./Portfile.")

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"print a stack-trace on failure")

	// klog verbosity and output flags
	fs := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(fs)
	cmd.PersistentFlags().AddGoFlagSet(fs)

	cmd.SetFlagErrorFunc(cmdutil.HandleError)

	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetPortpatchCommands(ctx, "portpatch")...)
	return cmd
}
