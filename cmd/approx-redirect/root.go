// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/Zocker1999NET/approx-config/cmd/approx-redirect/commands"
	"github.com/Zocker1999NET/approx-config/cmd/approx-redirect/opts"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	return newRootCmdWithOpts(&opts.RootOpts{})
}

func newRootCmdWithOpts(o *opts.RootOpts) *cobra.Command {
	root := commands.NewRedirectCmd(o)
	addRootFlags(root, o)

	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		logger := setupLogging(o.Debug)
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}

	root.AddCommand(commands.NewReposCmd(o))
	root.AddCommand(newVersionCmd())

	return root
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVar(&o.ConfigFile, "config", "", "config file path (.yaml, .hcl or .json)")
	cmd.PersistentFlags().BoolVar(&o.Debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "trace every repository and source line")
	cmd.PersistentFlags().StringVar(&o.Timeout, "timeout", "", "limit for the index request, for example 10s")
}
