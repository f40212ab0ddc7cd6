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

package commands

import (
	"github.com/Zocker1999NET/approx-config/cmd/approx-redirect/opts"
	"github.com/Zocker1999NET/approx-config/pkg/log"
	"github.com/Zocker1999NET/approx-config/pkg/operation"
	"github.com/Zocker1999NET/approx-config/pkg/status"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewRedirectCmd creates the root command rewriting the source files
func NewRedirectCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approx-redirect HOST",
		Short: "Redirect apt sources to an approx proxy",
		Long: `approx-redirect reads the repository index of an approx proxy and
rewrites every apt source line whose repository the proxy serves so that it
points at the proxy.

Without --confirm nothing is written and the lines that would change are
shown. With --confirm every changed file is replaced atomically and the
original is kept next to it with a .save suffix.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := ""
			if len(args) > 0 {
				host = args[0]
			}

			res, err := o.Resolve(cmd, host)
			if err != nil {
				return err
			}

			logger := log.FromContext(cmd.Context())

			runner, err := operation.New(operation.Options{
				Config:  res.Config,
				Fetcher: res.Fetcher,
				Logger:  logger,
			})
			if err != nil {
				return errors.Errorf("creating runner: %w", err)
			}

			logger.Header(runner.Describe())

			summary, runErr := runner.Run(cmd.Context())
			if summary != nil {
				logger.LogNewline()
				table, err := status.Render(summary)
				if err != nil {
					return err
				}
				logger.Print(table)
				if !res.Config.Confirm && summary.Pending > 0 {
					logger.Infof("%d file(s) would change, run again with --confirm to apply", summary.Pending)
				}
			}
			if runErr != nil {
				return runErr
			}

			if res.Config.Confirm {
				logger.Successf("%d of %d file(s) rewritten", summary.Rewritten, len(summary.Files))
			} else {
				logger.Success("check complete")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&o.Confirm, "confirm", "c", false, "write the rewritten files, keeping a .save backup")
	cmd.Flags().BoolVarP(&o.Mirror, "mirror", "m", false, "point sources at mirror lists with the proxy first and the upstream as fallback")
	cmd.Flags().StringVarP(&o.Path, "path", "p", "/etc/apt", "apt configuration directory")

	return cmd
}
