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
	"io/fs"
	"os"
	"strings"

	"github.com/Zocker1999NET/approx-config/cmd/approx-redirect/opts"
	"github.com/Zocker1999NET/approx-config/pkg/log"
	"github.com/Zocker1999NET/approx-config/pkg/mirrorlist"
	"github.com/Zocker1999NET/approx-config/pkg/operation"
	"github.com/Zocker1999NET/approx-config/pkg/pattern"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewReposCmd creates a new repos command
func NewReposCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos HOST",
		Short: "List the repositories served by a proxy",
		Long: `Repos reads the repository index of the proxy and prints every
upstream repository together with its proxy url and the pattern used to
recognise it in source lines.

Mirror lists written by an earlier --mirror run are never refreshed, so the
entries currently stored in each list below --path are shown as well. No
file is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.Resolve(cmd, args[0])
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

			logger.Trace(0, "Mirror groups:")
			for _, g := range runner.Groups() {
				logger.Trace(1, "%s: %s", g.Name, g.Domain)
			}

			mapping, err := runner.Repositories(cmd.Context())
			if err != nil {
				return err
			}

			mirrors, err := mirrorlist.New(res.Config.Path)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"Upstream", "Proxy", "Group", "Pattern", "Mirror list"}}
			for _, rule := range mapping.Rules() {
				stored, err := storedMirrors(mirrors, rule.Pattern)
				if err != nil {
					logger.Warningf("%v", err)
				}
				data = append(data, []string{rule.Pattern.Upstream, rule.Target, rule.Pattern.Group, rule.Pattern.String(), stored})
			}

			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering repository table: %w", err)
			}
			logger.Print(table + "\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.Path, "path", "p", "/etc/apt", "apt configuration directory holding the mirror lists")

	return cmd
}

// storedMirrors renders the entries of the mirror list of p, or "" if the
// list was never written.
func storedMirrors(m *mirrorlist.Manager, p *pattern.Pattern) (string, error) {
	path := m.Path(p)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	entries, err := mirrorlist.Read(path)
	if err != nil {
		return "", errors.Errorf("mirror list of %s: %w", p.Upstream, err)
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", "), nil
}
