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

package opts

import (
	"net/http"

	"github.com/Zocker1999NET/approx-config/pkg/config"
	"github.com/Zocker1999NET/approx-config/pkg/discovery"
	"github.com/Zocker1999NET/approx-config/pkg/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	// Flags
	ConfigFile string
	Debug      bool
	Verbose    bool
	Timeout    string
	Confirm    bool
	Mirror     bool
	Path       string

	// Fetcher overrides the http fetcher, used by tests
	Fetcher discovery.Fetcher
}

// 🔧 Resolved is what a command needs after flags and config file are merged
type Resolved struct {
	Config  *config.Config
	Fetcher discovery.Fetcher
}

// 🎯 Resolve loads the optional config file, applies the explicitly set
// flags on top of it and builds the collaborators of a run. The console
// logger is stored in the command context, see log.FromContext.
func (o *RootOpts) Resolve(cmd *cobra.Command, host string) (*Resolved, error) {
	ctx := cmd.Context()

	cfg := config.Default()
	if o.ConfigFile != "" {
		loaded, err := config.Load(ctx, o.ConfigFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if host != "" {
		cfg.Host = host
	}
	if flags.Changed("confirm") {
		cfg.Confirm = o.Confirm
	}
	if flags.Changed("mirror") {
		cfg.Mirror = o.Mirror
	}
	if flags.Changed("path") {
		cfg.Path = o.Path
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.Timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	fetcher := o.Fetcher
	if fetcher == nil {
		fetcher = discovery.NewHTTPFetcher(&http.Client{Timeout: cfg.FetchTimeout()})
	}

	zlog := zerolog.Ctx(ctx)
	zlog.Debug().Str("config", cfg.String()).Msg("configuration resolved")

	cmd.SetContext(log.NewContext(ctx, log.New(cmd.OutOrStdout(), *zlog, cfg.Verbose)))

	return &Resolved{
		Config:  cfg,
		Fetcher: fetcher,
	}, nil
}
