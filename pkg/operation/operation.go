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

package operation

import (
	"context"
	"fmt"
	"os"

	"github.com/Zocker1999NET/approx-config/pkg/config"
	"github.com/Zocker1999NET/approx-config/pkg/discovery"
	"github.com/Zocker1999NET/approx-config/pkg/log"
	"github.com/Zocker1999NET/approx-config/pkg/mirrorlist"
	"github.com/Zocker1999NET/approx-config/pkg/pattern"
	"github.com/Zocker1999NET/approx-config/pkg/sources"
	"github.com/Zocker1999NET/approx-config/pkg/status"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Options contains the collaborators of a run
type Options struct {
	// Config is the validated run configuration
	Config *config.Config
	// Fetcher reads the proxy index
	Fetcher discovery.Fetcher
	// Logger receives console output and the verbose trace
	Logger *log.Logger
}

// 🎮 Runner executes redirect runs
type Runner struct {
	cfg      *config.Config
	client   *discovery.Client
	compiler *pattern.Compiler
	logger   *log.Logger
}

// 🏭 New creates a new runner with the given options
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.Errorf("config is required")
	}
	if opts.Config.Host == "" {
		return nil, errors.Errorf("proxy host is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.Errorf("fetcher is required")
	}
	if opts.Logger == nil {
		return nil, errors.Errorf("logger is required")
	}
	return &Runner{
		cfg:      opts.Config,
		client:   discovery.NewClient(opts.Fetcher),
		compiler: pattern.NewCompiler(opts.Config.Groups()...),
		logger:   opts.Logger,
	}, nil
}

// Groups returns the mirror groups patterns are compiled with.
func (r *Runner) Groups() []pattern.MirrorGroup {
	return r.compiler.Groups()
}

// 🗺️ Repositories discovers the proxy repositories and compiles their patterns
func (r *Runner) Repositories(ctx context.Context) (*pattern.Mapping, error) {
	host := discovery.NormalizeHost(r.cfg.Host)
	r.logger.Trace(0, "Connect to %s to retrieve repository list", host)

	entries, err := r.client.Discover(ctx, host)
	if err != nil {
		return nil, err
	}

	mapping, err := pattern.NewMapping(r.compiler, entries)
	if err != nil {
		return nil, errors.Errorf("building mapping: %w", err)
	}

	r.logger.Trace(0, "Found following repositories:")
	for _, rule := range mapping.Rules() {
		r.logger.Trace(1, "%s", rule.Pattern.Source)
	}
	return mapping, nil
}

// 🏃 Run rewrites every source file below the configured root. A discovery
// failure aborts before any file is read; a failing file is recorded and the
// remaining files are still processed. The returned error joins all file
// failures.
func (r *Runner) Run(ctx context.Context) (*status.Summary, error) {
	logger := zerolog.Ctx(ctx)

	mapping, err := r.Repositories(ctx)
	if err != nil {
		return nil, err
	}

	files, err := sources.ListFiles(r.cfg.Path)
	if err != nil {
		return nil, errors.Errorf("listing source files: %w", err)
	}
	logger.Debug().Int("files", len(files)).Str("root", r.cfg.Path).Msg("source files found")

	opts := sources.Options{
		Mapping: mapping,
		Write:   r.cfg.Confirm,
		Mirror:  r.cfg.Mirror,
		Tracer:  r.logger,
	}
	if r.cfg.Mirror {
		opts.Mirrors, err = mirrorlist.New(r.cfg.Path)
		if err != nil {
			return nil, err
		}
	}
	transformer, err := sources.New(opts)
	if err != nil {
		return nil, errors.Errorf("creating transformer: %w", err)
	}

	tracker := status.NewTracker()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return tracker.Summary(mapping.Len()), errors.Errorf("run cancelled: %w", err)
		}
		r.processFile(ctx, transformer, tracker, file)
	}

	summary := tracker.Summary(mapping.Len())
	if err := summary.Err(); err != nil {
		return summary, errors.Errorf("%d of %d files failed: %w", summary.Failed, len(summary.Files), err)
	}
	return summary, nil
}

// 📄 processFile runs one file and records its outcome
func (r *Runner) processFile(ctx context.Context, t *sources.Transformer, tracker *status.Tracker, file string) {
	res, err := t.Process(ctx, file)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("file", file).Msg("processing source file")
		tracker.Track(status.FileEntry{Path: file, Status: status.StatusFailed, Err: err})
		r.logger.LogFileOperation(ctx, log.FileOperation{Path: file, Status: status.StatusFailed.String(), Failed: true})
		r.logger.Errorf("%s: %v", file, err)
		return
	}

	if info, err := os.Lstat(file); err == nil && info.Mode()&os.ModeSymlink != 0 {
		r.logger.Warningf("%s is a symlink, rewriting %s", file, res.Path)
	}

	entry := status.FileEntry{Path: res.Path, Status: status.StatusUnchanged, Changes: len(res.Changes), Backup: res.Backup}
	switch {
	case res.Written:
		entry.Status = status.StatusRewritten
	case res.Changed():
		entry.Status = status.StatusPending
	}
	tracker.Track(entry)

	r.logger.LogFileOperation(ctx, log.FileOperation{
		Path:    entry.Path,
		Status:  entry.Status.String(),
		Changes: entry.Changes,
		Written: res.Written,
	})
	if !res.Written {
		for _, c := range res.Changes {
			r.logger.LogChange(c.Number, c.Diff())
		}
	}
}

// Describe returns a one line description of the run for headers.
func (r *Runner) Describe() string {
	if r.cfg.Confirm {
		return fmt.Sprintf("redirecting %s to %s", r.cfg.Path, discovery.NormalizeHost(r.cfg.Host))
	}
	return fmt.Sprintf("checking %s against %s", r.cfg.Path, discovery.NormalizeHost(r.cfg.Host))
}
