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

package sources

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zocker1999NET/approx-config/pkg/mirrorlist"
	"github.com/Zocker1999NET/approx-config/pkg/pattern"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// maxLineSize bounds a single source line
const maxLineSize = 1024 * 1024

// splitLineEnding separates raw into the line and its terminator. The
// terminator is written back as read.
func splitLineEnding(raw string) (line, eol string) {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return raw[:len(raw)-2], "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return raw[:len(raw)-1], "\n"
	default:
		return raw, ""
	}
}

// 🔭 Tracer receives the human readable per line trace
type Tracer interface {
	Trace(depth int, format string, args ...any)
}

type nopTracer struct{}

func (nopTracer) Trace(int, string, ...any) {}

// 🔧 Options configures a Transformer
type Options struct {
	// Mapping holds the rules, evaluated in order
	Mapping *pattern.Mapping
	// Mirrors is required when Mirror is set
	Mirrors *mirrorlist.Manager
	// Write replaces changed files; otherwise changes are only reported
	Write bool
	// Mirror substitutes mirror list references instead of proxy urls
	Mirror bool
	// Tracer receives the verbose trace, may be nil
	Tracer Tracer
}

// 🏭 Transformer rewrites source files according to a mapping
type Transformer struct {
	opts Options
}

// New validates opts and returns a transformer.
func New(opts Options) (*Transformer, error) {
	if opts.Mapping == nil {
		return nil, errors.Errorf("mapping is required")
	}
	if opts.Mirror && opts.Mirrors == nil {
		return nil, errors.Errorf("mirror list manager is required in mirror mode")
	}
	if opts.Tracer == nil {
		opts.Tracer = nopTracer{}
	}
	return &Transformer{opts: opts}, nil
}

// 📝 LineChange is one rewritten line
type LineChange struct {
	Number   int
	Old      string
	New      string
	Upstream string // url text matched in Old
	Target   string // proxy url or mirror list reference
}

// 📄 FileResult is the outcome of processing one file
type FileResult struct {
	Path    string
	Changes []LineChange
	Written bool
	Backup  string
}

// Changed reports whether any line was rewritten.
func (r *FileResult) Changed() bool {
	return len(r.Changes) > 0
}

// 🔄 RewriteLine applies the first matching rule to a repository line.
// It returns the line unchanged and ok=false when nothing applies.
func (t *Transformer) RewriteLine(ctx context.Context, line string, depth int) (LineChange, bool, error) {
	change := LineChange{Old: line, New: line}
	if !IsRepositoryLine(line) {
		return change, false, nil
	}

	rule := t.opts.Mapping.Match(line)
	if !rule.Matched() {
		t.opts.Tracer.Trace(depth, "  = %s", line)
		return change, false, nil
	}

	start, end, _ := rule.Pattern.FindURL(line)
	change.Upstream = line[start:end]
	change.Target = rule.Target

	if t.opts.Mirror {
		change.Target = t.opts.Mirrors.Reference(rule.Pattern)
		if t.opts.Write {
			if _, err := t.opts.Mirrors.Ensure(ctx, rule.Pattern, rule.Target, change.Upstream); err != nil {
				return change, false, err
			}
		}
	}

	change.New = rule.Pattern.Replace(line, change.Target)
	if change.New == line {
		t.opts.Tracer.Trace(depth, "  = %s", line)
		return change, false, nil
	}

	t.opts.Tracer.Trace(depth, "%s", line)
	t.opts.Tracer.Trace(depth, " -> %s # %s", change.New, rule.Target)
	return change, true, nil
}

// 📄 Process rewrites one file. In write mode a changed file is first moved
// to its .save backup and then replaced by the rewritten copy; an unchanged
// file is never touched.
func (t *Transformer) Process(ctx context.Context, path string) (*FileResult, error) {
	logger := zerolog.Ctx(ctx)

	file, err := resolve(path)
	if err != nil {
		return nil, errors.WithStack(&FileError{Path: path, Op: "resolving", Err: err})
	}
	result := &FileResult{Path: file}

	if t.opts.Write {
		t.opts.Tracer.Trace(0, "Run replacements on %s:", file)
	} else {
		t.opts.Tracer.Trace(0, "Check %s:", file)
	}

	in, err := os.Open(file)
	if err != nil {
		return nil, errors.WithStack(&FileError{Path: file, Op: "opening", Err: err})
	}
	defer in.Close()

	var out *os.File
	if t.opts.Write {
		out, err = os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".*.tmp")
		if err != nil {
			return nil, errors.WithStack(&FileError{Path: file, Op: "creating temporary file for", Err: err})
		}
		defer func() {
			// no-op once the temporary file took the original's place
			out.Close()
			os.Remove(out.Name())
		}()
	}

	var w *bufio.Writer
	if out != nil {
		w = bufio.NewWriter(out)
	}

	reader := bufio.NewReaderSize(in, 64*1024)
	number := 0
	for {
		raw, rerr := reader.ReadString('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, errors.WithStack(&FileError{Path: file, Op: "reading", Err: rerr})
		}
		if raw == "" {
			break
		}
		if len(raw) > maxLineSize {
			return nil, errors.WithStack(&FileError{Path: file, Op: "reading", Err: errors.Errorf("line %d exceeds %d bytes", number+1, maxLineSize)})
		}
		number++
		line, eol := splitLineEnding(raw)

		change, ok, err := t.RewriteLine(ctx, line, 1)
		if err != nil {
			return nil, errors.WithStack(&FileError{Path: file, Op: "rewriting", Err: err})
		}
		if ok {
			change.Number = number
			result.Changes = append(result.Changes, change)
			line = change.New
		}

		if w != nil {
			if _, err := w.WriteString(line + eol); err != nil {
				return nil, errors.WithStack(&FileError{Path: file, Op: "writing temporary file for", Err: err})
			}
		}
		if rerr != nil {
			break
		}
	}

	logger.Debug().Str("file", file).Int("changes", len(result.Changes)).Bool("write", t.opts.Write).Msg("file scanned")

	if out == nil || !result.Changed() {
		return result, nil
	}

	if err := w.Flush(); err != nil {
		return nil, errors.WithStack(&FileError{Path: file, Op: "writing temporary file for", Err: err})
	}
	if err := out.Chmod(0644); err != nil {
		return nil, errors.WithStack(&FileError{Path: file, Op: "setting permissions for", Err: err})
	}
	if err := out.Sync(); err != nil {
		return nil, errors.WithStack(&FileError{Path: file, Op: "syncing temporary file for", Err: err})
	}
	if err := out.Close(); err != nil {
		return nil, errors.WithStack(&FileError{Path: file, Op: "closing temporary file for", Err: err})
	}

	backup := file + BackupSuffix
	if err := os.Rename(file, backup); err != nil {
		return nil, errors.WithStack(&FileError{Path: file, Op: "backing up", Err: err})
	}
	if err := os.Rename(out.Name(), file); err != nil {
		if rerr := os.Rename(backup, file); rerr != nil {
			logger.Error().Err(rerr).Str("file", file).Str("backup", backup).Msg("restoring backup")
		}
		return nil, errors.WithStack(&FileError{Path: file, Op: "replacing", Err: err})
	}

	result.Written = true
	result.Backup = backup
	logger.Debug().Str("file", file).Str("backup", backup).Msg("file replaced")
	return result, nil
}
