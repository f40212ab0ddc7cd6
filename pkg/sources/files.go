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
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

const (
	// MainFile is the top level source file below the apt root
	MainFile = "sources.list"
	// PartsDir holds the per repository source files
	PartsDir = "sources.list.d"
	// PartsGlob selects the files of PartsDir that are rewritten
	PartsGlob = "**/*.list"

	// BackupSuffix is appended to a file name for its pre-rewrite copy
	BackupSuffix = ".save"
)

var repoLineRegex = regexp.MustCompile(`^\s*deb(-src)?\s`)

// IsRepositoryLine reports whether line declares a repository.
// Patterns are only ever evaluated on such lines.
func IsRepositoryLine(line string) bool {
	return repoLineRegex.MatchString(line)
}

// 📂 ListFiles returns the source files below root: the main file first,
// then every regular *.list file found recursively below the parts directory.
// Missing files and directories are skipped.
func ListFiles(root string) ([]string, error) {
	var files []string

	main := filepath.Join(root, MainFile)
	if ok, err := isRegular(main); err != nil {
		return nil, err
	} else if ok {
		files = append(files, main)
	}

	dir := filepath.Join(root, PartsDir)
	if info, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return files, nil
		}
		return nil, errors.Errorf("reading %s: %w", dir, err)
	} else if !info.IsDir() {
		return files, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), PartsGlob)
	if err != nil {
		return nil, errors.Errorf("globbing %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, m := range matches {
		path := filepath.Join(dir, filepath.FromSlash(m))
		ok, err := isRegular(path)
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, path)
		}
	}
	return files, nil
}

// isRegular follows symlinks; a dangling link counts as missing.
func isRegular(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Errorf("checking %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// resolve returns the absolute path of the file behind any symlinks, so the
// backup and the replacement land next to the real file.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
