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

package mirrorlist

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Zocker1999NET/approx-config/pkg/pattern"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// DirName is the directory below the apt root holding mirror lists
	DirName = "mirror-lists"

	fileExt = ".lst"

	// PriorityProxy is preferred over PriorityUpstream
	PriorityProxy    = 1
	PriorityUpstream = 9

	// Scheme prefixes a mirror list path in a source line
	Scheme = "mirror+file:"
)

// 📜 Entry is one line of a mirror list
type Entry struct {
	URL      string
	Priority int
}

func (e Entry) String() string {
	return fmt.Sprintf("%s priority:%d", e.URL, e.Priority)
}

// 🗂️ Manager keeps one fallback list per compiled pattern
type Manager struct {
	dir string
}

// New returns a manager storing lists below root/mirror-lists.
func New(root string) (*Manager, error) {
	dir, err := filepath.Abs(filepath.Join(root, DirName))
	if err != nil {
		return nil, errors.Errorf("resolving mirror list directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the absolute directory of the lists.
func (m *Manager) Dir() string {
	return m.dir
}

// 🔑 Path returns the list file of p, named after the sha256 of its source
func (m *Manager) Path(p *pattern.Pattern) string {
	sum := sha256.Sum256([]byte(p.Source))
	return filepath.Join(m.dir, hex.EncodeToString(sum[:])+fileExt)
}

// Reference returns the apt uri pointing at the list file of p.
func (m *Manager) Reference(p *pattern.Pattern) string {
	return Scheme + m.Path(p)
}

// ✍️ Ensure creates the list of p unless it already exists. An existing list
// is never rewritten, even if target or upstream differ from its content.
func (m *Manager) Ensure(ctx context.Context, p *pattern.Pattern, target, upstream string) (string, error) {
	logger := zerolog.Ctx(ctx)
	path := m.Path(p)

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", errors.Errorf("creating mirror list directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			logger.Debug().Str("path", path).Msg("mirror list exists")
			return path, nil
		}
		return "", errors.Errorf("creating mirror list: %w", err)
	}

	content := Entry{URL: target, Priority: PriorityProxy}.String() + "\n" +
		Entry{URL: upstream, Priority: PriorityUpstream}.String() + "\n"
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Errorf("writing mirror list: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Errorf("closing mirror list: %w", err)
	}

	logger.Debug().Str("path", path).Str("pattern", p.Source).Msg("mirror list created")
	return path, nil
}

// 📖 Read parses a mirror list, ordered by priority.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening mirror list: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e := Entry{URL: line}
		fields := strings.Fields(line)
		if len(fields) > 1 {
			if n, ok := strings.CutPrefix(fields[len(fields)-1], "priority:"); ok {
				prio, err := strconv.Atoi(n)
				if err != nil {
					return nil, errors.Errorf("parsing priority of %q: %w", line, err)
				}
				e = Entry{URL: strings.Join(fields[:len(fields)-1], " "), Priority: prio}
			}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("reading mirror list: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority < entries[j].Priority
	})
	return entries, nil
}
