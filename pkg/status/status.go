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

package status

import (
	"sync"

	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus is the outcome of processing one source file
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusUnchanged            // No line matched a rule
	StatusPending              // Lines would change, check mode
	StatusRewritten            // File was replaced, backup written
	StatusFailed               // Processing failed, file left alone
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusPending:
		return "would change"
	case StatusRewritten:
		return "rewritten"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileEntry records what happened to one source file
type FileEntry struct {
	Path    string
	Status  FileStatus
	Changes int
	Backup  string
	Err     error
}

// 📈 Tracker collects file entries in processing order
type Tracker struct {
	mu      sync.Mutex
	entries []FileEntry
}

// 🏭 NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track records entry.
func (t *Tracker) Track(entry FileEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

// 📋 Summary returns the counts and entries recorded so far
func (t *Tracker) Summary(repositories int) *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Summary{
		Repositories: repositories,
		Files:        append([]FileEntry(nil), t.entries...),
	}
	for _, e := range s.Files {
		switch e.Status {
		case StatusUnchanged:
			s.Unchanged++
		case StatusPending:
			s.Pending++
		case StatusRewritten:
			s.Rewritten++
		case StatusFailed:
			s.Failed++
		}
		s.Lines += e.Changes
	}
	return s
}

// 📋 Summary is the outcome of a whole run
type Summary struct {
	Repositories int
	Files        []FileEntry
	Unchanged    int
	Pending      int
	Rewritten    int
	Failed       int
	Lines        int
}

// Err joins the errors of all failed files, nil if none failed.
func (s *Summary) Err() error {
	var errs []error
	for _, e := range s.Files {
		if e.Status == StatusFailed && e.Err != nil {
			errs = append(errs, e.Err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
