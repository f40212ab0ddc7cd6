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
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Render formats the summary as a table followed by a one line total
func Render(s *Summary) (string, error) {
	data := pterm.TableData{{"File", "Status", "Lines", "Backup"}}
	for _, e := range s.Files {
		data = append(data, []string{e.Path, e.Status.String(), strconv.Itoa(e.Changes), e.Backup})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", errors.Errorf("rendering summary table: %w", err)
	}

	return table + "\n" + Totals(s) + "\n", nil
}

// Totals is the one line summary of a run.
func Totals(s *Summary) string {
	return fmt.Sprintf("%d repositories, %d files: %d rewritten, %d would change, %d unchanged, %d failed (%d lines)",
		s.Repositories, len(s.Files), s.Rewritten, s.Pending, s.Unchanged, s.Failed, s.Lines)
}
