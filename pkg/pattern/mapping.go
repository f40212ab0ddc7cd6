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

package pattern

import (
	"github.com/Zocker1999NET/approx-config/pkg/discovery"
	"gitlab.com/tozd/go/errors"
)

// 📏 Rule pairs a compiled pattern with the proxy url it redirects to
type Rule struct {
	Pattern *Pattern
	Target  string
}

// NoMatch is the rule returned when no pattern matches a line.
var NoMatch = Rule{}

// Matched reports whether r is a real rule rather than NoMatch.
func (r Rule) Matched() bool {
	return r != NoMatch
}

// 🗺️ Mapping is the ordered, immutable set of rules for one run
type Mapping struct {
	rules []Rule
}

// NewMapping compiles every discovered entry, keeping discovery order.
func NewMapping(c *Compiler, entries []discovery.Entry) (*Mapping, error) {
	m := &Mapping{rules: make([]Rule, 0, len(entries))}
	for _, e := range entries {
		p, err := c.Compile(e.Upstream)
		if err != nil {
			return nil, errors.Errorf("compiling %s: %w", e.Upstream, err)
		}
		m.rules = append(m.rules, Rule{Pattern: p, Target: e.Target})
	}
	return m, nil
}

// Len returns the number of rules.
func (m *Mapping) Len() int {
	return len(m.rules)
}

// Rules returns a copy of the rules in evaluation order.
func (m *Mapping) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

// 🥇 Match returns the first rule whose pattern matches line, or NoMatch
func (m *Mapping) Match(line string) Rule {
	for _, r := range m.rules {
		if r.Pattern.MatchString(line) {
			return r
		}
	}
	return NoMatch
}
