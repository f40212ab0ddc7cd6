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
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	protoPrefix = `https?://`
	slashSuffix = `/?`

	// a url ends at whitespace, an option bracket or the end of the line
	boundary = `(?P<tail>[\s\]]|$)`
)

// 🎯 Pattern matches one upstream url and its protocol and mirror equivalents
type Pattern struct {
	// Upstream is the url the pattern was compiled from
	Upstream string
	// Source is the protocol agnostic pattern text
	Source string
	// Group names the mirror group that replaced the literal domain, if any
	Group string

	re *regexp.Regexp
}

// String returns the pattern source text.
func (p *Pattern) String() string {
	return p.Source
}

// MatchString reports whether line contains a url matched by p.
func (p *Pattern) MatchString(line string) bool {
	return p.re.MatchString(line)
}

// 🔍 FindURL returns the byte span of the first matched url in line
func (p *Pattern) FindURL(line string) (start, end int, ok bool) {
	loc := p.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return 0, 0, false
	}
	return loc[2], loc[3], true
}

// 🔄 Replace substitutes every matched url span in line with replacement
func (p *Pattern) Replace(line, replacement string) string {
	if p.Source == "" {
		return line
	}
	return p.re.ReplaceAllString(line, strings.ReplaceAll(replacement, "$", "$$")+"${tail}")
}

// 🏭 Compiler turns upstream urls into patterns
type Compiler struct {
	groups []MirrorGroup
}

// NewCompiler registers the built-in groups followed by extra.
func NewCompiler(extra ...MirrorGroup) *Compiler {
	return &Compiler{groups: append(DefaultGroups(), extra...)}
}

// Groups returns the registered groups in evaluation order.
func (c *Compiler) Groups() []MirrorGroup {
	return append([]MirrorGroup(nil), c.groups...)
}

// 🧩 Compile builds the pattern for url.
//
// Urls without an http or https scheme are matched literally. Otherwise the
// scheme becomes protocol agnostic, a trailing slash is optional, and a domain
// belonging to a registered mirror group is replaced by the group's rule.
func (c *Compiler) Compile(url string) (*Pattern, error) {
	p := &Pattern{Upstream: url}

	switch {
	case url == "":
		// inert: declaring lines are never empty
		p.re = regexp.MustCompile(`^$`)
		return p, nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		rest := url[strings.Index(url, "://")+3:]
		domain, path := splitDomainPath(rest)
		fragment := regexp.QuoteMeta(rest)
		for _, g := range c.groups {
			if n, ok := g.matchPrefix(domain); ok {
				fragment = g.fragment() + regexp.QuoteMeta(domain[n:]) + regexp.QuoteMeta(path)
				p.Group = g.Name
				break
			}
		}
		p.Source = protoPrefix + fragment + slashSuffix
	default:
		p.Source = regexp.QuoteMeta(url)
	}

	re, err := regexp.Compile(`(?P<url>` + p.Source + `)` + boundary)
	if err != nil {
		return nil, errors.WithStack(&CompileError{Source: url, Err: err})
	}
	p.re = re
	return p, nil
}

// splitDomainPath splits at the first slash; path keeps its leading slash.
func splitDomainPath(url string) (domain, path string) {
	if i := strings.IndexByte(url, '/'); i >= 0 {
		return url[:i], url[i:]
	}
	return url, ""
}
