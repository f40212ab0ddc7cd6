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

package discovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// one table row of the approx index: proxy path first, upstream url second
	rowRegex    = regexp.MustCompile(`^<tr><td><a href="(?P<new>[^"]+)">[^<>]+</a></td><td><a href="(?P<old>.*)">http[^<>]*</a></td></tr>$`)
	schemeRegex = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
)

// 📦 Entry is one repository served by the proxy
type Entry struct {
	// Upstream is the original repository url without a trailing slash
	Upstream string
	// Target is the absolute proxy url replacing Upstream
	Target string
}

// 🔌 Fetcher retrieves the index body of a proxy
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// 🛰️ Client discovers the repositories a proxy can serve
type Client struct {
	fetcher Fetcher
}

// NewClient returns a client reading indexes through fetcher.
func NewClient(fetcher Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

// 🔍 Discover fetches the index of base and returns its entries in page order.
// Any failure is returned as *Error and no entries are returned.
func (c *Client) Discover(ctx context.Context, base string) ([]Entry, error) {
	logger := zerolog.Ctx(ctx)
	base = NormalizeHost(base)
	logger.Debug().Str("host", base).Msg("retrieving repository list")

	body, err := c.fetcher.Fetch(ctx, base)
	if err != nil {
		return nil, errors.WithStack(&Error{URL: base, Err: err})
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.WithStack(&Error{URL: base, Err: ErrEmptyIndex})
	}

	entries := ParseIndex(base, body)
	if len(entries) == 0 {
		return nil, errors.WithStack(&Error{URL: base, Err: ErrNoRepositories})
	}

	logger.Debug().Int("count", len(entries)).Msg("repositories discovered")
	return entries, nil
}

// 📝 ParseIndex extracts every repository row of body, resolving proxy paths
// against base. A repeated upstream url keeps its first position and takes
// the last target.
func ParseIndex(base, body string) []Entry {
	base = strings.TrimRight(base, "/")
	var entries []Entry
	seen := map[string]int{}
	for _, line := range strings.Split(body, "\n") {
		m := rowRegex.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}
		e := Entry{
			Upstream: trimSlash(m[rowRegex.SubexpIndex("old")]),
			Target:   base + "/" + trimSlash(m[rowRegex.SubexpIndex("new")]),
		}
		if i, ok := seen[e.Upstream]; ok {
			entries[i].Target = e.Target
			continue
		}
		seen[e.Upstream] = len(entries)
		entries = append(entries, e)
	}
	return entries
}

// NormalizeHost assumes http when host carries no scheme and drops
// trailing slashes.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if !schemeRegex.MatchString(host) {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// trimSlash removes exactly one trailing slash.
func trimSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
