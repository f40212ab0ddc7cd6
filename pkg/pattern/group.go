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

	"gitlab.com/tozd/go/errors"
)

// 🪞 MirrorGroup is a set of hosts serving the same repository content.
// Domain is a regular expression sub-pattern matching every host of the group.
type MirrorGroup struct {
	Name   string
	Domain string

	prefix *regexp.Regexp
}

// 🧱 built-in groups, evaluated in this order before any user groups
var (
	DebianGroup = MustNewMirrorGroup("debian", `(?:ftp[0-9]*(?:\.[a-z]+)?|deb)\.debian\.org`)
	UbuntuGroup = MustNewMirrorGroup("ubuntu", `(?:[a-z]+\.)?(?:archive|releases)\.ubuntu\.com`)
)

// DefaultGroups returns the built-in mirror groups in registration order.
func DefaultGroups() []MirrorGroup {
	return []MirrorGroup{DebianGroup, UbuntuGroup}
}

// 🏭 NewMirrorGroup validates domain and returns a usable group
func NewMirrorGroup(name, domain string) (MirrorGroup, error) {
	if domain == "" {
		return MirrorGroup{}, &CompileError{Group: name, Err: errors.New("domain pattern is empty")}
	}
	prefix, err := regexp.Compile(`^(?:` + domain + `)`)
	if err != nil {
		return MirrorGroup{}, &CompileError{Group: name, Source: domain, Err: err}
	}
	return MirrorGroup{Name: name, Domain: domain, prefix: prefix}, nil
}

// MustNewMirrorGroup is like NewMirrorGroup but panics on an invalid domain.
func MustNewMirrorGroup(name, domain string) MirrorGroup {
	g, err := NewMirrorGroup(name, domain)
	if err != nil {
		panic(err)
	}
	return g
}

// 🔍 matchPrefix reports how many leading bytes of host belong to the group
func (g MirrorGroup) matchPrefix(host string) (int, bool) {
	if g.prefix == nil {
		return 0, false
	}
	loc := g.prefix.FindStringIndex(host)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}

// fragment is the group's domain rule, wrapped so alternations stay local.
func (g MirrorGroup) fragment() string {
	return `(?:` + g.Domain + `)`
}

// CompileError reports a pattern that could not be built.
type CompileError struct {
	Group  string
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	if e.Group != "" {
		return "mirror group " + e.Group + ": " + e.Err.Error()
	}
	return "compiling " + e.Source + ": " + e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
