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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zocker1999NET/approx-config/pkg/pattern"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the apt configuration directory.
const DefaultPath = "/etc/apt"

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🪞 MirrorGroup is a user defined set of interchangeable mirror hosts
type MirrorGroup struct {
	Name   string `json:"name" yaml:"name" hcl:"name,label"`
	Domain string `json:"domain" yaml:"domain" hcl:"domain"`
}

// 📚 Config is the configuration of one run. It is not modified once
// Validate succeeded.
type Config struct {
	Host         string        `json:"host,omitempty" yaml:"host,omitempty" hcl:"host,optional"`
	Path         string        `json:"path,omitempty" yaml:"path,omitempty" hcl:"path,optional"`
	Confirm      bool          `json:"confirm,omitempty" yaml:"confirm,omitempty" hcl:"confirm,optional"`
	Mirror       bool          `json:"mirror,omitempty" yaml:"mirror,omitempty" hcl:"mirror,optional"`
	Verbose      bool          `json:"verbose,omitempty" yaml:"verbose,omitempty" hcl:"verbose,optional"`
	Timeout      string        `json:"timeout,omitempty" yaml:"timeout,omitempty" hcl:"timeout,optional"`
	MirrorGroups []MirrorGroup `json:"mirror_groups,omitempty" yaml:"mirror_groups,omitempty" hcl:"mirror_group,block"`

	timeout time.Duration
	groups  []pattern.MirrorGroup
}

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{Path: DefaultPath}
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration, fills defaults and compiles the
// user mirror groups.
func (cfg *Config) Validate() error {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	cfg.Path = filepath.Clean(cfg.Path)
	cfg.Host = strings.TrimSpace(cfg.Host)

	cfg.timeout = 0
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return errors.Errorf("timeout: %w", err)
		}
		if d < 0 {
			return errors.Errorf("timeout must not be negative: %s", cfg.Timeout)
		}
		cfg.timeout = d
	}

	cfg.groups = nil
	seen := map[string]bool{}
	for i, g := range cfg.MirrorGroups {
		if g.Name == "" {
			return errors.Errorf("mirror group %d: name is required", i)
		}
		if seen[g.Name] {
			return errors.Errorf("mirror group %s: defined twice", g.Name)
		}
		seen[g.Name] = true

		mg, err := pattern.NewMirrorGroup(g.Name, g.Domain)
		if err != nil {
			return errors.Errorf("mirror group %d: %w", i, err)
		}
		cfg.groups = append(cfg.groups, mg)
	}

	return nil
}

// FetchTimeout is the limit for the index request, zero means none.
func (cfg *Config) FetchTimeout() time.Duration {
	return cfg.timeout
}

// Groups returns the compiled user mirror groups.
func (cfg *Config) Groups() []pattern.MirrorGroup {
	return append([]pattern.MirrorGroup(nil), cfg.groups...)
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	mode := "check"
	if cfg.Confirm {
		mode = "write"
	}
	if cfg.Mirror {
		mode += "+mirror"
	}
	return fmt.Sprintf("%s -> %s (%s)", cfg.Host, cfg.Path, mode)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}

	return &cfg, nil
}
