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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "yaml",
			file: "approx.yaml",
			config: `
host: proxy.local:9999
path: /srv/apt/
mirror: true
timeout: 30s
mirror_groups:
  - name: fedora
    domain: '(?:dl|download)\.fedoraproject\.org'
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "proxy.local:9999", cfg.Host, "host should match")
				assert.Equal(t, "/srv/apt", cfg.Path, "path should be cleaned")
				assert.True(t, cfg.Mirror, "mirror should be set")
				assert.False(t, cfg.Confirm, "confirm should default to false")
				assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
				require.Len(t, cfg.Groups(), 1)
				assert.Equal(t, "fedora", cfg.Groups()[0].Name)
			},
		},
		{
			name:   "minimal_yaml",
			file:   "approx.yml",
			config: "verbose: true\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPath, cfg.Path, "path should have default value")
				assert.True(t, cfg.Verbose)
				assert.Zero(t, cfg.FetchTimeout())
				assert.Empty(t, cfg.Groups())
			},
		},
		{
			name: "hcl",
			file: "approx.hcl",
			config: `
path    = default_path
confirm = true

mirror_group "fedora" {
  domain = "(?:dl|download)\\.fedoraproject\\.org"
}

mirror_group "centos" {
  domain = "(?:vault|mirror)\\.centos\\.org"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPath, cfg.Path)
				assert.True(t, cfg.Confirm)
				require.Len(t, cfg.Groups(), 2)
				assert.Equal(t, "centos", cfg.Groups()[1].Name)
			},
		},
		{
			name:   "json",
			file:   "approx.json",
			config: `{"host": "http://proxy", "mirror_groups": [{"name": "x", "domain": "[a-z]+\\.example\\.org"}]}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://proxy", cfg.Host)
				require.Len(t, cfg.Groups(), 1)
			},
		},
		{
			name:        "unknown_yaml_field",
			file:        "approx.yaml",
			config:      "hosts: x\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:        "unknown_json_field",
			file:        "approx.json",
			config:      `{"confirmed": true}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name:        "invalid_group_expression",
			file:        "approx.yaml",
			config:      "mirror_groups:\n  - name: broken\n    domain: '(unclosed'\n",
			wantErr:     true,
			errContains: "mirror group broken",
		},
		{
			name:        "duplicate_group",
			file:        "approx.yaml",
			config:      "mirror_groups:\n  - {name: a, domain: x}\n  - {name: a, domain: y}\n",
			wantErr:     true,
			errContains: "defined twice",
		},
		{
			name:        "invalid_timeout",
			file:        "approx.yaml",
			config:      "timeout: soon\n",
			wantErr:     true,
			errContains: "timeout",
		},
		{
			name:        "unsupported_extension",
			file:        "approx.toml",
			config:      "path = '/etc/apt'\n",
			wantErr:     true,
			errContains: "no parser found",
		},
		{
			name:        "invalid_hcl",
			file:        "approx.hcl",
			config:      "path = \n",
			wantErr:     true,
			errContains: "parsing HCL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(zerolog.NewTestWriter(t))
			ctx := logger.WithContext(context.Background())

			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0644))

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/etc/apt", cfg.Path)
	assert.Equal(t, " -> /etc/apt (check)", cfg.String())

	cfg.Host = "http://proxy"
	cfg.Confirm = true
	cfg.Mirror = true
	assert.Equal(t, "http://proxy -> /etc/apt (write+mirror)", cfg.String())
}
