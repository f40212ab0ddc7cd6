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

package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zocker1999NET/approx-config/pkg/discovery"
	"github.com/Zocker1999NET/approx-config/pkg/mirrorlist"
	"github.com/Zocker1999NET/approx-config/pkg/pattern"
	"github.com/Zocker1999NET/approx-config/pkg/sources"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const original = `# deb http://deb.debian.org/debian bullseye main
deb http://deb.debian.org/debian bullseye main
deb-src https://ftp.debian.org/debian/ bullseye main

deb http://security.debian.org/debian-security bullseye-security main
deb http://example.org/other bullseye main
`

const rewritten = `# deb http://deb.debian.org/debian bullseye main
deb http://proxy.local:9999/debian bullseye main
deb-src http://proxy.local:9999/debian bullseye main

deb http://proxy.local:9999/security bullseye-security main
deb http://example.org/other bullseye main
`

type recordingTracer struct {
	depths []int
}

func (r *recordingTracer) Trace(depth int, format string, args ...any) {
	r.depths = append(r.depths, depth)
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func testMapping(t *testing.T) *pattern.Mapping {
	m, err := pattern.NewMapping(pattern.NewCompiler(), []discovery.Entry{
		{Upstream: "http://deb.debian.org/debian", Target: "http://proxy.local:9999/debian"},
		{Upstream: "http://security.debian.org/debian-security", Target: "http://proxy.local:9999/security"},
	})
	require.NoError(t, err)
	return m
}

func writeSource(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIsRepositoryLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"deb http://x sid main", true},
		{"  deb-src http://x sid main", true},
		{"\tdeb\thttp://x sid", true},
		{"# deb http://x sid main", false},
		{"", false},
		{"debx http://x", false},
		{"deb", false},
		{"Types: deb", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sources.IsRepositoryLine(tt.line), "line %q", tt.line)
	}
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "sources.list", "")
	writeSource(t, root, "sources.list.d/b.list", "")
	writeSource(t, root, "sources.list.d/a.list", "")
	writeSource(t, root, "sources.list.d/nested/c.list", "")
	writeSource(t, root, "sources.list.d/d.sources", "")
	writeSource(t, root, "sources.list.d/a.list.save", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sources.list.d", "dir.list"), 0755))

	files, err := sources.ListFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "sources.list"),
		filepath.Join(root, "sources.list.d", "a.list"),
		filepath.Join(root, "sources.list.d", "b.list"),
		filepath.Join(root, "sources.list.d", "nested", "c.list"),
	}, files)
}

func TestListFilesMissing(t *testing.T) {
	files, err := sources.ListFiles(filepath.Join(t.TempDir(), "nothing"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestProcessCheckMode(t *testing.T) {
	ctx := testContext(t)
	path := writeSource(t, t.TempDir(), "sources.list", original)

	tracer := &recordingTracer{}
	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Tracer: tracer})
	require.NoError(t, err)

	res, err := tr.Process(ctx, path)
	require.NoError(t, err)
	assert.False(t, res.Written)
	require.Len(t, res.Changes, 3)
	assert.Equal(t, 2, res.Changes[0].Number)
	assert.Equal(t, "http://deb.debian.org/debian", res.Changes[0].Upstream)
	assert.Equal(t, "deb-src http://proxy.local:9999/debian bullseye main", res.Changes[1].New)
	assert.Equal(t, "https://ftp.debian.org/debian/", res.Changes[1].Upstream)
	assert.Contains(t, res.Changes[0].Diff(), "9999")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(content), "check mode never writes")
	assert.NoFileExists(t, path+".save")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files")

	require.NotEmpty(t, tracer.depths)
	assert.Equal(t, 0, tracer.depths[0], "file header is at depth zero")
	assert.Equal(t, 1, tracer.depths[1], "lines are nested")
}

func TestProcessKeepsLineEndings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "crlf",
			content: "deb http://deb.debian.org/debian sid main\r\n# c\r\n",
			want:    "deb http://proxy.local:9999/debian sid main\r\n# c\r\n",
		},
		{
			name:    "mixed",
			content: "# c\r\ndeb http://deb.debian.org/debian sid main\n",
			want:    "# c\r\ndeb http://proxy.local:9999/debian sid main\n",
		},
		{
			name:    "no_final_newline",
			content: "# c\ndeb http://deb.debian.org/debian sid main",
			want:    "# c\ndeb http://proxy.local:9999/debian sid main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			dir, err := filepath.EvalSymlinks(t.TempDir())
			require.NoError(t, err)
			path := writeSource(t, dir, "sources.list", tt.content)

			tr, err := sources.New(sources.Options{Mapping: testMapping(t), Write: true})
			require.NoError(t, err)

			res, err := tr.Process(ctx, path)
			require.NoError(t, err)
			require.Len(t, res.Changes, 1)
			assert.Equal(t, "deb http://proxy.local:9999/debian sid main", res.Changes[0].New, "terminator is not part of the line")

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(content))

			backup, err := os.ReadFile(path + ".save")
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(backup))
		})
	}
}

func TestProcessWriteMode(t *testing.T) {
	ctx := testContext(t)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := writeSource(t, dir, "sources.list", original)

	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Write: true})
	require.NoError(t, err)

	res, err := tr.Process(ctx, path)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, path+".save", res.Backup)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rewritten, string(content))

	backup, err := os.ReadFile(path + ".save")
	require.NoError(t, err)
	assert.Equal(t, original, string(backup), "backup keeps the pre-change content")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the file and its backup remain")
}

func TestProcessIdempotent(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	path := writeSource(t, dir, "sources.list", original)

	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Write: true})
	require.NoError(t, err)

	_, err = tr.Process(ctx, path)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path+".save"))

	res, err := tr.Process(ctx, path)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.False(t, res.Written)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoFileExists(t, path+".save", "no backup without a change")
}

func TestProcessUnchangedFileUntouched(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	content := "# deb http://deb.debian.org/debian sid main\ndeb http://example.org/x sid main"
	path := writeSource(t, dir, "other.list", content)
	before, err := os.Stat(path)
	require.NoError(t, err)

	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Write: true})
	require.NoError(t, err)

	res, err := tr.Process(ctx, path)
	require.NoError(t, err)
	assert.False(t, res.Changed())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(after), "bytes untouched, even the missing final newline")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), info.ModTime())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProcessMirrorMode(t *testing.T) {
	ctx := testContext(t)
	root := t.TempDir()
	first := writeSource(t, root, "sources.list", "deb http://deb.debian.org/debian bullseye main\n")
	second := writeSource(t, root, "sources.list.d/extra.list", "deb-src https://ftp2.debian.org/debian bullseye main\n")

	mirrors, err := mirrorlist.New(root)
	require.NoError(t, err)
	mapping := testMapping(t)

	tr, err := sources.New(sources.Options{Mapping: mapping, Mirrors: mirrors, Mirror: true, Write: true})
	require.NoError(t, err)

	_, err = tr.Process(ctx, first)
	require.NoError(t, err)
	_, err = tr.Process(ctx, second)
	require.NoError(t, err)

	lists, err := os.ReadDir(mirrors.Dir())
	require.NoError(t, err)
	require.Len(t, lists, 1, "one list per pattern, shared across files")

	ref := mirrors.Reference(mapping.Rules()[0].Pattern)
	content, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "deb "+ref+" bullseye main\n", string(content))
	content, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "deb-src "+ref+" bullseye main\n", string(content))

	entries, err := mirrorlist.Read(mirrors.Path(mapping.Rules()[0].Pattern))
	require.NoError(t, err)
	assert.Equal(t, []mirrorlist.Entry{
		{URL: "http://proxy.local:9999/debian", Priority: 1},
		{URL: "http://deb.debian.org/debian", Priority: 9},
	}, entries, "upstream comes from the first match")
}

func TestProcessMirrorCheckModeCreatesNothing(t *testing.T) {
	ctx := testContext(t)
	root := t.TempDir()
	path := writeSource(t, root, "sources.list", "deb http://deb.debian.org/debian bullseye main\n")

	mirrors, err := mirrorlist.New(root)
	require.NoError(t, err)

	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Mirrors: mirrors, Mirror: true})
	require.NoError(t, err)

	res, err := tr.Process(ctx, path)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Contains(t, res.Changes[0].New, "mirror+file:")
	assert.NoDirExists(t, mirrors.Dir())
}

func TestProcessMirrorDirectoryFailure(t *testing.T) {
	ctx := testContext(t)
	root := t.TempDir()
	path := writeSource(t, root, "sources.list", original)
	writeSource(t, root, mirrorlist.DirName, "not a directory")

	mirrors, err := mirrorlist.New(root)
	require.NoError(t, err)

	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Mirrors: mirrors, Mirror: true, Write: true})
	require.NoError(t, err)

	_, err = tr.Process(ctx, path)
	require.Error(t, err)
	var ferr *sources.FileError
	require.ErrorAs(t, err, &ferr)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(content), "original is left alone")
	assert.NoFileExists(t, path+".save")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary file is removed")
}

func TestProcessSymlink(t *testing.T) {
	ctx := testContext(t)
	root := t.TempDir()
	target := writeSource(t, root, "real/debian.list", "deb http://deb.debian.org/debian sid main\n")
	link := filepath.Join(root, "sources.list.d", "debian.list")
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.Symlink(target, link))

	tr, err := sources.New(sources.Options{Mapping: testMapping(t), Write: true})
	require.NoError(t, err)

	res, err := tr.Process(ctx, link)
	require.NoError(t, err)
	assert.True(t, res.Written)

	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, resolved+".save", res.Backup)

	content, err := os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "deb http://proxy.local:9999/debian sid main\n", string(content), "link still resolves")
}

func TestNewValidation(t *testing.T) {
	_, err := sources.New(sources.Options{})
	require.Error(t, err)

	_, err = sources.New(sources.Options{Mapping: testMapping(t), Mirror: true})
	require.Error(t, err)
}
