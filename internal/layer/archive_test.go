// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/layerctl/internal/fault"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// readZip returns file entries mapped to their contents, plus directory
// entries.
func readZip(t *testing.T, path string) (files map[string]string, dirs []string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	files = map[string]string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			dirs = append(dirs, f.Name)
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(b)
	}
	sort.Strings(dirs)
	return files, dirs
}

func TestWriteArchive_EntriesRootedAtPython(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "build")
	writeTree(t, root, map[string]string{
		"python/requests/__init__.py":                 "__version__ = '2.32.3'\n",
		"python/requests/api.py":                      "def get(): pass\n",
		"python/requests-2.32.3.dist-info/METADATA":   "Name: requests\n",
		"python/charset_normalizer/md.cpython-313.so": "\x7fELF",
	})

	dest := filepath.Join(dir, "deps.zip")
	info, err := writeArchive(root, dest)
	require.NoError(t, err)

	assert.Equal(t, dest, info.Path)
	assert.Positive(t, info.Size)
	assert.Equal(t, int64(len("__version__ = '2.32.3'\n")+len("def get(): pass\n")+len("Name: requests\n")+len("\x7fELF")), info.UncompressedSize)

	files, dirs := readZip(t, dest)
	assert.Equal(t, "def get(): pass\n", files["python/requests/api.py"])
	assert.Equal(t, "Name: requests\n", files["python/requests-2.32.3.dist-info/METADATA"])
	assert.Contains(t, dirs, "python/")
	assert.Contains(t, dirs, "python/requests/")
	assert.Equal(t, len(files)+len(dirs), info.Entries)

	for name := range files {
		assert.Regexp(t, `^python/`, name)
	}
	for _, name := range dirs {
		assert.Regexp(t, `^python/`, name)
	}
}

func TestWriteArchive_ContentIsReproducible(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "build")
	writeTree(t, root, map[string]string{
		"python/a/__init__.py": "a",
		"python/b/__init__.py": "b",
	})

	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.zip")
	_, err := writeArchive(root, first)
	require.NoError(t, err)
	_, err = writeArchive(root, second)
	require.NoError(t, err)

	f1, d1 := readZip(t, first)
	f2, d2 := readZip(t, second)
	assert.Equal(t, f1, f2)
	assert.Equal(t, d1, d2)
}

func TestWriteArchive_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "deps.zip")

	_, err := writeArchive(filepath.Join(dir, "missing"), dest)
	require.Error(t, err)
	assert.Equal(t, fault.Packaging, fault.KindOf(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no archive or temporary file may remain")
}

func TestWriteArchive_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "build")
	writeTree(t, root, map[string]string{"python/x.py": "x"})

	_, err := writeArchive(root, filepath.Join(dir, "no-such-dir", "deps.zip"))
	require.Error(t, err)
	assert.Equal(t, fault.Packaging, fault.KindOf(err))
}
