// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/staranto/layerctl/internal/fault"
)

// ArchiveInfo describes a written archive.
type ArchiveInfo struct {
	Path             string
	Entries          int
	Size             int64
	UncompressedSize int64
}

// writeArchive zips the contents of root into dest. Entry names are relative
// to root, so root itself never appears in the archive. The zip is written
// under a temporary name in dest's directory and renamed into place; on any
// failure nothing is left at dest or at the temporary name.
func writeArchive(root, dest string) (ArchiveInfo, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to create temporary archive: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	entries, uncompressed, walkErr := addTree(zw, root)
	if walkErr != nil {
		_ = zw.Close()
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to archive %s: %w", root, walkErr)
	}
	if err := zw.Close(); err != nil {
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to finalize archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to flush archive: %w", err)
	}
	fi, err := tmp.Stat()
	if err != nil {
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to stat archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to close archive: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return ArchiveInfo{}, fault.Newf(fault.Packaging, "package", "failed to move archive into place: %w", err)
	}
	committed = true

	return ArchiveInfo{
		Path:             dest,
		Entries:          entries,
		Size:             fi.Size(),
		UncompressedSize: uncompressed,
	}, nil
}

// addTree walks root in lexical order and writes one entry per directory
// and regular file. Symlinks are stored as the file they point to.
func addTree(zw *zip.Writer, root string) (entries int, uncompressed int64, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		fi, statErr := os.Stat(path)
		if statErr != nil {
			return fmt.Errorf("failed to stat %s: %w", path, statErr)
		}

		header, headerErr := zip.FileInfoHeader(fi)
		if headerErr != nil {
			return fmt.Errorf("failed to create header for %s: %w", path, headerErr)
		}

		if fi.IsDir() {
			if d.Type()&fs.ModeSymlink != 0 {
				// Linked directories are not descended into.
				return nil
			}
			header.Name = name + "/"
			header.Method = zip.Store
			if _, err := zw.CreateHeader(header); err != nil {
				return fmt.Errorf("failed to create directory entry %s: %w", name, err)
			}
			entries++
			return nil
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		header.Name = name
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create entry %s: %w", name, err)
		}

		n, err := copyFile(w, path)
		if err != nil {
			return err
		}
		uncompressed += n
		entries++
		return nil
	})
	return entries, uncompressed, err
}

func copyFile(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.Copy(w, f)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}
