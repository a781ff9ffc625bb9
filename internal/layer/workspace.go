// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/apex/log"

	"github.com/staranto/layerctl/internal/fault"
)

// removeAll is swapped out in tests to simulate a tree that cannot be removed.
var removeAll = os.RemoveAll

// Workspace is the build/python tree owned by a single pipeline run.
type Workspace struct {
	Root       string
	InstallDir string
}

// acquireWorkspace creates a fresh build tree. A stale tree left by an earlier
// run is removed rather than merged; anything at the root that is not a
// directory is left alone and reported.
func acquireWorkspace(cfg BuildConfiguration) (*Workspace, error) {
	ws := &Workspace{Root: cfg.BuildDir(), InstallDir: cfg.InstallDir()}

	fi, err := os.Lstat(ws.Root)
	switch {
	case err == nil && !fi.IsDir():
		return nil, fault.Newf(fault.Filesystem, "prepare", "%s exists and is not a directory", ws.Root)
	case err == nil:
		log.WithField("path", ws.Root).Warn("removing stale build directory")
		if err := os.RemoveAll(ws.Root); err != nil {
			return nil, fault.Newf(fault.Filesystem, "prepare", "failed to remove stale build directory: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fault.Newf(fault.Filesystem, "prepare", "failed to inspect %s: %w", ws.Root, err)
	}

	if err := os.MkdirAll(ws.InstallDir, 0o755); err != nil { //nolint:mnd
		_ = os.RemoveAll(ws.Root)
		return nil, fault.Newf(fault.Filesystem, "prepare", "failed to create %s: %w", ws.InstallDir, err)
	}

	return ws, nil
}

// Release removes the build tree. It is safe to call more than once.
func (ws *Workspace) Release() error {
	if ws == nil {
		return nil
	}
	if err := removeAll(ws.Root); err != nil {
		return fmt.Errorf("failed to remove %s: %w", ws.Root, err)
	}
	return nil
}

// removeStaleArchive deletes a zip left behind by an earlier run so a failed
// run can never be mistaken for a fresh artifact.
func removeStaleArchive(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fault.Newf(fault.Filesystem, "prepare", "failed to inspect %s: %w", path, err)
	}
	if fi.IsDir() {
		return fault.Newf(fault.Filesystem, "prepare", "%s exists and is a directory", path)
	}
	log.WithField("path", path).Warn("removing stale archive")
	if err := os.Remove(path); err != nil {
		return fault.Newf(fault.Filesystem, "prepare", "failed to remove stale archive: %w", err)
	}
	return nil
}
