// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
)

// PipSubdir is the directory beneath the cache base handed to pip as its
// wheel and HTTP cache.
const PipSubdir = "pip"

// Dir resolves the base cache directory.
// Precedence:
//  1. LAYERCTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/layerctl
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("LAYERCTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "layerctl"), true
	}
	return "", false
}

// Enabled returns true unless LAYERCTL_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("LAYERCTL_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureDir creates the cache directory for subdirs if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureDir(subdirs ...string) (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	dir := filepath.Join(append([]string{base}, subdirs...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return dir, false, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, true, nil
}

// PipDir returns the pip cache directory, creating it when needed. An empty
// string means pip should fall back to its own default.
func PipDir() string {
	dir, ok, err := EnsureDir(PipSubdir)
	if err != nil {
		log.WithError(err).Warn("pip cache disabled")
		return ""
	}
	if !ok {
		log.Debug("pip cache disabled")
		return ""
	}
	return dir
}

// Purge removes files older than the provided number of hours.
// If hours <= 0 or the cache dir cannot be resolved, it is a no-op.
func Purge(hours int) error {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return nil
	}
	base, ok := Dir()
	if !ok {
		return nil
	}
	if _, err := os.Stat(base); err != nil {
		return nil
	}

	maxAge := time.Duration(hours) * time.Hour
	removed := 0
	if err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || time.Since(info.ModTime()) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.WithError(err).Warnf("failed to remove cache file %s", path)
			return nil
		}
		removed++
		return nil
	}); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	log.WithField("removed", removed).Debug("cache purged")
	return nil
}
