// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/staranto/layerctl/internal/fault"
	"github.com/staranto/layerctl/internal/session"
)

// Result is the outcome of a successful run.
type Result struct {
	LayerName        string    `json:"layer_name" yaml:"layer_name"`
	LayerArn         string    `json:"layer_arn" yaml:"layer_arn"`
	LayerVersionArn  string    `json:"layer_version_arn" yaml:"layer_version_arn"`
	Version          int64     `json:"version" yaml:"version"`
	Region           string    `json:"region" yaml:"region"`
	Runtime          string    `json:"runtime" yaml:"runtime"`
	Architecture     string    `json:"architecture" yaml:"architecture"`
	ArchivePath      string    `json:"archive_path,omitempty" yaml:"archive_path,omitempty"`
	ArchiveSize      int64     `json:"archive_size" yaml:"archive_size"`
	UncompressedSize int64     `json:"uncompressed_size" yaml:"uncompressed_size"`
	Packages         []Package `json:"packages,omitempty" yaml:"packages,omitempty"`
	CleanupError     string    `json:"cleanup_error,omitempty" yaml:"cleanup_error,omitempty"`
}

// Builder runs the pipeline for one BuildConfiguration. A Builder is single
// use and not safe for concurrent use; two builders must not share a working
// directory.
type Builder struct {
	cfg       BuildConfiguration
	installer Installer
	publisher Publisher

	state   State
	history []State

	ws          *Workspace
	archive     ArchiveInfo
	packages    []Package
	publication *Publication
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithInstaller replaces the pip installer.
func WithInstaller(i Installer) BuilderOption {
	return func(b *Builder) { b.installer = i }
}

// WithPublisher replaces the Lambda publisher.
func WithPublisher(p Publisher) BuilderOption {
	return func(b *Builder) { b.publisher = p }
}

// NewBuilder wires a Builder to a validated session handle. The handle must
// be bound to the configuration's region. A nil handle is only accepted when
// a Publisher is supplied.
func NewBuilder(cfg BuildConfiguration, h *session.Handle, opts ...BuilderOption) (*Builder, error) {
	if cfg.layerName == "" {
		return nil, fault.Newf(fault.Configuration, "configure", "build configuration was not initialized")
	}

	b := &Builder{cfg: cfg, state: Init, history: []State{Init}}
	for _, opt := range opts {
		opt(b)
	}

	if b.installer == nil {
		b.installer = &PipInstaller{Python: cfg.python, Encoding: cfg.decoder}
	}
	if b.publisher == nil {
		if h == nil {
			return nil, fault.Newf(fault.Configuration, "configure", "a validated session is required to publish")
		}
		b.publisher = &AWSPublisher{Lambda: h.Lambda(), S3: h.S3()}
	}
	if h != nil && h.Region() != cfg.region {
		return nil, fault.Newf(fault.Configuration, "configure",
			"session is bound to %s but the layer targets %s", h.Region(), cfg.region)
	}

	return b, nil
}

// State returns the current pipeline state.
func (b *Builder) State() State {
	return b.state
}

// History returns every state the builder has been in, in order.
func (b *Builder) History() []State {
	return append([]State(nil), b.history...)
}

func (b *Builder) transition(to State) {
	log.WithFields(log.Fields{
		"layer": b.cfg.layerName,
		"from":  b.state,
		"to":    to,
	}).Debug("state transition")
	b.state = to
	b.history = append(b.history, to)
}

// Run executes prepare, install, package and publish in order. The first
// failing stage aborts the rest. Cleanup runs on every path; a cleanup failure
// never replaces a stage error and, on success, is reported in the Result.
func (b *Builder) Run(ctx context.Context) (res *Result, err error) {
	if b.state != Init {
		return nil, fault.Newf(fault.Configuration, "run", "builder already ran (state %s)", b.state)
	}

	logger := log.WithFields(log.Fields{"layer": b.cfg.layerName, "runtime": b.cfg.CompatibleRuntime()})
	logger.Infof("building layer %s", b.cfg)

	defer func() {
		if err != nil {
			b.transition(Failed)
		}
		cleanupErr := b.cleanup(err == nil)
		b.transition(CleanedUp)

		if cleanupErr == nil {
			return
		}
		log.WithError(cleanupErr).Warn("cleanup failed")
		if err != nil {
			err = &cleanupNote{primary: err, cleanup: cleanupErr}
			return
		}
		res.CleanupError = cleanupErr.Error()
	}()

	stages := []struct {
		name string
		done State
		fn   func(context.Context) error
	}{
		{"prepare", StructureReady, b.prepare},
		{"install", DependenciesInstalled, b.install},
		{"package", Archived, b.pack},
		{"publish", Published, b.publish},
	}

	for _, st := range stages {
		logger.WithField("stage", st.name).Info("stage started")
		if err := st.fn(ctx); err != nil {
			logger.WithField("stage", st.name).WithError(err).Error("stage failed")
			return nil, err
		}
		b.transition(st.done)
	}

	pub := b.publication
	res = &Result{
		LayerName:        b.cfg.layerName,
		LayerArn:         pub.LayerArn,
		LayerVersionArn:  pub.LayerVersionArn,
		Version:          pub.Version,
		Region:           b.cfg.region,
		Runtime:          b.cfg.CompatibleRuntime(),
		Architecture:     b.cfg.arch,
		ArchiveSize:      b.archive.Size,
		UncompressedSize: b.archive.UncompressedSize,
		Packages:         b.packages,
	}
	if b.cfg.keepArchive {
		res.ArchivePath = b.archive.Path
	}
	logger.WithFields(log.Fields{
		"version": pub.Version,
		"arn":     pub.LayerVersionArn,
	}).Info("layer published")
	return res, nil
}

func (b *Builder) prepare(_ context.Context) error {
	if err := removeStaleArchive(b.cfg.ArchivePath()); err != nil {
		return err
	}
	ws, err := acquireWorkspace(b.cfg)
	if err != nil {
		return err
	}
	b.ws = ws
	log.WithField("path", ws.InstallDir).Info("workspace ready")
	return nil
}

func (b *Builder) install(ctx context.Context) error {
	cacheDir := b.cfg.cacheDir
	if cacheDir == "" && b.cfg.cacheFn != nil {
		cacheDir = b.cfg.cacheFn()
	}

	res, err := b.installer.Install(ctx, InstallRequest{
		Manifest:      b.cfg.manifest,
		Target:        b.ws.InstallDir,
		Platform:      b.cfg.PlatformTag(),
		PythonVersion: b.cfg.runtime,
		CacheDir:      cacheDir,
	})
	if err != nil {
		if fault.KindOf(err) == fault.Unknown {
			err = fault.New(fault.DependencyInstall, "install", err)
		}
		return err
	}

	b.packages = res.Packages
	if len(res.Packages) > 0 {
		names := make([]string, 0, len(res.Packages))
		for _, p := range res.Packages {
			names = append(names, p.String())
		}
		log.WithField("count", len(names)).Infof("installed %s", strings.Join(names, ", "))
	}
	return nil
}

func (b *Builder) pack(_ context.Context) error {
	info, err := writeArchive(b.ws.Root, b.cfg.ArchivePath())
	if err != nil {
		return err
	}
	b.archive = info
	log.WithFields(log.Fields{
		"path":         info.Path,
		"entries":      info.Entries,
		"size":         humanize.IBytes(uint64(info.Size)),
		"uncompressed": humanize.IBytes(uint64(info.UncompressedSize)),
	}).Info("archive written")
	return nil
}

func (b *Builder) publish(ctx context.Context) error {
	staged := b.cfg.s3Bucket != ""
	if err := checkLimits(b.archive, staged); err != nil {
		return err
	}

	req := PublishRequest{
		LayerName:    b.cfg.layerName,
		Description:  b.cfg.description,
		License:      b.cfg.license,
		Runtime:      b.cfg.CompatibleRuntime(),
		Architecture: b.cfg.arch,
		Region:       b.cfg.region,
		ArchivePath:  b.archive.Path,
	}
	if staged {
		req.S3Bucket = b.cfg.s3Bucket
		req.S3Key = b.cfg.S3Key()
	}

	pub, err := b.publisher.Publish(ctx, req)
	if err != nil {
		if fault.KindOf(err) == fault.Unknown {
			err = fault.New(fault.Publish, "publish", err)
		}
		return err
	}
	if pub == nil {
		return fault.Newf(fault.Publish, "publish", "publisher returned no layer version")
	}
	b.publication = pub
	return nil
}

// cleanup removes the workspace, and the archive unless it is being kept
// after a successful run.
func (b *Builder) cleanup(succeeded bool) error {
	var errs []error
	if err := b.ws.Release(); err != nil {
		errs = append(errs, err)
	}

	if b.archive.Path != "" && (!succeeded || !b.cfg.keepArchive) {
		if err := os.Remove(b.archive.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove archive: %w", err))
		}
	}
	return errors.Join(errs...)
}

// cleanupNote keeps the stage error primary while still reporting a cleanup
// failure in the message.
type cleanupNote struct {
	primary error
	cleanup error
}

func (c *cleanupNote) Error() string {
	return fmt.Sprintf("%v (cleanup also failed: %v)", c.primary, c.cleanup)
}

func (c *cleanupNote) Unwrap() error {
	return c.primary
}
