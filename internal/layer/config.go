// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"golang.org/x/text/encoding"

	"github.com/staranto/layerctl/internal/fault"
)

const (
	DefaultRegion = "sa-east-1"
	DefaultPython = "python3"

	ArchX86_64 = "x86_64"
	ArchARM64  = "arm64"

	// BuildDirName is the workspace root beneath the working directory.
	BuildDirName = "build"
	// PythonDirName is the directory Lambda adds to sys.path, under /opt.
	PythonDirName = "python"
)

var (
	layerNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,140}$`)
	runtimeRe   = regexp.MustCompile(`^3\.[0-9]{1,2}$`)

	platformTags = map[string]string{
		ArchX86_64: "manylinux2014_x86_64",
		ArchARM64:  "manylinux2014_aarch64",
	}
)

// BuildConfiguration is the immutable input of a pipeline run. Construct it
// with NewBuildConfiguration; the zero value is invalid.
type BuildConfiguration struct {
	layerName   string
	runtime     string
	manifest    string
	region      string
	workDir     string
	arch        string
	description string
	license     string
	python      string
	encoding    string
	cacheDir    string
	cacheFn     func() string
	s3Bucket    string
	s3Prefix    string
	keepArchive bool

	decoder encoding.Encoding
}

// ConfigOption customizes a BuildConfiguration.
type ConfigOption func(*BuildConfiguration)

func WithRegion(region string) ConfigOption {
	return func(c *BuildConfiguration) { c.region = region }
}

func WithWorkDir(dir string) ConfigOption {
	return func(c *BuildConfiguration) { c.workDir = dir }
}

func WithArchitecture(arch string) ConfigOption {
	return func(c *BuildConfiguration) { c.arch = arch }
}

func WithDescription(desc string) ConfigOption {
	return func(c *BuildConfiguration) { c.description = desc }
}

func WithLicense(license string) ConfigOption {
	return func(c *BuildConfiguration) { c.license = license }
}

// WithPython sets the interpreter used to run "-m pip".
func WithPython(python string) ConfigOption {
	return func(c *BuildConfiguration) { c.python = python }
}

// WithOutputEncoding names the IANA encoding the host shell emits. Empty means
// UTF-8.
func WithOutputEncoding(name string) ConfigOption {
	return func(c *BuildConfiguration) { c.encoding = name }
}

// WithCacheDir passes --cache-dir to pip.
func WithCacheDir(dir string) ConfigOption {
	return func(c *BuildConfiguration) { c.cacheDir = dir }
}

// WithCacheResolver defers choosing the pip cache directory until the install
// stage, so preparing the cache never happens ahead of the credential gate. A
// directory set with WithCacheDir wins.
func WithCacheResolver(resolve func() string) ConfigOption {
	return func(c *BuildConfiguration) { c.cacheFn = resolve }
}

// WithS3Staging uploads the archive to bucket/prefix and publishes it by
// reference instead of inline.
func WithS3Staging(bucket, prefix string) ConfigOption {
	return func(c *BuildConfiguration) {
		c.s3Bucket = bucket
		c.s3Prefix = prefix
	}
}

// WithKeepArchive controls whether the local zip survives a successful run.
func WithKeepArchive(keep bool) ConfigOption {
	return func(c *BuildConfiguration) { c.keepArchive = keep }
}

// NewBuildConfiguration validates the caller-supplied values once. Every
// failure is a Configuration fault.
func NewBuildConfiguration(layerName, runtime, manifest string, opts ...ConfigOption) (BuildConfiguration, error) {
	c := BuildConfiguration{
		layerName:   layerName,
		runtime:     runtime,
		manifest:    manifest,
		region:      DefaultRegion,
		arch:        ArchX86_64,
		python:      DefaultPython,
		keepArchive: true,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if !layerNameRe.MatchString(c.layerName) {
		return BuildConfiguration{}, configErr("invalid layer name %q: use 1-140 letters, digits, '-' or '_'", c.layerName)
	}
	if !runtimeRe.MatchString(c.runtime) {
		return BuildConfiguration{}, configErr("invalid runtime %q: expected a Python minor version such as 3.13", c.runtime)
	}
	if c.region == "" {
		c.region = DefaultRegion
	}
	if _, ok := platformTags[c.arch]; !ok {
		return BuildConfiguration{}, configErr("invalid architecture %q: expected %s or %s", c.arch, ArchX86_64, ArchARM64)
	}
	if c.python == "" {
		c.python = DefaultPython
	}

	if c.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return BuildConfiguration{}, configErr("failed to resolve working directory: %w", err)
		}
		c.workDir = wd
	}
	wd, err := filepath.Abs(c.workDir)
	if err != nil {
		return BuildConfiguration{}, configErr("failed to resolve working directory %s: %w", c.workDir, err)
	}
	if fi, err := os.Stat(wd); err != nil || !fi.IsDir() {
		return BuildConfiguration{}, configErr("working directory %s does not exist or is not a directory", wd)
	}
	c.workDir = wd

	if c.manifest == "" {
		return BuildConfiguration{}, configErr("a requirements manifest is required")
	}
	manifestPath := c.manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(c.workDir, manifestPath)
	}
	fi, err := os.Stat(manifestPath)
	if err != nil {
		return BuildConfiguration{}, configErr("requirements manifest %s: %w", c.manifest, err)
	}
	if !fi.Mode().IsRegular() {
		return BuildConfiguration{}, configErr("requirements manifest %s is not a regular file", c.manifest)
	}
	if c.description == "" {
		c.description = "Dependencies from " + filepath.Base(c.manifest)
	}
	c.manifest = manifestPath

	if c.encoding != "" {
		enc, err := LookupEncoding(c.encoding)
		if err != nil {
			return BuildConfiguration{}, configErr("%w", err)
		}
		c.decoder = enc
	}

	if c.s3Prefix != "" && c.s3Bucket == "" {
		return BuildConfiguration{}, configErr("an S3 prefix requires an S3 bucket")
	}

	return c, nil
}

func configErr(format string, a ...any) error {
	return fault.Newf(fault.Configuration, "configure", format, a...)
}

func (c BuildConfiguration) LayerName() string { return c.layerName }
func (c BuildConfiguration) Runtime() string { return c.runtime }
func (c BuildConfiguration) Manifest() string { return c.manifest }
func (c BuildConfiguration) Region() string { return c.region }
func (c BuildConfiguration) WorkDir() string { return c.workDir }
func (c BuildConfiguration) Architecture() string { return c.arch }
func (c BuildConfiguration) Description() string { return c.description }
func (c BuildConfiguration) License() string { return c.license }
func (c BuildConfiguration) Python() string { return c.python }
func (c BuildConfiguration) CacheDir() string { return c.cacheDir }
func (c BuildConfiguration) S3Bucket() string { return c.s3Bucket }
func (c BuildConfiguration) KeepArchive() bool { return c.keepArchive }

// CompatibleRuntime is the Lambda runtime identifier, e.g. python3.13.
func (c BuildConfiguration) CompatibleRuntime() string {
	return "python" + c.runtime
}

// PlatformTag is the manylinux wheel tag pip must target.
func (c BuildConfiguration) PlatformTag() string {
	return platformTags[c.arch]
}

// BuildDir is the workspace root whose contents become the archive root.
func (c BuildConfiguration) BuildDir() string {
	return filepath.Join(c.workDir, BuildDirName)
}

// InstallDir is where pip installs packages.
func (c BuildConfiguration) InstallDir() string {
	return filepath.Join(c.BuildDir(), PythonDirName)
}

// ArchivePath is the final location of the zip.
func (c BuildConfiguration) ArchivePath() string {
	return filepath.Join(c.workDir, c.layerName+".zip")
}

// S3Key is the object key used when staging through S3.
func (c BuildConfiguration) S3Key() string {
	return path.Join(c.s3Prefix, c.layerName+".zip")
}

func (c BuildConfiguration) String() string {
	return fmt.Sprintf("%s (%s, %s, %s)", c.layerName, c.CompatibleRuntime(), c.arch, c.region)
}
