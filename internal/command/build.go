// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/layerctl/internal/cacheutil"
	"github.com/staranto/layerctl/internal/config"
	"github.com/staranto/layerctl/internal/layer"
	"github.com/staranto/layerctl/internal/meta"
	"github.com/staranto/layerctl/internal/output"
	"github.com/staranto/layerctl/internal/session"
)

var errS3PrefixWithoutBucket = errors.New("--s3-prefix requires --s3-bucket")

// BuildCommandAction is the action handler for the "build" subcommand. It
// validates credentials, then installs, archives and publishes the layer and
// emits the result per common flags.
func BuildCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "build") {
		return nil
	}

	workDir := cmd.String("workdir")
	if workDir == "" {
		workDir = m.StartingDir
	}

	opts := []layer.ConfigOption{
		layer.WithRegion(cmd.String("region")),
		layer.WithWorkDir(workDir),
		layer.WithArchitecture(cmd.String("arch")),
		layer.WithDescription(cmd.String("description")),
		layer.WithLicense(cmd.String("license")),
		layer.WithPython(cmd.String("python")),
		layer.WithOutputEncoding(cmd.String("encoding")),
		layer.WithS3Staging(cmd.String("s3-bucket"), cmd.String("s3-prefix")),
		layer.WithKeepArchive(cmd.Bool("keep-zip")),
	}

	if cmd.Bool("cache") {
		opts = append(opts, layer.WithCacheResolver(pipCache))
	}

	cfg, err := layer.NewBuildConfiguration(
		cmd.String("layer"),
		cmd.String("runtime"),
		cmd.String("requirements"),
		opts...,
	)
	if err != nil {
		return err
	}

	s := session.New(
		session.WithRegion(cfg.Region()),
		session.WithEnvFile(cmd.String("env-file")),
	)

	res, err := layer.Execute(ctx, gateFor(s), cfg, builderOptions()...)
	if err != nil {
		return err
	}

	w := writer(cmd)
	return output.Result(w, emitOptions(cmd, w), res)
}

// pipCache purges stale entries and returns the pip cache directory. It runs
// from the install stage, after the credential gate has passed.
func pipCache() string {
	hours, _ := config.GetInt("cache.hours", 0)
	if err := cacheutil.Purge(hours); err != nil {
		log.WithError(err).Warn("cache purge failed")
	}
	return cacheutil.PipDir()
}

// BuildCommandBuilder constructs the cli.Command for "build", wiring metadata,
// flags, and action/validator handlers.
func BuildCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	src := meta.Config.Source

	return &cli.Command{
		Name:      "build",
		Usage:     "build and publish a Python dependency layer",
		UsageText: `layerctl build --layer NAME --runtime 3.13 [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:    "layer",
				Aliases: []string{"l"},
				Usage:   "layer name",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_LAYER"),
				),
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator, NotEmptyValidator)
				},
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:    "runtime",
				Aliases: []string{"r"},
				Usage:   "target Python version, e.g. 3.13",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_RUNTIME"),
				),
				Validator: func(value string) error {
					return FlagValidators(value, RuntimeValidator)
				},
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:    "requirements",
				Aliases: []string{"req"},
				Usage:   "pip requirements file, relative to the working directory",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_REQUIREMENTS"),
				),
				Value: "requirements.txt",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:    "arch",
				Aliases: []string{"a"},
				Usage:   "target architecture, x86_64 or arm64",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_ARCH"),
				),
				Value: layer.ArchX86_64,
				Validator: func(value string) error {
					return FlagValidators(value, ArchValidator)
				},
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:    "workdir",
				Aliases: []string{"w"},
				Usage:   "working directory holding build/ and the archive. Defaults to the current directory",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_WORKDIR"),
				),
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:  "python",
				Usage: "Python interpreter used to run pip",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_PYTHON"),
				),
				Value: layer.DefaultPython,
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:  "description",
				Usage: "layer description. Defaults to 'Dependencies from <requirements>'",
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:  "license",
				Usage: "layer license info",
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:  "s3-bucket",
				Usage: "stage the archive in this bucket before publishing",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_S3_BUCKET"),
				),
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:  "s3-prefix",
				Usage: "key prefix for the staged archive",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_S3_PREFIX"),
				),
			}),
			NameSpacedValueChainFlagFromConfigFile("build", src, &cli.StringFlag{
				Name:  "encoding",
				Usage: "IANA name of the encoding pip output is written in. Defaults to UTF-8",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("LAYERCTL_ENCODING"),
				),
			}),
			&cli.BoolWithInverseFlag{
				Name:  "keep-zip",
				Usage: "keep the archive after a successful publish",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("build.keep-zip", altsrc.StringSourcer(src)),
					yaml.YAML("keep-zip", altsrc.StringSourcer(src)),
				),
				Value: true,
			},
			&cli.BoolWithInverseFlag{
				Name:  "cache",
				Usage: "use the layerctl pip cache",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("build.cache", altsrc.StringSourcer(src)),
					yaml.YAML("cache.enabled", altsrc.StringSourcer(src)),
				),
				Value: true,
			},
			NewRegionFlag("build", src),
			NewEnvFileFlag("build", src),
			tldrFlag,
		}, NewGlobalFlags("build", src)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := BuildCommandValidator(ctx, c); err != nil {
				return err
			}
			return BuildCommandAction(ctx, c)
		},
	}
}

// BuildCommandValidator performs validation for "build" that spans flags.
func BuildCommandValidator(ctx context.Context, cmd *cli.Command) error {
	if cmd.String("s3-prefix") != "" && cmd.String("s3-bucket") == "" {
		return errS3PrefixWithoutBucket
	}
	return nil
}
