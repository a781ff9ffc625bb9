// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/urfave/cli/v3"

	"github.com/staranto/layerctl/internal/layer"
	"github.com/staranto/layerctl/internal/meta"
	"github.com/staranto/layerctl/internal/output"
	"github.com/staranto/layerctl/internal/session"
)

// Seams replaced by tests so actions can run without AWS or pip.
var (
	gateFor = func(s *session.Session) layer.Gate {
		return layer.SessionGate(s)
	}
	builderOptions = func() []layer.BuilderOption {
		return nil
	}
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr layerctl <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "layerctl", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// writer returns where results go. Logging stays on stderr.
func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// emitOptions collects the global output flags.
func emitOptions(cmd *cli.Command, w io.Writer) output.Options {
	return output.Options{
		Format: cmd.String("output"),
		Color:  output.ColorEnabled(cmd.Bool("color"), w),
		Titles: cmd.Bool("titles"),
	}
}
