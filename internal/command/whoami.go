// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/layerctl/internal/meta"
	"github.com/staranto/layerctl/internal/output"
	"github.com/staranto/layerctl/internal/session"
)

// WhoamiCommandAction validates the configured credentials and prints the
// caller identity.
func WhoamiCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "whoami") {
		return nil
	}

	s := session.New(
		session.WithRegion(cmd.String("region")),
		session.WithEnvFile(cmd.String("env-file")),
	)

	h, err := gateFor(s)(ctx)
	if err != nil {
		return err
	}

	w := writer(cmd)
	return output.Identity(w, emitOptions(cmd, w), h.Region(), h.Identity())
}

// WhoamiCommandBuilder constructs the cli.Command for "whoami".
func WhoamiCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "whoami",
		Usage:     "validate credentials and show the caller identity",
		UsageText: `layerctl whoami [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NewRegionFlag("whoami", meta.Config.Source),
			NewEnvFileFlag("whoami", meta.Config.Source),
			tldrFlag,
		}, NewGlobalFlags("whoami", meta.Config.Source)...),
		Action: WhoamiCommandAction,
	}
}
