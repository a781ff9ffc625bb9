// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"

	"github.com/staranto/layerctl/internal/command"
	"github.com/staranto/layerctl/internal/fault"
	mylog "github.com/staranto/layerctl/internal/log"
	"github.com/staranto/layerctl/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

// realMain returns 0 on success, 1 when the application could not be set up
// and 2 when a command failed.
func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	}

	// Short-circuit --version/-v.
	for _, a := range args[1:] {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		if kind := fault.KindOf(err); kind != fault.Unknown {
			log.WithField("kind", kind).Debug("command failed")
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}
