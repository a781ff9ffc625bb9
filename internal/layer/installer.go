// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/apex/log"
	"golang.org/x/text/encoding"

	"github.com/staranto/layerctl/internal/fault"
)

// InstallRequest describes one cross-platform install into the workspace.
type InstallRequest struct {
	Manifest      string
	Target        string
	Platform      string
	PythonVersion string
	CacheDir      string
}

// InstallResult is what a successful install produced. Stdout and Stderr are
// already decoded.
type InstallResult struct {
	Stdout   string
	Stderr   string
	Packages []Package
}

// Installer installs a manifest into a target directory.
type Installer interface {
	Install(ctx context.Context, req InstallRequest) (*InstallResult, error)
}

// PipInstaller runs "<Python> -m pip install" for a foreign platform. Output
// is captured as bytes and decoded with Encoding (UTF-8 when nil), replacing
// anything undecodable.
type PipInstaller struct {
	Python   string
	Encoding encoding.Encoding
}

var _ Installer = (*PipInstaller)(nil)

// Args returns the pip arguments for req, excluding the interpreter.
func (p *PipInstaller) Args(req InstallRequest, reportPath string) []string {
	args := []string{
		"-m", "pip", "install",
		"--platform", req.Platform,
		"--implementation", "cp",
		"--python-version", req.PythonVersion,
		"--only-binary=:all:",
		"--requirement", req.Manifest,
		"--target", req.Target,
		"--disable-pip-version-check",
		"--no-input",
	}
	if req.CacheDir != "" {
		args = append(args, "--cache-dir", req.CacheDir)
	}
	if reportPath != "" {
		args = append(args, "--report", reportPath)
	}
	return args
}

func (p *PipInstaller) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	python := p.Python
	if python == "" {
		python = DefaultPython
	}

	// The report lives outside the workspace so it never lands in the zip.
	var reportPath string
	if f, err := os.CreateTemp("", "layerctl-pip-report-*.json"); err == nil {
		reportPath = f.Name()
		_ = f.Close()
		defer os.Remove(reportPath)
	} else {
		log.WithError(err).Warn("pip report disabled")
	}

	args := p.Args(req, reportPath)
	log.Debugf("running: %s %s", python, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, python, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outText := DecodeOutput(stdout.Bytes(), p.Encoding)
	errText := DecodeOutput(stderr.Bytes(), p.Encoding)

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &fault.Error{
			Kind:     fault.DependencyInstall,
			Stage:    "install",
			Err:      fmt.Errorf("%s -m pip install failed: %w", python, err),
			ExitCode: exitCode,
			Output:   combineOutput(errText, outText),
		}
	}

	res := &InstallResult{Stdout: outText, Stderr: errText}
	if reportPath != "" {
		if data, err := os.ReadFile(reportPath); err == nil {
			res.Packages = parsePipReport(data)
		} else {
			log.WithError(err).Debug("pip report unreadable")
		}
	}
	return res, nil
}

// combineOutput puts stderr first since that is where pip reports failures.
func combineOutput(stderr, stdout string) string {
	stderr = strings.TrimSpace(stderr)
	stdout = strings.TrimSpace(stdout)
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stderr + "\n" + stdout
	}
}
