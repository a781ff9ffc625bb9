// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	Unknown Kind = iota
	Configuration
	Authentication
	Network
	Filesystem
	DependencyInstall
	Packaging
	Publish
)

var kindNames = map[Kind]string{
	Unknown:           "UnknownError",
	Configuration:     "ConfigurationError",
	Authentication:    "AuthenticationError",
	Network:           "NetworkError",
	Filesystem:        "FilesystemError",
	DependencyInstall: "DependencyInstallError",
	Packaging:         "PackagingError",
	Publish:           "PublishError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the concrete error returned by session and pipeline operations.
// ExitCode and Output are only populated for DependencyInstall failures.
type Error struct {
	Kind     Kind
	Stage    string
	Err      error
	ExitCode int
	Output   string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Stage != "" {
		b.WriteString(" [" + e.Stage + "]")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	if e.Kind == DependencyInstall {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
		if out := strings.TrimSpace(e.Output); out != "" {
			b.WriteString("\n" + out)
		}
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind wrapping err.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Newf builds an Error of the given kind from a formatted message. %w verbs
// are honored.
func Newf(kind Kind, stage string, format string, a ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, a...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries a fault of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
