// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "ConfigurationError", Configuration.String())
	assert.Equal(t, "PublishError", Publish.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: Network},
			want: "NetworkError",
		},
		{
			name: "stage and cause",
			err:  New(Filesystem, "prepare", errors.New("permission denied")),
			want: "FilesystemError [prepare]: permission denied",
		},
		{
			name: "install carries exit code and output",
			err: &Error{
				Kind:     DependencyInstall,
				Stage:    "install",
				Err:      errors.New("pip failed"),
				ExitCode: 1,
				Output:   "ERROR: No matching distribution\n",
			},
			want: "DependencyInstallError [install]: pip failed (exit code 1)\nERROR: No matching distribution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Newf(Packaging, "package", "write zip: %w", cause))

	assert.Equal(t, Packaging, KindOf(err))
	assert.True(t, Is(err, Packaging))
	assert.False(t, Is(err, Publish))
	assert.ErrorIs(t, err, cause)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, Unknown))
}
