// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOutput_UTF8(t *testing.T) {
	assert.Equal(t, "Successfully installed requests-2.32.3", DecodeOutput([]byte("Successfully installed requests-2.32.3"), nil))
	assert.Equal(t, "", DecodeOutput(nil, nil))
}

func TestDecodeOutput_InvalidBytesReplaced(t *testing.T) {
	got := DecodeOutput([]byte("caf\xe9 \xff\xfe done"), nil)

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "caf")
	assert.Contains(t, got, "done")
	assert.Contains(t, got, "�")
}

func TestDecodeOutput_Windows1252(t *testing.T) {
	enc, err := LookupEncoding("windows-1252")
	require.NoError(t, err)

	// "Não" and "ação" as emitted by a Portuguese Windows shell.
	got := DecodeOutput([]byte("N\xe3o foi poss\xedvel concluir a a\xe7\xe3o"), enc)
	assert.Equal(t, "Não foi possível concluir a ação", got)
}

func TestDecodeOutput_CodePage850(t *testing.T) {
	enc, err := LookupEncoding("IBM850")
	require.NoError(t, err)

	got := DecodeOutput([]byte("a\x87\xc6o"), enc)
	assert.Equal(t, "ação", got)
}

func TestLookupEncoding_Unknown(t *testing.T) {
	_, err := LookupEncoding("not-a-charset")
	assert.Error(t, err)
}
