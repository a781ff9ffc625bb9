// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePipReport(t *testing.T) {
	report := `{
	  "version": "1",
	  "pip_version": "24.2",
	  "install": [
	    {"download_info": {"url": "https://files.example/urllib3.whl"}, "metadata": {"name": "urllib3", "version": "2.2.3"}},
	    {"metadata": {"name": "requests", "version": "2.32.3"}},
	    {"metadata": {"name": "Idna", "version": "3.10"}},
	    {"metadata": {}}
	  ]
	}`

	got := parsePipReport([]byte(report))
	assert.Equal(t, []Package{
		{Name: "Idna", Version: "3.10"},
		{Name: "requests", Version: "2.32.3"},
		{Name: "urllib3", Version: "2.2.3"},
	}, got)
	assert.Equal(t, "requests==2.32.3", got[1].String())
}

func TestParsePipReport_Invalid(t *testing.T) {
	assert.Nil(t, parsePipReport([]byte("not json")))
	assert.Nil(t, parsePipReport([]byte(`{"install": []}`)))
	assert.Nil(t, parsePipReport(nil))
}
